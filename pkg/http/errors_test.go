package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/datatrace-io/datatrace/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name     string
		writer   func(w http.ResponseWriter, message string)
		wantCode int
		wantErr  string
	}{
		{name: "bad request", writer: pkghttp.WriteBadRequest, wantCode: http.StatusBadRequest, wantErr: "bad_request"},
		{name: "unauthorized", writer: pkghttp.WriteUnauthorized, wantCode: http.StatusUnauthorized, wantErr: "unauthorized"},
		{name: "forbidden", writer: pkghttp.WriteForbidden, wantCode: http.StatusForbidden, wantErr: "forbidden"},
		{name: "not found", writer: pkghttp.WriteNotFound, wantCode: http.StatusNotFound, wantErr: "not_found"},
		{name: "too many requests", writer: pkghttp.WriteTooManyRequests, wantCode: http.StatusTooManyRequests, wantErr: "rate_limit_exceeded"},
		{name: "gateway timeout", writer: pkghttp.WriteGatewayTimeout, wantCode: http.StatusGatewayTimeout, wantErr: "search_timeout"},
		{name: "internal error", writer: pkghttp.WriteInternalError, wantCode: http.StatusInternalServerError, wantErr: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.writer(w, "something went wrong")

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Error)
			assert.Equal(t, "something went wrong", resp.Message)
		})
	}
}
