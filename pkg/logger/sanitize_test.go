package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskedMobile(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   string
	}{
		{name: "ten digits", number: "9876543210", want: "******3210"},
		{name: "with country code", number: "919876543210", want: "********3210"},
		{name: "short fragment", number: "3210", want: "****"},
		{name: "empty", number: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskedMobile(tt.number))
		})
	}
}

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{name: "plain address", email: "user@example.com", want: "u***@*******.com"},
		{name: "single char user", email: "u@example.com", want: "u@*******.com"},
		{name: "not an email", email: "not-an-email", want: "[invalid-email]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizedEmail(tt.email))
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     bool
	}{
		{name: "search criteria", rawQuery: "query=sharma&limit=10", want: true},
		{name: "mobile criteria", rawQuery: "mobile=9876543210", want: true},
		{name: "credential", rawQuery: "token=abc123", want: true},
		{name: "pagination only", rawQuery: "limit=10&offset=20", want: false},
		{name: "empty", rawQuery: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeQueryString(tt.rawQuery))
		})
	}
}
