package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserFetcher struct {
	user *models.User
	err  error
}

func (s *stubUserFetcher) GetActiveByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func activeUser(id string) *models.User {
	return &models.User{ID: id, Email: "a@example.com", Role: "user", IsActive: true}
}

func okHandler(captured **models.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = UserFromContext(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16", time.Minute)
	token, err := tm.GenerateAccessToken("user1", "a@example.com", "user")
	require.NoError(t, err)

	var seen *models.User
	handler := Middleware(tm, &stubUserFetcher{user: activeUser("user1")})(okHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user1", seen.ID)
}

func TestMiddleware_MissingHeader(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16", time.Minute)
	var seen *models.User
	handler := Middleware(tm, &stubUserFetcher{user: activeUser("user1")})(okHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, seen)
}

func TestMiddleware_MalformedHeader(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16", time.Minute)
	var seen *models.User
	handler := Middleware(tm, &stubUserFetcher{user: activeUser("user1")})(okHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16", -time.Minute)
	token, err := tm.GenerateAccessToken("user1", "a@example.com", "user")
	require.NoError(t, err)

	var seen *models.User
	handler := Middleware(tm, &stubUserFetcher{user: activeUser("user1")})(okHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_DeactivatedAccount(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16", time.Minute)
	token, err := tm.GenerateAccessToken("user1", "a@example.com", "user")
	require.NoError(t, err)

	var seen *models.User
	handler := Middleware(tm, &stubUserFetcher{err: models.ErrNotFound})(okHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, seen)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		role string
		want int
	}{
		{name: "matching role", role: "admin", want: http.StatusOK},
		{name: "insufficient role", role: "user", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			user := activeUser("user1")
			user.Role = tt.role
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), UserContextKey, user))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRole_NoIdentity(t *testing.T) {
	handler := RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
