package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contacts-api/internal/model"
	"contacts-api/pkg/apierror"
)

type stubResolver struct {
	user model.User
	err  error
}

func (s stubResolver) ResolveIdentity(_ context.Context, _ string) (model.User, error) {
	return s.user, s.err
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-User", user.Email)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing header", func(t *testing.T) {
		mw := NewAuthMiddleware(stubResolver{})
		rec := httptest.NewRecorder()

		mw.RequireAuth(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("malformed header", func(t *testing.T) {
		mw := NewAuthMiddleware(stubResolver{})
		req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()

		mw.RequireAuth(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("resolver rejection surfaces the generic detail", func(t *testing.T) {
		mw := NewAuthMiddleware(stubResolver{
			err: apierror.New("UNAUTHORIZED", "Could not validate credentials", http.StatusUnauthorized),
		})
		req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()

		mw.RequireAuth(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var body model.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Could not validate credentials", body.Detail)
	})

	t.Run("resolved user lands in context", func(t *testing.T) {
		mw := NewAuthMiddleware(stubResolver{user: model.User{ID: 1, Email: "deadpool@example.com"}})
		req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		mw.RequireAuth(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "deadpool@example.com", rec.Header().Get("X-User"))
	})
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer  abc123 ")

	token, ok := BearerToken(req)
	require.True(t, ok)
	assert.Equal(t, "abc123", token)
}
