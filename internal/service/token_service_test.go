package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contacts-api/pkg/apierror"
)

func TestNewTokenService(t *testing.T) {
	t.Parallel()

	t.Run("accepts allowed algorithms", func(t *testing.T) {
		for _, alg := range []string{"HS256", "HS512"} {
			_, err := NewTokenService("secret", alg)
			require.NoError(t, err, alg)
		}
	})

	t.Run("rejects unknown algorithm", func(t *testing.T) {
		_, err := NewTokenService("secret", "none")
		require.Error(t, err)
	})

	t.Run("rejects empty secret", func(t *testing.T) {
		_, err := NewTokenService("", "HS256")
		require.Error(t, err)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	svc, err := NewTokenService("test-secret", "HS256")
	require.NoError(t, err)

	t.Run("access token carries subject and scope", func(t *testing.T) {
		token, err := svc.CreateAccessToken("deadpool@example.com", 0)
		require.NoError(t, err)

		claims, err := svc.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "deadpool@example.com", claims.Subject)
		assert.Equal(t, ScopeAccess, claims.Scope)
	})

	t.Run("refresh token carries refresh scope", func(t *testing.T) {
		token, err := svc.CreateRefreshToken("deadpool@example.com", 0)
		require.NoError(t, err)

		claims, err := svc.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, ScopeRefresh, claims.Scope)
	})

	t.Run("email token has no scope", func(t *testing.T) {
		token, err := svc.CreateEmailToken("deadpool@example.com", 0)
		require.NoError(t, err)

		claims, err := svc.Verify(token)
		require.NoError(t, err)
		assert.Empty(t, claims.Scope)
	})
}

func TestTokenVerifyFailures(t *testing.T) {
	t.Parallel()

	svc, err := NewTokenService("test-secret", "HS256")
	require.NoError(t, err)

	t.Run("expired token is rejected", func(t *testing.T) {
		token, err := svc.CreateAccessToken("a@example.com", -time.Minute)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		requireCredentialsError(t, err)
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		token, err := svc.CreateAccessToken("a@example.com", time.Minute)
		require.NoError(t, err)

		_, err = svc.Verify(token + "x")
		requireCredentialsError(t, err)
	})

	t.Run("token signed with a different secret is rejected", func(t *testing.T) {
		other, err := NewTokenService("other-secret", "HS256")
		require.NoError(t, err)

		token, err := other.CreateAccessToken("a@example.com", time.Minute)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		requireCredentialsError(t, err)
	})

	t.Run("algorithm mismatch is rejected", func(t *testing.T) {
		hs512, err := NewTokenService("test-secret", "HS512")
		require.NoError(t, err)

		token, err := hs512.CreateAccessToken("a@example.com", time.Minute)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		requireCredentialsError(t, err)
	})

	t.Run("garbage input is rejected", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		requireCredentialsError(t, err)
	})
}

// Token failures never explain why; the detail is always the same generic
// message regardless of the underlying cause.
func requireCredentialsError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)

	apiErr, ok := err.(*apierror.APIError)
	require.True(t, ok, "expected *apierror.APIError, got %T", err)
	assert.Equal(t, "Could not validate credentials", apiErr.Message)
	assert.Equal(t, 401, apiErr.HTTPStatus)
}
