package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "civreg/pkg/domain-errors"
)

const testKey = "workflow-test-signing-key"

func signToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestVerifier(t *testing.T) {
	verifier := NewVerifier(testKey)

	t.Run("valid token yields subject and scopes", func(t *testing.T) {
		token := signToken(t, testKey, jwt.MapClaims{
			"sub":   "user-1",
			"scope": []string{"declare"},
			"exp":   time.Now().Add(time.Hour).Unix(),
		})

		claims, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, []string{"declare"}, claims.Scope)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		token := signToken(t, testKey, jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		_, err := verifier.Verify(token)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("wrong key is unauthorized", func(t *testing.T) {
		token := signToken(t, "some-other-key", jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err := verifier.Verify(token)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		_, err := verifier.Verify("not-a-jwt")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})
}

func TestTokenFromHeader(t *testing.T) {
	t.Run("extracts bearer token", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/records/download", nil)
		r.Header.Set("Authorization", "Bearer abc.def.ghi")

		token, err := TokenFromHeader(r)
		require.NoError(t, err)
		assert.Equal(t, "abc.def.ghi", token)
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/records/download", nil)

		_, err := TokenFromHeader(r)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("non-bearer header is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/records/download", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		_, err := TokenFromHeader(r)
		require.Error(t, err)
	})
}
