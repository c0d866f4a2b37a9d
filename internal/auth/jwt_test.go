package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-signing-key-for-unit-tests-only"

func TestIssueAndValidate(t *testing.T) {
	v := NewJWTValidator(testSecret)

	token, err := v.Issue(42, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
}

func TestValidateTokenFailures(t *testing.T) {
	v := NewJWTValidator(testSecret)

	t.Run("empty token", func(t *testing.T) {
		_, err := v.ValidateToken("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := v.ValidateToken("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := v.Issue(42, -time.Minute)
		require.NoError(t, err)

		_, err = v.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTValidator("a-completely-different-signing-key-here")
		token, err := other.Issue(42, time.Hour)
		require.NoError(t, err)

		_, err = v.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("unexpected signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": 42})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = v.ValidateToken(signed)
		assert.Error(t, err)
	})
}

func TestValidateTokenClaims(t *testing.T) {
	v := NewJWTValidator(testSecret)

	sign := func(claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)
		return signed
	}

	exp := time.Now().Add(time.Hour).Unix()

	t.Run("missing id claim", func(t *testing.T) {
		_, err := v.ValidateToken(sign(jwt.MapClaims{"exp": exp}))
		assert.ErrorIs(t, err, ErrMissingClaims)
	})

	t.Run("string id claim", func(t *testing.T) {
		claims, err := v.ValidateToken(sign(jwt.MapClaims{"id": "17", "exp": exp}))
		require.NoError(t, err)
		assert.Equal(t, int64(17), claims.UserID)
	})

	t.Run("non-numeric string id", func(t *testing.T) {
		_, err := v.ValidateToken(sign(jwt.MapClaims{"id": "alice", "exp": exp}))
		assert.ErrorIs(t, err, ErrMissingClaims)
	})

	t.Run("non-positive id", func(t *testing.T) {
		_, err := v.ValidateToken(sign(jwt.MapClaims{"id": 0, "exp": exp}))
		assert.ErrorIs(t, err, ErrMissingClaims)
	})

	t.Run("boolean id claim", func(t *testing.T) {
		_, err := v.ValidateToken(sign(jwt.MapClaims{"id": true, "exp": exp}))
		assert.ErrorIs(t, err, ErrMissingClaims)
	})
}
