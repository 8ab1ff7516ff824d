package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour)

	raw, err := m.GenerateAccessToken("u1", "ana@example.com", []string{"ROLE_USER", "ROLE_ADMIN"})
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(raw)
	require.NoError(t, err)

	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.True(t, claims.HasRole("ROLE_ADMIN"))
	assert.False(t, claims.HasRole("ROLE_EDITOR"))
}

func TestAccessToken_Expired(t *testing.T) {
	m := NewManager("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }

	raw, err := m.GenerateAccessToken("u1", "a@example.com", nil)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.VerifyAccessToken(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAccessToken_WrongSecret(t *testing.T) {
	raw, err := NewManager("one", time.Hour).GenerateAccessToken("u1", "a@example.com", nil)
	require.NoError(t, err)

	_, err = NewManager("two", time.Hour).VerifyAccessToken(raw)
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestAccessToken_RejectsOtherTypes(t *testing.T) {
	m := NewManager("secret", time.Hour)

	claims := Claims{
		UserID:    "u1",
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "eventhub",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(raw)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestAccessToken_RejectsNoneAlg(t *testing.T) {
	m := NewManager("secret", time.Hour)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1", TokenType: "access"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(raw)
	assert.Error(t, err)
}
