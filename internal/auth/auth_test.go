package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacedetect/internal/config"
)

func TestAuthenticate(t *testing.T) {
	a, err := NewAuthenticator(config.AuthConfig{
		Enabled:   true,
		Username:  "astronaut",
		Password:  "s3cret",
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, a.IsEnabled())

	token, expiresAt, err := a.Authenticate("astronaut", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), expiresAt, 5)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "astronaut", claims.Username)

	_, _, err = a.Authenticate("astronaut", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = a.Authenticate("someone", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateWithBcryptHash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	a, err := NewAuthenticator(config.AuthConfig{Enabled: true, Username: "admin", Password: hash})
	require.NoError(t, err)

	_, _, err = a.Authenticate("admin", "hunter2")
	assert.NoError(t, err)
}

func TestAuthenticateDisabled(t *testing.T) {
	a, err := NewAuthenticator(config.AuthConfig{Username: "admin"})
	require.NoError(t, err)

	_, _, err = a.Authenticate("admin", "anything")
	assert.ErrorIs(t, err, ErrAuthDisabled)
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims *Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestGeneratedClaims(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	first, expiresAt, err := m.GenerateToken("astronaut")
	require.NoError(t, err)
	second, _, err := m.GenerateToken("astronaut")
	require.NoError(t, err)

	a, err := m.ValidateToken(first)
	require.NoError(t, err)
	b, err := m.ValidateToken(second)
	require.NoError(t, err)

	assert.Equal(t, "astronaut", a.Subject)
	assert.Equal(t, jwt.ClaimStrings{audience}, a.Audience)
	assert.Equal(t, issuer, a.Issuer)
	assert.NotNil(t, a.NotBefore)
	assert.Equal(t, expiresAt.Unix(), a.ExpiresAtUnix())
	assert.NotEmpty(t, a.TokenID())
	assert.NotEqual(t, a.TokenID(), b.TokenID())
}

func TestValidateToken(t *testing.T) {
	m := NewJWTManager("secret-a", time.Hour)
	token, _, err := m.GenerateToken("admin")
	require.NoError(t, err)

	now := time.Now()
	valid := func() *Claims {
		return &Claims{
			Username: "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   "admin",
				Audience:  jwt.ClaimStrings{audience},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(now),
				ID:        "jti-1",
			},
		}
	}
	otherAudience := valid()
	otherAudience.Audience = jwt.ClaimStrings{"grafana"}
	noExpiry := valid()
	noExpiry.ExpiresAt = nil
	notYetValid := valid()
	notYetValid.NotBefore = jwt.NewNumericDate(now.Add(time.Hour))
	subjectMismatch := valid()
	subjectMismatch.Subject = "root"
	noID := valid()
	noID.ID = ""

	tests := []struct {
		name    string
		manager *JWTManager
		token   string
		want    error
	}{
		{name: "other secret", manager: NewJWTManager("secret-b", time.Hour), token: token, want: ErrInvalidToken},
		{name: "garbage", manager: m, token: "not.a.jwt", want: ErrInvalidToken},
		{name: "other audience", manager: m, token: sign(t, jwt.SigningMethodHS256, []byte("secret-a"), otherAudience), want: ErrInvalidToken},
		{name: "no expiry", manager: m, token: sign(t, jwt.SigningMethodHS256, []byte("secret-a"), noExpiry), want: ErrInvalidToken},
		{name: "not yet valid", manager: m, token: sign(t, jwt.SigningMethodHS256, []byte("secret-a"), notYetValid), want: ErrInvalidToken},
		{name: "subject mismatch", manager: m, token: sign(t, jwt.SigningMethodHS256, []byte("secret-a"), subjectMismatch), want: ErrInvalidToken},
		{name: "missing id", manager: m, token: sign(t, jwt.SigningMethodHS256, []byte("secret-a"), noID), want: ErrInvalidToken},
		{name: "other hmac size", manager: m, token: sign(t, jwt.SigningMethodHS512, []byte("secret-a"), valid()), want: ErrInvalidToken},
		{name: "unsigned", manager: m, token: sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid()), want: ErrInvalidToken},
	}

	hand, err := m.ValidateToken(sign(t, jwt.SigningMethodHS256, []byte("secret-a"), valid()))
	require.NoError(t, err)
	assert.Equal(t, "jti-1", hand.TokenID())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExpiredToken(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	m.expiry = -time.Minute

	token, _, err := m.GenerateToken("admin")
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestNewJWTManagerDefaults(t *testing.T) {
	m := NewJWTManager("", 0)
	assert.Len(t, m.secretKey, 64)
	assert.Equal(t, 24*time.Hour, m.Expiry())
}
