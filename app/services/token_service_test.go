package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   "user-123",
		ID:        "jti-1",
		Issuer:    "test-issuer",
		Audience:  jwt.ClaimStrings{"test-audience"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
	}
}

func TestNewTokenService(t *testing.T) {
	_, err := NewTokenService("", "iss", "aud")
	assert.Error(t, err)

	service, err := NewTokenService(testSecret, "", "")
	require.NoError(t, err)
	assert.NotNil(t, service)
}

func TestValidateToken(t *testing.T) {
	service, err := NewTokenService(testSecret, "test-issuer", "test-audience")
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     func() string
		expectErr error
	}{
		{
			name:  "valid token",
			token: func() string { return signToken(t, jwt.SigningMethodHS256, testSecret, validClaims()) },
		},
		{
			name: "expired token",
			token: func() string {
				c := validClaims()
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
				return signToken(t, jwt.SigningMethodHS256, testSecret, c)
			},
			expectErr: ErrTokenExpired,
		},
		{
			name: "wrong secret",
			token: func() string {
				return signToken(t, jwt.SigningMethodHS256, "another-secret-key-that-is-32-chars!", validClaims())
			},
			expectErr: ErrTokenInvalid,
		},
		{
			name: "wrong audience",
			token: func() string {
				c := validClaims()
				c.Audience = jwt.ClaimStrings{"someone-else"}
				return signToken(t, jwt.SigningMethodHS256, testSecret, c)
			},
			expectErr: ErrTokenInvalid,
		},
		{
			name: "missing subject",
			token: func() string {
				c := validClaims()
				c.Subject = ""
				return signToken(t, jwt.SigningMethodHS256, testSecret, c)
			},
			expectErr: ErrTokenInvalid,
		},
		{
			name: "missing expiry",
			token: func() string {
				c := validClaims()
				c.ExpiresAt = nil
				return signToken(t, jwt.SigningMethodHS256, testSecret, c)
			},
			expectErr: ErrTokenInvalid,
		},
		{
			name:      "garbage",
			token:     func() string { return "not-a-jwt" },
			expectErr: ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token())
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-123", claims.UserID)
			assert.Equal(t, "jti-1", claims.TokenID)
			assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
		})
	}
}
