package testing

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token settings shared by handler and middleware tests
const (
	TestJWTSecret   = "test-secret-key-for-jwt-signing-32-chars"
	TestJWTIssuer   = "pick-auth"
	TestJWTAudience = "pick-api"
)

type tokenClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// SignToken issues an HS256 token for userID valid for ttl. A negative ttl yields an expired token.
func SignToken(userID, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        userID + "-" + now.Format("150405.000000"),
			Issuer:    TestJWTIssuer,
			Audience:  jwt.ClaimStrings{TestJWTAudience},
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
}
