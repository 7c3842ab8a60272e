package testing

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Test token settings shared by services, flows and middleware tests
const (
	TestJWTSecret   = "test-secret-key-for-jwt-signing-32-chars"
	TestJWTIssuer   = "test-issuer"
	TestJWTAudience = "test-audience"
)

// IssueTestToken signs an HS256 token the way the identity provider does
func IssueTestToken(userID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":        userID.String(),
		"token_type": tokenType,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
		"iss":        TestJWTIssuer,
		"aud":        TestJWTAudience,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign test token: %w", err)
	}
	return token, nil
}
