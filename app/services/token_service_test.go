package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingutil "github.com/amirphl/orochi-outreach/testing"
)

const testSecret = testingutil.TestJWTSecret

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(t *testing.T) TokenService {
	t.Helper()
	service, err := NewTokenService(
		testingutil.TestJWTIssuer,
		testingutil.TestJWTAudience,
		false, // useRSAKeys
		"",    // publicKeyPEM
		testSecret,
		NewMemoryTokenStore(),
	)
	require.NoError(t, err)
	return service
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		issuer      string
		audience    string
		useRSAKeys  bool
		secretKey   string
		expectError bool
	}{
		{name: "valid symmetric key configuration", issuer: "test-issuer", audience: "test-audience", secretKey: testSecret},
		{name: "missing secret key", issuer: "test-issuer", audience: "test-audience", expectError: true},
		{name: "empty issuer and audience", secretKey: testSecret},
		{name: "rsa without public key", useRSAKeys: true, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(tt.issuer, tt.audience, tt.useRSAKeys, "", tt.secretKey, nil)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	service := createTestTokenService(t)
	userID := uuid.New()

	access, err := testingutil.IssueTestToken(userID, "access", time.Hour)
	require.NoError(t, err)
	refresh, err := testingutil.IssueTestToken(userID, "refresh", 24*time.Hour)
	require.NoError(t, err)

	claims, err := service.ValidateToken(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))

	refreshClaims, err := service.ValidateToken(context.Background(), refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
	assert.NotEqual(t, claims.TokenID, refreshClaims.TokenID)
}

func TestValidateToken_Rejections(t *testing.T) {
	service := createTestTokenService(t)
	ctx := context.Background()
	now := time.Now()

	sign := func(claims jwt.MapClaims, secret string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": uuid.NewString(),
			"jti": "abc",
			"iat": now.Unix(),
			"exp": now.Add(time.Minute).Unix(),
			"iss": "test-issuer",
			"aud": "test-audience",
		}
	}

	expired := base()
	expired["exp"] = now.Add(-time.Minute).Unix()
	_, err := service.ValidateToken(ctx, sign(expired, testSecret))
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = service.ValidateToken(ctx, sign(base(), "another-secret"))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	wrongIssuer := base()
	wrongIssuer["iss"] = "someone-else"
	_, err = service.ValidateToken(ctx, sign(wrongIssuer, testSecret))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	badSubject := base()
	badSubject["sub"] = "42"
	_, err = service.ValidateToken(ctx, sign(badSubject, testSecret))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	noJTI := base()
	delete(noJTI, "jti")
	_, err = service.ValidateToken(ctx, sign(noJTI, testSecret))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = service.ValidateToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRevokeToken(t *testing.T) {
	service := createTestTokenService(t)
	ctx := context.Background()

	userID := uuid.New()
	access, err := testingutil.IssueTestToken(userID, "access", time.Hour)
	require.NoError(t, err)
	refresh, err := testingutil.IssueTestToken(userID, "refresh", 24*time.Hour)
	require.NoError(t, err)

	require.NoError(t, service.RevokeToken(ctx, access))

	_, err = service.ValidateToken(ctx, access)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = service.ValidateToken(ctx, refresh)
	assert.NoError(t, err)

	assert.Error(t, service.RevokeToken(ctx, "garbage"))
}

func TestMemoryTokenStore_Expiry(t *testing.T) {
	store := NewMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "short", time.Millisecond))
	require.NoError(t, store.Revoke(ctx, "long", time.Hour))

	time.Sleep(5 * time.Millisecond)

	revoked, err := store.IsRevoked(ctx, "short")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = store.IsRevoked(ctx, "long")
	require.NoError(t, err)
	assert.True(t, revoked)
}
