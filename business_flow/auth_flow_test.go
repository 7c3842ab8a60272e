package businessflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amirphl/orochi-outreach/app/services"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
	testingutil "github.com/amirphl/orochi-outreach/testing"
)

func TestAuthFlowLogout(t *testing.T) {
	ctx := context.Background()
	tokenService, err := services.NewTokenService(testingutil.TestJWTIssuer, testingutil.TestJWTAudience, false, "", testingutil.TestJWTSecret, services.NewMemoryTokenStore())
	require.NoError(t, err)
	flow := businessflow.NewAuthFlow(tokenService, zap.NewNop())

	access, err := testingutil.IssueTestToken(uuid.New(), "access", time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(ctx, access)
	require.NoError(t, err)

	resp, err := flow.Logout(ctx, access, businessflow.NewClientMetadata("127.0.0.1", "test"))
	require.NoError(t, err)
	assert.Equal(t, "Logged out successfully", resp.Message)

	_, err = tokenService.ValidateToken(ctx, access)
	assert.ErrorIs(t, err, services.ErrTokenRevoked)

	_, err = flow.Logout(ctx, "", nil)
	assert.True(t, businessflow.IsTokenRequired(err))

	_, err = flow.Logout(ctx, "not-a-jwt", nil)
	require.Error(t, err)
	var be *businessflow.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "LOGOUT_FAILED", be.Code)
}
