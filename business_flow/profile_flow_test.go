package businessflow_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/orochi-outreach/app/dto"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
	"github.com/amirphl/orochi-outreach/utils"
)

func TestProfileFlow(t *testing.T) {
	ctx := context.Background()
	env := newFlowEnv(t)
	flow := businessflow.NewProfileFlow(env.profileRepo)
	userID := uuid.New()

	resp, err := flow.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), resp.Profile.ID)
	assert.Empty(t, resp.Profile.Email)

	_, err = flow.UpdateProfile(ctx, &dto.UpdateProfileRequest{UserID: userID})
	assert.True(t, businessflow.IsProfileUpdateRequired(err))

	updated, err := flow.UpdateProfile(ctx, &dto.UpdateProfileRequest{
		UserID:   userID,
		Email:    utils.ToPtr("owner@acme.test"),
		FullName: utils.ToPtr(" Ada Lovelace "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Profile.FullName)
	require.NotNil(t, updated.Profile.UpdatedAt)

	again, err := flow.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.test", again.Profile.Email)
	assert.Equal(t, "Ada Lovelace", again.Profile.FullName)
}
