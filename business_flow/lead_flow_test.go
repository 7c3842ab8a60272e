package businessflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/orochi-outreach/app/dto"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/utils"
)

func newLeadFlow(env *flowEnv) businessflow.LeadFlow {
	return businessflow.NewLeadFlow(env.leadRepo, env.profileRepo, env.campaignLeadRepo, env.trackingRepo, env.linkRepo, env.logger, env.db)
}

func TestLeadFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateLeadAppliesFallbacks", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := newLeadFlow(env)
		owner := uuid.New()

		lead, err := flow.CreateLead(ctx, &dto.CreateLeadRequest{
			UserID: owner,
			LeadFields: dto.LeadFields{
				FirstName: utils.ToPtr("  Grace "),
				LastName:  utils.ToPtr("Hopper"),
				Email:     utils.ToPtr("Grace@Navy.test"),
				Company:   utils.ToPtr("US Navy"),
				Position:  utils.ToPtr("Rear Admiral"),
				Status:    utils.ToPtr("bogus"),
			},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Grace", lead.FirstName)
		assert.Equal(t, "Grace Hopper", lead.ContactName)
		assert.Equal(t, "US Navy", lead.CompanyName)
		assert.Equal(t, "Rear Admiral", lead.Title)
		assert.Equal(t, models.LeadSourceManual, lead.Source)
		assert.Equal(t, "new", lead.Status)

		profile, err := env.profileRepo.ByUserID(ctx, owner)
		require.NoError(t, err)
		assert.NotNil(t, profile)
	})

	t.Run("CreateLeadRejectsDuplicateEmailIgnoringCase", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := newLeadFlow(env)
		owner := env.owner(t)
		env.lead(t, owner, "dup@acme.test")

		_, err := flow.CreateLead(ctx, &dto.CreateLeadRequest{
			UserID:     owner,
			LeadFields: dto.LeadFields{Email: utils.ToPtr("DUP@acme.test")},
		}, nil)
		require.Error(t, err)
		assert.True(t, businessflow.IsLeadEmailExists(err))

		// another owner may hold the same address
		_, err = flow.CreateLead(ctx, &dto.CreateLeadRequest{
			UserID:     env.owner(t),
			LeadFields: dto.LeadFields{Email: utils.ToPtr("dup@acme.test")},
		}, nil)
		require.NoError(t, err)
	})

	t.Run("LeadsWithoutEmailDoNotCollide", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := newLeadFlow(env)
		owner := env.owner(t)

		for i := 0; i < 2; i++ {
			_, err := flow.CreateLead(ctx, &dto.CreateLeadRequest{
				UserID:     owner,
				LeadFields: dto.LeadFields{ContactName: utils.ToPtr("Walk-in")},
			}, nil)
			require.NoError(t, err)
		}
	})

	t.Run("UpdateLead", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := newLeadFlow(env)
		owner := env.owner(t)
		lead := env.lead(t, owner, "first@acme.test")
		other := env.lead(t, owner, "second@acme.test")

		updated, err := flow.UpdateLead(ctx, &dto.UpdateLeadRequest{
			UUID:       lead.UUID.String(),
			UserID:     owner,
			LeadFields: dto.LeadFields{Status: utils.ToPtr("qualified"), Notes: utils.ToPtr("met at expo")},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "qualified", updated.Status)
		assert.Equal(t, "met at expo", updated.Notes)
		assert.Equal(t, "first@acme.test", updated.Email)
		assert.NotNil(t, updated.UpdatedAt)

		// keeping its own email is not a conflict
		_, err = flow.UpdateLead(ctx, &dto.UpdateLeadRequest{
			UUID:       lead.UUID.String(),
			UserID:     owner,
			LeadFields: dto.LeadFields{Email: utils.ToPtr("FIRST@acme.test")},
		}, nil)
		require.NoError(t, err)

		_, err = flow.UpdateLead(ctx, &dto.UpdateLeadRequest{
			UUID:       lead.UUID.String(),
			UserID:     owner,
			LeadFields: dto.LeadFields{Email: utils.ToPtr(other.Email)},
		}, nil)
		assert.True(t, businessflow.IsLeadEmailExists(err))

		_, err = flow.UpdateLead(ctx, &dto.UpdateLeadRequest{UUID: lead.UUID.String(), UserID: uuid.New()}, nil)
		assert.True(t, businessflow.IsLeadNotFound(err))
	})

	t.Run("ListLeadsFiltersAndPaginates", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := newLeadFlow(env)
		owner := env.owner(t)
		env.lead(t, owner, "alpha@acme.test")
		env.lead(t, owner, "beta@acme.test")
		env.lead(t, owner, "gamma@other.test")
		env.lead(t, env.owner(t), "alpha@acme.test")

		all, err := flow.ListLeads(ctx, &dto.ListLeadsRequest{UserID: owner, Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, all.Items, 2)
		assert.Equal(t, int64(3), all.Pagination.Total)
		assert.Equal(t, 2, all.Pagination.TotalPages)
		// newest first
		assert.Equal(t, "gamma@other.test", all.Items[0].Email)

		search := "OTHER"
		matched, err := flow.ListLeads(ctx, &dto.ListLeadsRequest{UserID: owner, Search: &search})
		require.NoError(t, err)
		require.Len(t, matched.Items, 1)
		assert.Equal(t, "gamma@other.test", matched.Items[0].Email)

		_, err = flow.ListLeads(ctx, &dto.ListLeadsRequest{UserID: owner, Page: -1})
		assert.True(t, businessflow.IsInvalidPage(err))
	})

	t.Run("DeleteLeadRemovesDependentRows", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := newLeadFlow(env)
		owner := env.owner(t)
		lead := env.lead(t, owner, "bye@acme.test")
		campaign := env.campaign(t, owner, models.CampaignStatusActive, lead)
		_, err := env.fixtures.CreateTestTracking(campaign.ID, lead.ID)
		require.NoError(t, err)
		require.NoError(t, env.linkRepo.Save(ctx, &models.LinkTracking{
			CampaignID:  campaign.ID,
			LeadID:      lead.ID,
			TrackingID:  "t-1",
			OriginalURL: "https://example.com",
			IPAddress:   "127.0.0.1",
			UserAgent:   "test",
			ClickedAt:   time.Now().UTC(),
		}))

		resp, err := flow.DeleteLead(ctx, &dto.LeadRequest{UUID: lead.UUID.String(), UserID: owner}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Lead deleted successfully", resp.Message)
		assert.Equal(t, "Jane Doe", resp.LeadName)

		gone, err := env.leadRepo.ByID(ctx, lead.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)
		clicks, err := env.linkRepo.CountByCampaign(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Zero(t, clicks)
		participants, err := env.campaignLeadRepo.Count(ctx, models.CampaignLeadFilter{CampaignID: &campaign.ID})
		require.NoError(t, err)
		assert.Zero(t, participants)

		_, err = flow.GetLead(ctx, &dto.LeadRequest{UUID: lead.UUID.String(), UserID: owner})
		assert.True(t, businessflow.IsLeadNotFound(err))
	})
}
