package businessflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/app/services"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/utils"
)

func TestCampaignFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateCampaignLinksOwnedLeadsOnly", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.campaignFlow(newFakeGateway())
		owner := uuid.New()
		stranger := env.owner(t)
		foreign := env.lead(t, stranger, "foreign@acme.test")

		// the owner has no profile yet; creating a lead provisions it
		leadFlow := businessflow.NewLeadFlow(env.leadRepo, env.profileRepo, env.campaignLeadRepo, env.trackingRepo, env.linkRepo, env.logger, env.db)
		created, err := leadFlow.CreateLead(ctx, &dto.CreateLeadRequest{
			UserID:     owner,
			LeadFields: dto.LeadFields{FirstName: utils.ToPtr("Ada"), Email: utils.ToPtr("ada@acme.test")},
		}, nil)
		require.NoError(t, err)

		resp, err := flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			UserID:       owner,
			Name:         "  Launch  ",
			Subject:      "Hi {{first_name}}",
			EmailContent: "Body",
			LeadIDs:      []string{created.ID, created.ID, foreign.UUID.String()},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Campaign created successfully", resp.Message)
		assert.Equal(t, "Launch", resp.Campaign.Name)
		assert.Equal(t, "draft", resp.Campaign.Status)
		assert.Equal(t, 1, resp.Campaign.TotalLeads)

		id := uuid.MustParse(resp.Campaign.ID)
		stored, err := env.campaignRepo.ByUUIDForUser(ctx, owner, id)
		require.NoError(t, err)
		require.NotNil(t, stored)
		count, err := env.campaignLeadRepo.Count(ctx, models.CampaignLeadFilter{CampaignID: &stored.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("CreateCampaignRejectsMalformedLeadID", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.campaignFlow(newFakeGateway())

		_, err := flow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			UserID:       env.owner(t),
			Name:         "Broken",
			Subject:      "S",
			EmailContent: "B",
			LeadIDs:      []string{"not-a-uuid"},
		}, nil)
		require.Error(t, err)
		assert.True(t, businessflow.IsLeadNotFound(err))
	})

	t.Run("UpdateCampaign", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.campaignFlow(newFakeGateway())
		owner := env.owner(t)
		draft := env.campaign(t, owner, models.CampaignStatusDraft)
		active := env.campaign(t, owner, models.CampaignStatusActive)

		_, err := flow.UpdateCampaign(ctx, &dto.UpdateCampaignRequest{UUID: draft.UUID.String(), UserID: owner}, nil)
		assert.True(t, businessflow.IsCampaignUpdateRequired(err))

		updated, err := flow.UpdateCampaign(ctx, &dto.UpdateCampaignRequest{
			UUID:    draft.UUID.String(),
			UserID:  owner,
			Subject: utils.ToPtr("New subject"),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "New subject", updated.Subject)
		assert.Equal(t, draft.Name, updated.Name)
		assert.Equal(t, "New subject", env.reloadCampaign(t, draft.ID).Subject)

		_, err = flow.UpdateCampaign(ctx, &dto.UpdateCampaignRequest{
			UUID:   active.UUID.String(),
			UserID: owner,
			Name:   utils.ToPtr("Nope"),
		}, nil)
		assert.True(t, businessflow.IsCampaignUpdateNotAllowed(err))
	})

	t.Run("GetCampaignHidesForeignAndMalformedIDs", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.campaignFlow(newFakeGateway())
		owner := env.owner(t)
		campaign := env.campaign(t, owner, models.CampaignStatusDraft)

		got, err := flow.GetCampaign(ctx, &dto.CampaignRequest{UUID: campaign.UUID.String(), UserID: owner})
		require.NoError(t, err)
		assert.Equal(t, campaign.UUID.String(), got.ID)

		_, err = flow.GetCampaign(ctx, &dto.CampaignRequest{UUID: campaign.UUID.String(), UserID: uuid.New()})
		assert.True(t, businessflow.IsCampaignNotFound(err))

		_, err = flow.GetCampaign(ctx, &dto.CampaignRequest{UUID: "garbage", UserID: owner})
		assert.True(t, businessflow.IsCampaignNotFound(err))

		_, err = flow.GetCampaign(ctx, &dto.CampaignRequest{UserID: owner})
		assert.True(t, businessflow.IsCampaignUUIDRequired(err))
	})

	t.Run("ListCampaigns", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.campaignFlow(newFakeGateway())
		owner := env.owner(t)
		for i := 0; i < 3; i++ {
			env.campaign(t, owner, models.CampaignStatusDraft)
		}
		env.campaign(t, owner, models.CampaignStatusPaused)
		env.campaign(t, env.owner(t), models.CampaignStatusDraft)

		page, err := flow.ListCampaigns(ctx, &dto.ListCampaignsRequest{UserID: owner, Page: 1, Limit: 3})
		require.NoError(t, err)
		assert.Len(t, page.Items, 3)
		assert.Equal(t, int64(4), page.Pagination.Total)
		assert.Equal(t, 2, page.Pagination.TotalPages)

		paused := "paused"
		filtered, err := flow.ListCampaigns(ctx, &dto.ListCampaignsRequest{UserID: owner, Status: &paused})
		require.NoError(t, err)
		require.Len(t, filtered.Items, 1)
		assert.Equal(t, "paused", filtered.Items[0].Status)
		assert.Equal(t, utils.DefaultPageSize, filtered.Pagination.Limit)

		_, err = flow.ListCampaigns(ctx, &dto.ListCampaignsRequest{UserID: owner, Limit: 1000})
		assert.True(t, businessflow.IsInvalidPageSize(err))
	})

	t.Run("PauseCampaignPausesProviderBestEffort", func(t *testing.T) {
		env := newFlowEnv(t)
		gateway := newFakeGateway()
		gateway.statusErr = errors.New("provider down")
		flow := env.campaignFlow(gateway)
		owner := env.owner(t)
		campaign := env.campaign(t, owner, models.CampaignStatusActive)
		require.NoError(t, env.campaignRepo.SetExternalID(ctx, campaign.ID, "ext-9"))

		paused, err := flow.PauseCampaign(ctx, &dto.CampaignRequest{UUID: campaign.UUID.String(), UserID: owner}, nil)
		require.NoError(t, err)
		assert.Equal(t, "paused", paused.Status)
		assert.Equal(t, models.CampaignStatusPaused, env.reloadCampaign(t, campaign.ID).Status)
		assert.Contains(t, env.publisher.types(), services.EventCampaignPaused)

		gateway.statusErr = nil
		_, err = flow.PauseCampaign(ctx, &dto.CampaignRequest{UUID: campaign.UUID.String(), UserID: owner}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"ext-9:" + services.ExternalStatusPaused}, gateway.statuses)
	})

	t.Run("DeleteCampaign", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.campaignFlow(newFakeGateway())
		owner := env.owner(t)
		lead := env.lead(t, owner, "gone@acme.test")
		active := env.campaign(t, owner, models.CampaignStatusActive, lead)
		paused := env.campaign(t, owner, models.CampaignStatusPaused, lead)
		_, err := env.fixtures.CreateTestTracking(paused.ID, lead.ID)
		require.NoError(t, err)

		_, err = flow.DeleteCampaign(ctx, &dto.CampaignRequest{UUID: active.UUID.String(), UserID: owner}, nil)
		assert.True(t, businessflow.IsCampaignActive(err))

		resp, err := flow.DeleteCampaign(ctx, &dto.CampaignRequest{UUID: paused.UUID.String(), UserID: owner}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Campaign deleted successfully", resp.Message)
		assert.Equal(t, paused.Name, resp.CampaignName)

		gone, err := env.campaignRepo.ByID(ctx, paused.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)
		tracking, err := env.trackingRepo.ByCampaignAndLead(ctx, paused.ID, lead.ID)
		require.NoError(t, err)
		assert.Nil(t, tracking)
		count, err := env.campaignLeadRepo.Count(ctx, models.CampaignLeadFilter{CampaignID: &paused.ID})
		require.NoError(t, err)
		assert.Zero(t, count)

		// the lead itself survives
		survivor, err := env.leadRepo.ByID(ctx, lead.ID)
		require.NoError(t, err)
		assert.NotNil(t, survivor)
	})

	t.Run("GetCampaignStatsIsCachedUntilEngagement", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.campaignFlow(newFakeGateway())
		tracking := env.trackingFlow()
		owner := env.owner(t)
		first := env.lead(t, owner, "one@acme.test")
		second := env.lead(t, owner, "two@acme.test")
		campaign := env.campaign(t, owner, models.CampaignStatusActive, first, second)
		for _, lead := range []*models.Lead{first, second} {
			_, err := env.fixtures.CreateTestTracking(campaign.ID, lead.ID)
			require.NoError(t, err)
			require.NoError(t, env.fixtures.MarkCampaignLead(campaign.ID, lead.ID, models.CampaignLeadStatusSent))
		}

		req := &dto.CampaignRequest{UUID: campaign.UUID.String(), UserID: owner}
		stats, err := flow.GetCampaignStats(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalSent)
		assert.Equal(t, int64(0), stats.TotalOpened)
		assert.Equal(t, "0.0", stats.OpenRate)

		// a row written behind the flow's back is not visible while cached
		now := utils.UTCNow()
		_, err = env.trackingRepo.SetClickedOnce(ctx, campaign.ID, second.ID, now)
		require.NoError(t, err)
		cached, err := flow.GetCampaignStats(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, int64(0), cached.TotalClicked)

		require.NoError(t, tracking.TrackOpen(ctx, &dto.TrackOpenRequest{CampaignID: campaign.UUID.String(), LeadID: first.UUID.String()}))

		fresh, err := flow.GetCampaignStats(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, int64(1), fresh.TotalOpened)
		assert.Equal(t, int64(1), fresh.TotalClicked)
		assert.Equal(t, "50.0", fresh.OpenRate)
		assert.Equal(t, "50.0", fresh.ClickRate)
		assert.Equal(t, "0.0", fresh.ReplyRate)
	})

	t.Run("GetCampaignStatsWithoutSends", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.campaignFlow(newFakeGateway())
		owner := env.owner(t)
		campaign := env.campaign(t, owner, models.CampaignStatusDraft)

		stats, err := flow.GetCampaignStats(ctx, &dto.CampaignRequest{UUID: campaign.UUID.String(), UserID: owner})
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.TotalSent)
		assert.Equal(t, "0", stats.OpenRate)
		assert.Equal(t, "0", stats.ClickRate)
		assert.Equal(t, "0", stats.ReplyRate)
	})

	t.Run("ReplyToLead", func(t *testing.T) {
		env := newFlowEnv(t)
		gateway := newFakeGateway()
		flow := env.campaignFlow(gateway)
		owner := env.owner(t)
		sent := env.lead(t, owner, "sent@acme.test")
		unsent := env.lead(t, owner, "unsent@acme.test")
		campaign := env.campaign(t, owner, models.CampaignStatusActive, sent, unsent)
		local := env.campaign(t, owner, models.CampaignStatusActive, sent)
		require.NoError(t, env.campaignRepo.SetExternalID(ctx, campaign.ID, "ext-3"))
		_, err := env.fixtures.CreateTestTracking(campaign.ID, sent.ID)
		require.NoError(t, err)

		resp, err := flow.ReplyToLead(ctx, &dto.ReplyToLeadRequest{
			UUID:     campaign.UUID.String(),
			LeadUUID: sent.UUID.String(),
			UserID:   owner,
			Message:  "Thanks!",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Reply sent successfully", resp.Message)
		assert.Equal(t, []string{"ext-3:" + sent.UUID.String() + ":Thanks!"}, gateway.replies)

		_, err = flow.ReplyToLead(ctx, &dto.ReplyToLeadRequest{
			UUID: campaign.UUID.String(), LeadUUID: unsent.UUID.String(), UserID: owner, Message: "Hi",
		}, nil)
		assert.True(t, businessflow.IsLeadNotFound(err))

		_, err = flow.ReplyToLead(ctx, &dto.ReplyToLeadRequest{
			UUID: local.UUID.String(), LeadUUID: sent.UUID.String(), UserID: owner, Message: "Hi",
		}, nil)
		assert.True(t, businessflow.IsCampaignNotExternal(err))

		gateway.replyErr = &services.GatewayError{StatusCode: 422, Body: "thread closed"}
		_, err = flow.ReplyToLead(ctx, &dto.ReplyToLeadRequest{
			UUID: campaign.UUID.String(), LeadUUID: sent.UUID.String(), UserID: owner, Message: "Again",
		}, nil)
		assert.True(t, businessflow.IsProviderFailed(err))
	})
}

func TestLocalSendLocker(t *testing.T) {
	locker := businessflow.NewLocalSendLocker()
	ctx := context.Background()

	unlock, ok, err := locker.TryLock(ctx, "campaign-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "campaign-a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = locker.TryLock(ctx, "campaign-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	unlock()
	again, ok, err := locker.TryLock(ctx, "campaign-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	again()
}
