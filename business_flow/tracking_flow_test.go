package businessflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/app/services"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/utils"
)

type sentCampaign struct {
	campaign *models.Campaign
	lead     *models.Lead
}

func newSentCampaign(t *testing.T, env *flowEnv) sentCampaign {
	t.Helper()
	owner := env.owner(t)
	lead := env.lead(t, owner, "reader@acme.test")
	campaign := env.campaign(t, owner, models.CampaignStatusActive, lead)
	_, err := env.fixtures.CreateTestTracking(campaign.ID, lead.ID)
	require.NoError(t, err)
	require.NoError(t, env.fixtures.MarkCampaignLead(campaign.ID, lead.ID, models.CampaignLeadStatusSent))
	return sentCampaign{campaign: campaign, lead: lead}
}

func TestTrackOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstOpenCountsOnce", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.trackingFlow()
		sc := newSentCampaign(t, env)
		req := &dto.TrackOpenRequest{CampaignID: sc.campaign.UUID.String(), LeadID: sc.lead.UUID.String(), Timestamp: "1"}

		require.NoError(t, flow.TrackOpen(ctx, req))
		require.NoError(t, flow.TrackOpen(ctx, req))

		tracking, err := env.trackingRepo.ByCampaignAndLead(ctx, sc.campaign.ID, sc.lead.ID)
		require.NoError(t, err)
		require.NotNil(t, tracking.OpenedAt)
		assert.Equal(t, 1, env.reloadCampaign(t, sc.campaign.ID).OpenedCount)
		assert.Equal(t, models.CampaignLeadStatusOpened, env.campaignLeadStatus(t, sc.campaign.ID, sc.lead.ID))
		assert.Equal(t, []string{services.EventEmailOpened}, env.publisher.types())
	})

	t.Run("OpenAfterReplyKeepsReplied", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.trackingFlow()
		sc := newSentCampaign(t, env)

		_, err := flow.TrackReply(ctx, &dto.TrackReplyRequest{CampaignID: sc.campaign.UUID.String(), LeadID: sc.lead.UUID.String()})
		require.NoError(t, err)
		require.NoError(t, flow.TrackOpen(ctx, &dto.TrackOpenRequest{CampaignID: sc.campaign.UUID.String(), LeadID: sc.lead.UUID.String()}))

		assert.Equal(t, models.CampaignLeadStatusReplied, env.campaignLeadStatus(t, sc.campaign.ID, sc.lead.ID))
	})

	t.Run("UnknownIDsAreReported", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.trackingFlow()
		sc := newSentCampaign(t, env)

		err := flow.TrackOpen(ctx, &dto.TrackOpenRequest{CampaignID: uuid.NewString(), LeadID: sc.lead.UUID.String()})
		assert.True(t, businessflow.IsCampaignNotFound(err))

		err = flow.TrackOpen(ctx, &dto.TrackOpenRequest{CampaignID: sc.campaign.UUID.String(), LeadID: "nope"})
		assert.True(t, businessflow.IsLeadNotFound(err))

		// a lead of another owner never resolves against this campaign
		foreign := env.lead(t, env.owner(t), "other@acme.test")
		err = flow.TrackOpen(ctx, &dto.TrackOpenRequest{CampaignID: sc.campaign.UUID.String(), LeadID: foreign.UUID.String()})
		assert.True(t, businessflow.IsLeadNotFound(err))
		assert.Zero(t, env.reloadCampaign(t, sc.campaign.ID).OpenedCount)
	})
}

func TestTrackClick(t *testing.T) {
	ctx := context.Background()

	t.Run("RecordsEveryClickAndStampsFirst", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.trackingFlow()
		sc := newSentCampaign(t, env)
		trackingID := services.ClickTrackingID(sc.campaign.UUID, sc.lead.UUID, utils.UTCNowUnixMilli())

		for i := 0; i < 2; i++ {
			target, err := flow.TrackClick(ctx, &dto.TrackClickRequest{
				TrackingID: trackingID,
				URL:        "https://example.com/offer?a=1",
				IPAddress:  "203.0.113.9",
			})
			require.NoError(t, err)
			assert.Equal(t, "https://example.com/offer?a=1", target)
		}

		clicks, err := env.linkRepo.CountByCampaign(ctx, sc.campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), clicks)

		rows, err := env.linkRepo.ByFilter(ctx, nil, "id ASC", 10, 0)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "203.0.113.9", rows[0].IPAddress)
		assert.Equal(t, utils.UnknownClientValue, rows[0].UserAgent)

		tracking, err := env.trackingRepo.ByCampaignAndLead(ctx, sc.campaign.ID, sc.lead.ID)
		require.NoError(t, err)
		assert.NotNil(t, tracking.ClickedAt)
		assert.Equal(t, []string{services.EventEmailClicked}, env.publisher.types())
	})

	t.Run("ClickIsLoggedWhenStampFails", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.trackingFlow()
		sc := newSentCampaign(t, env)
		require.NoError(t, env.db.Callback().Update().Before("gorm:update").Register("fail_email_tracking", func(tx *gorm.DB) {
			if tx.Statement.Table == "email_tracking" {
				_ = tx.AddError(errors.New("tracking table locked"))
			}
		}))

		target, err := flow.TrackClick(ctx, &dto.TrackClickRequest{
			TrackingID: services.ClickTrackingID(sc.campaign.UUID, sc.lead.UUID, 1),
			URL:        "https://example.com/x",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/x", target)

		clicks, err := env.linkRepo.CountByCampaign(ctx, sc.campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), clicks)
		assert.Empty(t, env.publisher.types())
	})

	t.Run("UnresolvableIDStillRedirects", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.trackingFlow()

		target, err := flow.TrackClick(ctx, &dto.TrackClickRequest{TrackingID: "garbage", URL: "http://example.org"})
		require.NoError(t, err)
		assert.Equal(t, "http://example.org", target)

		orphan := services.ClickTrackingID(uuid.New(), uuid.New(), 1)
		target, err = flow.TrackClick(ctx, &dto.TrackClickRequest{TrackingID: orphan, URL: "https://example.org/x"})
		require.NoError(t, err)
		assert.Equal(t, "https://example.org/x", target)
	})

	t.Run("RejectsMissingParametersAndUnsafeTargets", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.trackingFlow()

		_, err := flow.TrackClick(ctx, &dto.TrackClickRequest{URL: "https://example.com"})
		assert.True(t, businessflow.IsTrackingParamsRequired(err))

		_, err = flow.TrackClick(ctx, &dto.TrackClickRequest{TrackingID: "x"})
		assert.True(t, businessflow.IsTrackingParamsRequired(err))

		for _, target := range []string{"javascript:alert(1)", "ftp://example.com/file", "/relative/path", "https://"} {
			_, err = flow.TrackClick(ctx, &dto.TrackClickRequest{TrackingID: "x", URL: target})
			assert.True(t, businessflow.IsInvalidRedirectURL(err), target)
		}
	})
}

func TestTrackReply(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstReplyCountsOnceAndStoresContent", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.trackingFlow()
		sc := newSentCampaign(t, env)
		req := &dto.TrackReplyRequest{
			CampaignID:   sc.campaign.UUID.String(),
			LeadID:       sc.lead.UUID.String(),
			ReplySubject: utils.ToPtr("Re: Hello"),
			ReplyContent: utils.ToPtr("Sounds good"),
		}

		resp, err := flow.TrackReply(ctx, req)
		require.NoError(t, err)
		assert.True(t, resp.Success)
		_, err = flow.TrackReply(ctx, req)
		require.NoError(t, err)

		tracking, err := env.trackingRepo.ByCampaignAndLead(ctx, sc.campaign.ID, sc.lead.ID)
		require.NoError(t, err)
		require.NotNil(t, tracking.RepliedAt)
		assert.Equal(t, "Sounds good", utils.Deref(tracking.ReplyContent))
		assert.Equal(t, "Re: Hello", utils.Deref(tracking.ReplySubject))
		assert.Equal(t, 1, env.reloadCampaign(t, sc.campaign.ID).RepliedCount)
		assert.Equal(t, models.CampaignLeadStatusReplied, env.campaignLeadStatus(t, sc.campaign.ID, sc.lead.ID))

		// the owner hears about the first reply only
		owner, err := env.profileRepo.ByUserID(ctx, sc.campaign.UserID)
		require.NoError(t, err)
		require.Len(t, env.notifyMailer.sent, 1)
		notice := env.notifyMailer.sent[0]
		assert.Equal(t, owner.Email, notice.To)
		assert.Equal(t, "New reply from Jane Doe", notice.Subject)
		assert.Contains(t, notice.HTML, "Sounds good")
		assert.Contains(t, notice.HTML, "https://app.example.com/api/v1/campaigns/"+sc.campaign.UUID.String()+"/stats")
	})

	t.Run("NotificationFailureDoesNotFailTheWebhook", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.trackingFlow()
		sc := newSentCampaign(t, env)
		owner, err := env.profileRepo.ByUserID(ctx, sc.campaign.UserID)
		require.NoError(t, err)
		env.notifyMailer.failFor[owner.Email] = errors.New("relay down")

		resp, err := flow.TrackReply(ctx, &dto.TrackReplyRequest{CampaignID: sc.campaign.UUID.String(), LeadID: sc.lead.UUID.String()})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, 1, env.reloadCampaign(t, sc.campaign.ID).RepliedCount)
	})

	t.Run("UnknownIDsAreAcknowledged", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.trackingFlow()

		resp, err := flow.TrackReply(ctx, &dto.TrackReplyRequest{CampaignID: uuid.NewString(), LeadID: uuid.NewString()})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Empty(t, env.publisher.types())
	})

	t.Run("MissingIDs", func(t *testing.T) {
		env := newFlowEnv(t)
		flow := env.trackingFlow()

		_, err := flow.TrackReply(ctx, &dto.TrackReplyRequest{CampaignID: uuid.NewString()})
		assert.True(t, businessflow.IsTrackingParamsRequired(err))
	})
}
