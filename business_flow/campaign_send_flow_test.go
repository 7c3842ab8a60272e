package businessflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/app/services"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
	"github.com/amirphl/orochi-outreach/config"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/utils"
)

type sendHarness struct {
	*flowEnv
	gateway *fakeGateway
	mailer  *fakeMailer
	locker  *businessflow.LocalSendLocker
	flow    businessflow.CampaignSendFlow
}

func newSendHarness(t *testing.T, provider string) *sendHarness {
	t.Helper()
	env := newFlowEnv(t)
	h := &sendHarness{
		flowEnv: env,
		gateway: newFakeGateway(),
		mailer:  &fakeMailer{failFor: map[string]error{}},
		locker:  businessflow.NewLocalSendLocker(),
	}
	h.flow = businessflow.NewCampaignSendFlow(
		env.campaignRepo,
		env.campaignLeadRepo,
		env.trackingRepo,
		h.gateway,
		h.mailer,
		services.NewTemplatePersonalizer(),
		services.NewHTMLTrackingInjector("https://app.example.com"),
		h.locker,
		env.publisher,
		env.cache,
		config.OutreachConfig{Provider: provider, SendLockTTL: time.Minute},
		env.cacheConfig,
		env.logger,
		env.db,
	)
	return h
}

func sendRequest(campaign *models.Campaign) *dto.CampaignRequest {
	return &dto.CampaignRequest{UUID: campaign.UUID.String(), UserID: campaign.UserID}
}

func TestSendCampaignViaSmartLead(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesExternalCampaignAndMarksLeadsSent", func(t *testing.T) {
		h := newSendHarness(t, businessflow.ProviderSmartLead)
		owner := h.owner(t)
		withEmail := h.lead(t, owner, "jane@acme.test")
		withoutEmail := h.lead(t, owner, "")
		malformed := h.lead(t, owner, "not-an-email")
		campaign := h.campaign(t, owner, models.CampaignStatusDraft, withEmail, withoutEmail, malformed)

		resp, err := h.flow.SendCampaign(ctx, sendRequest(campaign), nil)
		require.NoError(t, err)
		require.NotNil(t, resp)

		assert.Equal(t, "Campaign started successfully via SmartLead", resp.Message)
		assert.Equal(t, 1, resp.TotalLeads)
		assert.Equal(t, "active", resp.Status)
		require.NotNil(t, resp.SmartLeadCampaignID)
		assert.Equal(t, "ext-1", *resp.SmartLeadCampaignID)

		require.Len(t, h.gateway.created, 1)
		assert.True(t, strings.HasPrefix(h.gateway.created[0].Name, campaign.Name+" - "))
		require.Len(t, h.gateway.added["ext-1"], 1)
		pushed := h.gateway.added["ext-1"][0]
		assert.Equal(t, "jane@acme.test", pushed.Email)
		assert.Equal(t, "Jane", pushed.FirstName)
		assert.Equal(t, withEmail.UUID.String(), pushed.CustomFields["lead_id"])
		assert.Equal(t, campaign.UUID.String(), pushed.CustomFields["campaign_id"])
		assert.Equal(t, []string{"ext-1:" + services.ExternalStatusStart}, h.gateway.statuses)

		stored := h.reloadCampaign(t, campaign.ID)
		assert.Equal(t, models.CampaignStatusActive, stored.Status)
		assert.Equal(t, 1, stored.SentCount)
		assert.Equal(t, "ext-1", utils.Deref(stored.ExternalID))

		assert.Equal(t, models.CampaignLeadStatusSent, h.campaignLeadStatus(t, campaign.ID, withEmail.ID))
		assert.Equal(t, models.CampaignLeadStatusPending, h.campaignLeadStatus(t, campaign.ID, withoutEmail.ID))
		assert.Equal(t, models.CampaignLeadStatusPending, h.campaignLeadStatus(t, campaign.ID, malformed.ID))
		skipped, err := h.trackingRepo.ByCampaignAndLead(ctx, campaign.ID, malformed.ID)
		require.NoError(t, err)
		assert.Nil(t, skipped)

		tracking, err := h.trackingRepo.ByCampaignAndLead(ctx, campaign.ID, withEmail.ID)
		require.NoError(t, err)
		require.NotNil(t, tracking)
		assert.Equal(t, "Hello Jane", tracking.Subject)
		assert.Equal(t, utils.EmailTypeCampaign, tracking.EmailType)
		assert.Equal(t, "smartlead-ext-1-"+withEmail.UUID.String(), utils.Deref(tracking.ExternalID))

		assert.Contains(t, h.publisher.types(), services.EventCampaignSent)
	})

	t.Run("ReusesExistingExternalCampaign", func(t *testing.T) {
		h := newSendHarness(t, businessflow.ProviderSmartLead)
		owner := h.owner(t)
		lead := h.lead(t, owner, "reuse@acme.test")
		campaign := h.campaign(t, owner, models.CampaignStatusPaused, lead)
		require.NoError(t, h.campaignRepo.SetExternalID(ctx, campaign.ID, "existing-7"))

		resp, err := h.flow.SendCampaign(ctx, sendRequest(campaign), nil)
		require.NoError(t, err)
		assert.Equal(t, "existing-7", utils.Deref(resp.SmartLeadCampaignID))
		assert.Empty(t, h.gateway.created)
		assert.Len(t, h.gateway.added["existing-7"], 1)
	})

	t.Run("ProviderFailureRevertsToDraft", func(t *testing.T) {
		h := newSendHarness(t, businessflow.ProviderSmartLead)
		h.gateway.addErr = &services.GatewayError{StatusCode: 500, Body: "upstream exploded"}
		owner := h.owner(t)
		lead := h.lead(t, owner, "fail@acme.test")
		campaign := h.campaign(t, owner, models.CampaignStatusPaused, lead)

		resp, err := h.flow.SendCampaign(ctx, sendRequest(campaign), nil)
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.True(t, businessflow.IsProviderFailed(err))
		assert.Contains(t, err.Error(), "SmartLead API Error: 500 - upstream exploded")

		stored := h.reloadCampaign(t, campaign.ID)
		assert.Equal(t, models.CampaignStatusDraft, stored.Status)
		// the external id created before the failure is kept for the next attempt
		assert.Equal(t, "ext-1", utils.Deref(stored.ExternalID))
		assert.Equal(t, models.CampaignLeadStatusPending, h.campaignLeadStatus(t, campaign.ID, lead.ID))
	})

	t.Run("RejectsActiveAndCompletedCampaignsWithoutChanges", func(t *testing.T) {
		for _, status := range []models.CampaignStatus{models.CampaignStatusActive, models.CampaignStatusCompleted} {
			t.Run(status.String(), func(t *testing.T) {
				h := newSendHarness(t, businessflow.ProviderSmartLead)
				owner := h.owner(t)
				lead := h.lead(t, owner, "busy@acme.test")
				campaign := h.campaign(t, owner, status, lead)
				before := h.reloadCampaign(t, campaign.ID)

				_, err := h.flow.SendCampaign(ctx, sendRequest(campaign), nil)
				require.Error(t, err)
				assert.True(t, businessflow.IsCampaignNotSendable(err))
				assert.Empty(t, h.gateway.created)
				assert.Empty(t, h.gateway.statuses)

				after := h.reloadCampaign(t, campaign.ID)
				assert.Equal(t, status, after.Status)
				assert.Equal(t, before.SentCount, after.SentCount)
				assert.Equal(t, models.CampaignLeadStatusPending, h.campaignLeadStatus(t, campaign.ID, lead.ID))
				tracking, err := h.trackingRepo.ByCampaignAndLead(ctx, campaign.ID, lead.ID)
				require.NoError(t, err)
				assert.Nil(t, tracking)
			})
		}
	})

	t.Run("SendRefreshesCachedStats", func(t *testing.T) {
		h := newSendHarness(t, businessflow.ProviderSmartLead)
		stats := h.campaignFlow(h.gateway)
		owner := h.owner(t)
		lead := h.lead(t, owner, "fresh@acme.test")
		campaign := h.campaign(t, owner, models.CampaignStatusDraft, lead)

		before, err := stats.GetCampaignStats(ctx, sendRequest(campaign))
		require.NoError(t, err)
		assert.Zero(t, before.TotalSent)

		_, err = h.flow.SendCampaign(ctx, sendRequest(campaign), nil)
		require.NoError(t, err)

		after, err := stats.GetCampaignStats(ctx, sendRequest(campaign))
		require.NoError(t, err)
		assert.EqualValues(t, 1, after.TotalSent)
	})

	t.Run("RejectsCampaignWithoutPendingLeads", func(t *testing.T) {
		h := newSendHarness(t, businessflow.ProviderSmartLead)
		owner := h.owner(t)
		campaign := h.campaign(t, owner, models.CampaignStatusDraft)

		_, err := h.flow.SendCampaign(ctx, sendRequest(campaign), nil)
		require.Error(t, err)
		assert.True(t, businessflow.IsNoPendingLeads(err))
	})

	t.Run("RejectsConcurrentSend", func(t *testing.T) {
		h := newSendHarness(t, businessflow.ProviderSmartLead)
		owner := h.owner(t)
		lead := h.lead(t, owner, "busy@acme.test")
		campaign := h.campaign(t, owner, models.CampaignStatusDraft, lead)

		unlock, ok, err := h.locker.TryLock(ctx, campaign.UUID.String(), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		defer unlock()

		_, err = h.flow.SendCampaign(ctx, sendRequest(campaign), nil)
		require.Error(t, err)
		assert.True(t, businessflow.IsCampaignSendInProgress(err))
		assert.Equal(t, models.CampaignStatusDraft, h.reloadCampaign(t, campaign.ID).Status)
	})

	t.Run("ForeignCampaignIsNotFound", func(t *testing.T) {
		h := newSendHarness(t, businessflow.ProviderSmartLead)
		owner := h.owner(t)
		stranger := h.owner(t)
		lead := h.lead(t, owner, "mine@acme.test")
		campaign := h.campaign(t, owner, models.CampaignStatusDraft, lead)

		_, err := h.flow.SendCampaign(ctx, &dto.CampaignRequest{UUID: campaign.UUID.String(), UserID: stranger}, nil)
		require.Error(t, err)
		assert.True(t, businessflow.IsCampaignNotFound(err))
	})
}

func TestSendCampaignViaSMTP(t *testing.T) {
	ctx := context.Background()

	t.Run("FailedLeadsStayPending", func(t *testing.T) {
		h := newSendHarness(t, businessflow.ProviderSMTP)
		owner := h.owner(t)
		good := h.lead(t, owner, "good@acme.test")
		bad := h.lead(t, owner, "bad@acme.test")
		h.mailer.failFor["bad@acme.test"] = errors.New("mailbox unavailable")
		campaign := h.campaign(t, owner, models.CampaignStatusDraft, good, bad)

		resp, err := h.flow.SendCampaign(ctx, sendRequest(campaign), nil)
		require.NoError(t, err)
		assert.Equal(t, "Campaign started successfully via SMTP", resp.Message)
		assert.Equal(t, 1, resp.TotalLeads)
		assert.Nil(t, resp.SmartLeadCampaignID)
		assert.Empty(t, h.gateway.created)

		require.Len(t, h.mailer.sent, 1)
		msg := h.mailer.sent[0]
		assert.Equal(t, "good@acme.test", msg.To)
		assert.Equal(t, "Hello Jane", msg.Subject)
		assert.Contains(t, msg.HTML, "https://app.example.com/track/open?campaign="+campaign.UUID.String())
		assert.Contains(t, msg.HTML, "https://app.example.com/track/click?id="+campaign.UUID.String()+"_"+good.UUID.String()+"_")
		assert.NotContains(t, msg.HTML, "{{first_name}}")

		assert.Equal(t, models.CampaignLeadStatusSent, h.campaignLeadStatus(t, campaign.ID, good.ID))
		assert.Equal(t, models.CampaignLeadStatusPending, h.campaignLeadStatus(t, campaign.ID, bad.ID))

		stored := h.reloadCampaign(t, campaign.ID)
		assert.Equal(t, models.CampaignStatusActive, stored.Status)
		assert.Nil(t, stored.ExternalID)

		tracking, err := h.trackingRepo.ByCampaignAndLead(ctx, campaign.ID, good.ID)
		require.NoError(t, err)
		require.NotNil(t, tracking)
		assert.Equal(t, "<msg-1@mail.test>", utils.Deref(tracking.ExternalID))
	})

	t.Run("AllDeliveriesFailing", func(t *testing.T) {
		h := newSendHarness(t, businessflow.ProviderSMTP)
		owner := h.owner(t)
		lead := h.lead(t, owner, "down@acme.test")
		h.mailer.failFor["down@acme.test"] = errors.New("connection refused")
		campaign := h.campaign(t, owner, models.CampaignStatusPaused, lead)

		_, err := h.flow.SendCampaign(ctx, sendRequest(campaign), nil)
		require.Error(t, err)
		assert.True(t, businessflow.IsProviderFailed(err))
		assert.Equal(t, models.CampaignStatusDraft, h.reloadCampaign(t, campaign.ID).Status)
	})
}
