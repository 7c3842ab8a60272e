package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/app/services"
	"github.com/amirphl/orochi-outreach/config"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/repository"
	"github.com/amirphl/orochi-outreach/utils"
)

// Delivery providers
const (
	ProviderSmartLead = "smartlead"
	ProviderSMTP      = "smtp"
)

// smtpSendConcurrency bounds parallel SMTP deliveries of one campaign
const smtpSendConcurrency = 4

// CampaignSendFlow hands a draft or paused campaign to the delivery provider
type CampaignSendFlow interface {
	SendCampaign(ctx context.Context, req *dto.CampaignRequest, metadata *ClientMetadata) (*dto.SendCampaignResponse, error)
}

// CampaignSendFlowImpl implements the campaign send pipeline
type CampaignSendFlowImpl struct {
	campaignRepo     repository.CampaignRepository
	campaignLeadRepo repository.CampaignLeadRepository
	trackingRepo     repository.EmailTrackingRepository
	gateway          services.CampaignGateway
	mailer           services.Mailer
	personalizer     services.Personalizer
	injector         services.TrackingInjector
	locker           SendLocker
	publisher        services.EventPublisher
	cache            services.Cache
	outreachConfig   config.OutreachConfig
	cacheConfig      config.CacheConfig
	logger           *zap.Logger
	db               *gorm.DB
}

// NewCampaignSendFlow creates a new campaign send flow instance
func NewCampaignSendFlow(
	campaignRepo repository.CampaignRepository,
	campaignLeadRepo repository.CampaignLeadRepository,
	trackingRepo repository.EmailTrackingRepository,
	gateway services.CampaignGateway,
	mailer services.Mailer,
	personalizer services.Personalizer,
	injector services.TrackingInjector,
	locker SendLocker,
	publisher services.EventPublisher,
	cache services.Cache,
	outreachConfig config.OutreachConfig,
	cacheConfig config.CacheConfig,
	logger *zap.Logger,
	db *gorm.DB,
) CampaignSendFlow {
	return &CampaignSendFlowImpl{
		campaignRepo:     campaignRepo,
		campaignLeadRepo: campaignLeadRepo,
		trackingRepo:     trackingRepo,
		gateway:          gateway,
		mailer:           mailer,
		personalizer:     personalizer,
		injector:         injector,
		locker:           locker,
		publisher:        publisher,
		cache:            cache,
		outreachConfig:   outreachConfig,
		cacheConfig:      cacheConfig,
		logger:           logger,
		db:               db,
	}
}

// delivery is one lead that the provider accepted
type delivery struct {
	campaignLead *models.CampaignLead
	subject      string
	content      string
	externalID   string
}

// SendCampaign runs the send pipeline. Provider failures revert the campaign to draft.
func (s *CampaignSendFlowImpl) SendCampaign(ctx context.Context, req *dto.CampaignRequest, metadata *ClientMetadata) (*dto.SendCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if !campaign.IsSendable() {
		return nil, NewBusinessError("CAMPAIGN_NOT_SENDABLE", "Campaign cannot be started", ErrCampaignNotSendable)
	}

	ttl := s.outreachConfig.SendLockTTL
	if ttl <= 0 {
		ttl = utils.DefaultSendLockTTL
	}
	unlock, ok, err := s.locker.TryLock(ctx, campaign.UUID.String(), ttl)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SEND_LOCK_FAILED", "Failed to lock campaign for sending", err)
	}
	if !ok {
		return nil, NewBusinessError("CAMPAIGN_SEND_IN_PROGRESS", "Campaign send already in progress", ErrCampaignSendInProgress)
	}
	defer unlock()

	// a concurrent send may have finished between the first read and the lock
	campaign, err = getCampaign(ctx, s.campaignRepo, req.UUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if !campaign.IsSendable() {
		return nil, NewBusinessError("CAMPAIGN_NOT_SENDABLE", "Campaign cannot be started", ErrCampaignNotSendable)
	}

	pending, err := s.campaignLeadRepo.PendingWithLeads(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LEADS_LOOKUP_FAILED", "Failed to fetch leads", err)
	}
	sendable := make([]*models.CampaignLead, 0, len(pending))
	for _, cl := range pending {
		if cl.Lead != nil && cl.Lead.HasSendableEmail() {
			sendable = append(sendable, cl)
		}
	}
	if len(sendable) == 0 {
		return nil, NewBusinessError("NO_PENDING_LEADS", "No pending leads to send to", ErrNoPendingLeads)
	}

	provider := s.provider()
	logger := s.logger.With(
		zap.String("campaign", campaign.UUID.String()),
		zap.String("provider", provider),
		zap.Int("leads", len(sendable)),
	).With(metadata.fields()...)

	var (
		externalCampaignID *string
		deliveries         []delivery
	)
	switch provider {
	case ProviderSMTP:
		deliveries, err = s.sendViaSMTP(ctx, campaign, sendable, logger)
	default:
		var extID string
		extID, deliveries, err = s.sendViaSmartLead(ctx, campaign, sendable, logger)
		if extID != "" {
			externalCampaignID = &extID
		}
	}
	if err != nil {
		services.RecordCampaignSend(provider, err, 0)
		s.revertToDraft(ctx, campaign, logger)
		logger.Error("campaign send failed", zap.Error(err))
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to start campaign", providerError(err))
	}

	if err := s.recordDeliveries(ctx, campaign, deliveries); err != nil {
		services.RecordCampaignSend(provider, err, 0)
		s.revertToDraft(ctx, campaign, logger)
		logger.Error("failed to record campaign deliveries", zap.Error(err))
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to start campaign", err)
	}

	services.RecordCampaignSend(provider, nil, len(deliveries))
	invalidateStats(ctx, s.cache, s.cacheConfig, campaign.UUID, s.logger)
	logger.Info("campaign started", zap.Int("sent", len(deliveries)))

	publishEvent(ctx, s.publisher, s.logger, services.OutreachEvent{
		Type:       services.EventCampaignSent,
		CampaignID: campaign.UUID,
		UserID:     &campaign.UserID,
		Data: map[string]any{
			"provider":    provider,
			"total_leads": len(deliveries),
			"external_id": utils.Deref(externalCampaignID),
		},
	})

	message := "Campaign started successfully via SmartLead"
	if provider == ProviderSMTP {
		message = "Campaign started successfully via SMTP"
	}

	return &dto.SendCampaignResponse{
		Message:             message,
		SmartLeadCampaignID: externalCampaignID,
		TotalLeads:          len(deliveries),
		Status:              models.CampaignStatusActive.String(),
	}, nil
}

func (s *CampaignSendFlowImpl) provider() string {
	if s.outreachConfig.Provider == ProviderSMTP {
		return ProviderSMTP
	}
	return ProviderSmartLead
}

// sendViaSmartLead creates or reuses the external campaign, pushes the leads and starts it.
// A newly created external id is persisted before the leads are pushed.
func (s *CampaignSendFlowImpl) sendViaSmartLead(ctx context.Context, campaign *models.Campaign, leads []*models.CampaignLead, logger *zap.Logger) (string, []delivery, error) {
	if s.gateway == nil {
		return "", nil, errors.New("smartlead gateway is not configured")
	}

	externalID := utils.Deref(campaign.ExternalID)
	if externalID == "" {
		created, err := s.gateway.CreateCampaign(ctx, services.CreateExternalCampaignRequest{
			Name:    fmt.Sprintf("%s - %s", campaign.Name, utils.UTCNowRFC3339()),
			Subject: campaign.Subject,
			Body:    campaign.EmailContent,
		})
		if err != nil {
			return "", nil, err
		}
		externalID = created.ID
		if err := s.campaignRepo.SetExternalID(ctx, campaign.ID, externalID); err != nil {
			return externalID, nil, fmt.Errorf("failed to store external campaign id: %w", err)
		}
		campaign.ExternalID = &externalID
		logger.Info("created external campaign", zap.String("external_id", externalID))
	}

	externalLeads := make([]services.ExternalLead, 0, len(leads))
	for _, cl := range leads {
		externalLeads = append(externalLeads, toExternalLead(campaign, cl.Lead))
	}

	if err := s.gateway.AddLeads(ctx, externalID, externalLeads); err != nil {
		return externalID, nil, err
	}
	if err := s.gateway.SetStatus(ctx, externalID, services.ExternalStatusStart); err != nil {
		return externalID, nil, err
	}

	deliveries := make([]delivery, 0, len(leads))
	for _, cl := range leads {
		deliveries = append(deliveries, delivery{
			campaignLead: cl,
			subject:      s.personalizer.Personalize(campaign.Subject, cl.Lead),
			content:      s.personalizer.Personalize(campaign.EmailContent, cl.Lead),
			externalID:   fmt.Sprintf("smartlead-%s-%s", externalID, cl.Lead.UUID),
		})
	}
	return externalID, deliveries, nil
}

// sendViaSMTP delivers each personalized, tracked message. Failed leads stay pending.
func (s *CampaignSendFlowImpl) sendViaSMTP(ctx context.Context, campaign *models.Campaign, leads []*models.CampaignLead, logger *zap.Logger) ([]delivery, error) {
	if s.mailer == nil {
		return nil, errors.New("smtp mailer is not configured")
	}

	results := make([]*delivery, len(leads))
	failures := make([]error, len(leads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(smtpSendConcurrency)
	for i, cl := range leads {
		g.Go(func() error {
			subject := s.personalizer.Personalize(campaign.Subject, cl.Lead)
			body := s.injector.Inject(s.personalizer.Personalize(campaign.EmailContent, cl.Lead), campaign.UUID, cl.Lead.UUID)

			messageID, err := s.mailer.Send(gctx, services.OutgoingEmail{
				To:      strings.TrimSpace(cl.Lead.Email),
				Subject: subject,
				HTML:    body,
			})
			if err != nil {
				failures[i] = err
				logger.Warn("lead delivery failed", zap.String("lead", cl.Lead.UUID.String()), zap.Error(err))
				return nil
			}
			results[i] = &delivery{campaignLead: cl, subject: subject, content: body, externalID: messageID}
			return nil
		})
	}
	_ = g.Wait()

	deliveries := make([]delivery, 0, len(leads))
	for _, d := range results {
		if d != nil {
			deliveries = append(deliveries, *d)
		}
	}
	if len(deliveries) == 0 {
		return nil, fmt.Errorf("all %d deliveries failed: %w", len(leads), errors.Join(failures...))
	}
	return deliveries, nil
}

// recordDeliveries writes the campaign, participation and tracking changes in one transaction
func (s *CampaignSendFlowImpl) recordDeliveries(ctx context.Context, campaign *models.Campaign, deliveries []delivery) error {
	now := utils.UTCNow()

	leadIDs := make([]uint, 0, len(deliveries))
	rows := make([]*models.EmailTracking, 0, len(deliveries))
	for _, d := range deliveries {
		leadIDs = append(leadIDs, d.campaignLead.LeadID)
		externalID := d.externalID
		rows = append(rows, &models.EmailTracking{
			CampaignID: campaign.ID,
			LeadID:     d.campaignLead.LeadID,
			Subject:    d.subject,
			Content:    d.content,
			EmailType:  utils.EmailTypeCampaign,
			ExternalID: &externalID,
			SentAt:     now,
		})
	}

	return repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.campaignRepo.MarkActive(txCtx, campaign.ID, len(deliveries)); err != nil {
			return err
		}
		if _, err := s.campaignLeadRepo.MarkSent(txCtx, campaign.ID, leadIDs, now); err != nil {
			return err
		}
		return s.trackingRepo.SaveBatch(txCtx, rows)
	})
}

func (s *CampaignSendFlowImpl) revertToDraft(ctx context.Context, campaign *models.Campaign, logger *zap.Logger) {
	revertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.campaignRepo.UpdateStatus(revertCtx, campaign.ID, models.CampaignStatusDraft); err != nil {
		logger.Error("failed to revert campaign to draft", zap.Error(err))
	}
}

// toExternalLead maps a lead to the provider shape with name and company fallbacks
func toExternalLead(campaign *models.Campaign, lead *models.Lead) services.ExternalLead {
	first, rest := "", ""
	if fields := strings.Fields(lead.ContactName); len(fields) > 0 {
		first, rest = fields[0], strings.Join(fields[1:], " ")
	}

	return services.ExternalLead{
		Email:       strings.TrimSpace(lead.Email),
		FirstName:   utils.FirstNonEmpty(lead.FirstName, first),
		LastName:    utils.FirstNonEmpty(lead.LastName, rest),
		CompanyName: utils.FirstNonEmpty(lead.CompanyName, lead.Company),
		Phone:       lead.Phone,
		Website:     lead.CompanyWebsite,
		CustomFields: map[string]any{
			"title":       utils.FirstNonEmpty(lead.Title, lead.Position),
			"industry":    lead.Industry,
			"location":    lead.Location,
			"lead_id":     lead.UUID.String(),
			"campaign_id": campaign.UUID.String(),
		},
	}
}
