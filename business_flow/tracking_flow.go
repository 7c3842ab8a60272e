package businessflow

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/app/services"
	"github.com/amirphl/orochi-outreach/config"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/repository"
	"github.com/amirphl/orochi-outreach/utils"
)

// TrackingFlow records engagement coming from recipients.
// Lookups that do not resolve are logged and otherwise ignored.
type TrackingFlow interface {
	TrackOpen(ctx context.Context, req *dto.TrackOpenRequest) error
	// TrackClick returns the URL to redirect to
	TrackClick(ctx context.Context, req *dto.TrackClickRequest) (string, error)
	TrackReply(ctx context.Context, req *dto.TrackReplyRequest) (*dto.TrackReplyResponse, error)
}

// TrackingFlowImpl implements the tracking flow
type TrackingFlowImpl struct {
	campaignRepo     repository.CampaignRepository
	leadRepo         repository.LeadRepository
	campaignLeadRepo repository.CampaignLeadRepository
	trackingRepo     repository.EmailTrackingRepository
	linkRepo         repository.LinkTrackingRepository
	profileRepo      repository.ProfileRepository
	cache            services.Cache
	publisher        services.EventPublisher
	notifier         services.NotificationService
	cacheConfig      config.CacheConfig
	logger           *zap.Logger
	db               *gorm.DB
}

// NewTrackingFlow creates a new tracking flow instance
func NewTrackingFlow(
	campaignRepo repository.CampaignRepository,
	leadRepo repository.LeadRepository,
	campaignLeadRepo repository.CampaignLeadRepository,
	trackingRepo repository.EmailTrackingRepository,
	linkRepo repository.LinkTrackingRepository,
	profileRepo repository.ProfileRepository,
	cache services.Cache,
	publisher services.EventPublisher,
	notifier services.NotificationService,
	cacheConfig config.CacheConfig,
	logger *zap.Logger,
	db *gorm.DB,
) TrackingFlow {
	return &TrackingFlowImpl{
		campaignRepo:     campaignRepo,
		leadRepo:         leadRepo,
		campaignLeadRepo: campaignLeadRepo,
		trackingRepo:     trackingRepo,
		linkRepo:         linkRepo,
		profileRepo:      profileRepo,
		cache:            cache,
		publisher:        publisher,
		notifier:         notifier,
		cacheConfig:      cacheConfig,
		logger:           logger,
		db:               db,
	}
}

// TrackOpen stamps the first open of a sent email and bumps the campaign's open counter once
func (s *TrackingFlowImpl) TrackOpen(ctx context.Context, req *dto.TrackOpenRequest) error {
	campaign, lead, err := s.resolve(ctx, req.CampaignID, req.LeadID)
	if err != nil {
		s.logger.Debug("open not recorded", zap.String("campaign", req.CampaignID), zap.String("lead", req.LeadID), zap.Error(err))
		return err
	}

	now := utils.UTCNow()
	changed := false
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		n, err := s.trackingRepo.SetOpenedOnce(txCtx, campaign.ID, lead.ID, now)
		if err != nil || n == 0 {
			return err
		}
		changed = true
		if _, err := s.campaignLeadRepo.Advance(txCtx, campaign.ID, lead.ID, models.CampaignLeadStatusOpened, now); err != nil {
			return err
		}
		return s.campaignRepo.IncrementOpened(txCtx, campaign.ID)
	})
	if err != nil {
		s.logger.Error("failed to record open", zap.String("campaign", campaign.UUID.String()), zap.String("lead", lead.UUID.String()), zap.Error(err))
		return err
	}
	if !changed {
		return nil
	}

	s.afterEngagement(ctx, services.EventEmailOpened, "open", campaign, lead, nil)
	return nil
}

// TrackClick logs the click and stamps the first click. Recording failures never block the redirect.
func (s *TrackingFlowImpl) TrackClick(ctx context.Context, req *dto.TrackClickRequest) (string, error) {
	if strings.TrimSpace(req.TrackingID) == "" || strings.TrimSpace(req.URL) == "" {
		return "", NewBusinessError("MISSING_PARAMETERS", "Missing parameters", ErrTrackingParamsRequired)
	}
	target, err := url.Parse(req.URL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return "", NewBusinessError("INVALID_REDIRECT_URL", "Invalid redirect URL", ErrInvalidRedirectURL)
	}
	redirect := target.String()

	campaignUUID, leadUUID, _, err := services.ParseClickTrackingID(req.TrackingID)
	if err != nil {
		s.logger.Debug("click id not recognised", zap.String("tracking_id", req.TrackingID), zap.Error(err))
		return redirect, nil
	}
	campaign, lead, err := s.resolve(ctx, campaignUUID.String(), leadUUID.String())
	if err != nil {
		s.logger.Debug("click not recorded", zap.String("tracking_id", req.TrackingID), zap.Error(err))
		return redirect, nil
	}

	now := utils.UTCNow()
	click := &models.LinkTracking{
		CampaignID:  campaign.ID,
		LeadID:      lead.ID,
		TrackingID:  req.TrackingID,
		OriginalURL: redirect,
		IPAddress:   utils.FirstNonEmpty(req.IPAddress, utils.UnknownClientValue),
		UserAgent:   utils.FirstNonEmpty(req.UserAgent, utils.UnknownClientValue),
		ClickedAt:   now,
	}
	// the click log and the first-click stamp are independent writes
	if err := s.linkRepo.Save(ctx, click); err != nil {
		s.logger.Error("failed to log click", zap.String("tracking_id", req.TrackingID), zap.Error(err))
	}
	n, err := s.trackingRepo.SetClickedOnce(ctx, campaign.ID, lead.ID, now)
	if err != nil {
		s.logger.Error("failed to stamp first click", zap.String("tracking_id", req.TrackingID), zap.Error(err))
		return redirect, nil
	}
	if n > 0 {
		s.afterEngagement(ctx, services.EventEmailClicked, "click", campaign, lead, map[string]any{"url": redirect})
	}
	return redirect, nil
}

// TrackReply stamps the first reply and moves the lead to replied
func (s *TrackingFlowImpl) TrackReply(ctx context.Context, req *dto.TrackReplyRequest) (*dto.TrackReplyResponse, error) {
	if strings.TrimSpace(req.CampaignID) == "" || strings.TrimSpace(req.LeadID) == "" {
		return nil, NewBusinessError("MISSING_PARAMETERS", "Missing required parameters", ErrTrackingParamsRequired)
	}

	campaign, lead, err := s.resolve(ctx, req.CampaignID, req.LeadID)
	if err != nil {
		if IsCampaignNotFound(err) || IsLeadNotFound(err) {
			s.logger.Debug("reply not recorded", zap.String("campaign", req.CampaignID), zap.String("lead", req.LeadID), zap.Error(err))
			return &dto.TrackReplyResponse{Success: true}, nil
		}
		return nil, NewBusinessError("REPLY_TRACKING_FAILED", "Internal server error", err)
	}

	now := utils.UTCNow()
	changed := false
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		n, err := s.trackingRepo.SetRepliedOnce(txCtx, campaign.ID, lead.ID, now, req.ReplySubject, req.ReplyContent)
		if err != nil || n == 0 {
			return err
		}
		changed = true
		if _, err := s.campaignLeadRepo.Advance(txCtx, campaign.ID, lead.ID, models.CampaignLeadStatusReplied, now); err != nil {
			return err
		}
		return s.campaignRepo.IncrementReplied(txCtx, campaign.ID)
	})
	if err != nil {
		s.logger.Error("failed to record reply", zap.String("campaign", campaign.UUID.String()), zap.String("lead", lead.UUID.String()), zap.Error(err))
		return nil, NewBusinessError("REPLY_TRACKING_FAILED", "Internal server error", err)
	}

	if changed {
		s.afterEngagement(ctx, services.EventEmailReplied, "reply", campaign, lead, nil)
		s.notifyOwner(ctx, campaign, lead, req)
	}
	return &dto.TrackReplyResponse{Success: true}, nil
}

// notifyOwner emails the campaign owner; owners without a profile email are skipped
func (s *TrackingFlowImpl) notifyOwner(ctx context.Context, campaign *models.Campaign, lead *models.Lead, req *dto.TrackReplyRequest) {
	if s.notifier == nil {
		return
	}
	profile, err := s.profileRepo.ByUserID(ctx, campaign.UserID)
	if err != nil {
		s.logger.Warn("failed to load owner profile for reply notification", zap.String("campaign", campaign.UUID.String()), zap.Error(err))
		return
	}
	if profile == nil || profile.Email == "" {
		return
	}

	err = s.notifier.NotifyReply(ctx, services.ReplyNotification{
		OwnerEmail:   profile.Email,
		CampaignID:   campaign.UUID,
		CampaignName: campaign.Name,
		LeadName:     lead.DisplayName(),
		LeadEmail:    lead.Email,
		ReplySubject: utils.Deref(req.ReplySubject),
		ReplyContent: utils.Deref(req.ReplyContent),
	})
	if err != nil {
		s.logger.Warn("reply notification failed", zap.String("campaign", campaign.UUID.String()), zap.Error(err))
	}
}

// resolve maps public ids to a campaign and a lead of the same owner
func (s *TrackingFlowImpl) resolve(ctx context.Context, campaignID, leadID string) (*models.Campaign, *models.Lead, error) {
	cid, err := uuid.Parse(strings.TrimSpace(campaignID))
	if err != nil {
		return nil, nil, ErrCampaignNotFound
	}
	lid, err := uuid.Parse(strings.TrimSpace(leadID))
	if err != nil {
		return nil, nil, ErrLeadNotFound
	}

	campaign, err := s.campaignRepo.ByUUID(ctx, cid)
	if err != nil {
		return nil, nil, err
	}
	if campaign == nil {
		return nil, nil, ErrCampaignNotFound
	}

	leads, err := s.leadRepo.ByFilter(ctx, models.LeadFilter{UUID: &lid, UserID: &campaign.UserID}, "", 1, 0)
	if err != nil {
		return nil, nil, err
	}
	if len(leads) == 0 {
		return nil, nil, ErrLeadNotFound
	}
	return campaign, leads[0], nil
}

func (s *TrackingFlowImpl) afterEngagement(ctx context.Context, eventType, kind string, campaign *models.Campaign, lead *models.Lead, data map[string]any) {
	services.RecordEngagement(kind)
	invalidateStats(ctx, s.cache, s.cacheConfig, campaign.UUID, s.logger)
	publishEvent(ctx, s.publisher, s.logger, services.OutreachEvent{
		Type:       eventType,
		CampaignID: campaign.UUID,
		LeadID:     &lead.UUID,
		UserID:     &campaign.UserID,
		Data:       data,
	})
}
