// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/app/services"
	"github.com/amirphl/orochi-outreach/config"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/repository"
	"github.com/amirphl/orochi-outreach/utils"
)

// CampaignFlow handles the campaign business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error)
	UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	GetCampaign(ctx context.Context, req *dto.CampaignRequest) (*dto.CampaignDTO, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
	PauseCampaign(ctx context.Context, req *dto.CampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	DeleteCampaign(ctx context.Context, req *dto.CampaignRequest, metadata *ClientMetadata) (*dto.DeleteCampaignResponse, error)
	GetCampaignStats(ctx context.Context, req *dto.CampaignRequest) (*dto.CampaignStatsResponse, error)
	ReplyToLead(ctx context.Context, req *dto.ReplyToLeadRequest, metadata *ClientMetadata) (*dto.ReplyToLeadResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo     repository.CampaignRepository
	campaignLeadRepo repository.CampaignLeadRepository
	leadRepo         repository.LeadRepository
	profileRepo      repository.ProfileRepository
	trackingRepo     repository.EmailTrackingRepository
	linkRepo         repository.LinkTrackingRepository
	gateway          services.CampaignGateway
	cache            services.Cache
	publisher        services.EventPublisher
	cacheConfig      config.CacheConfig
	outreachConfig   config.OutreachConfig
	logger           *zap.Logger
	db               *gorm.DB

	statsGroup singleflight.Group
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	campaignLeadRepo repository.CampaignLeadRepository,
	leadRepo repository.LeadRepository,
	profileRepo repository.ProfileRepository,
	trackingRepo repository.EmailTrackingRepository,
	linkRepo repository.LinkTrackingRepository,
	gateway services.CampaignGateway,
	cache services.Cache,
	publisher services.EventPublisher,
	cacheConfig config.CacheConfig,
	outreachConfig config.OutreachConfig,
	logger *zap.Logger,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo:     campaignRepo,
		campaignLeadRepo: campaignLeadRepo,
		leadRepo:         leadRepo,
		profileRepo:      profileRepo,
		trackingRepo:     trackingRepo,
		linkRepo:         linkRepo,
		gateway:          gateway,
		cache:            cache,
		publisher:        publisher,
		cacheConfig:      cacheConfig,
		outreachConfig:   outreachConfig,
		logger:           logger,
		db:               db,
	}
}

// CreateCampaign stores a draft campaign and a pending participation row for every owned lead
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error) {
	leadUUIDs := make([]uuid.UUID, 0, len(req.LeadIDs))
	seen := make(map[uuid.UUID]struct{}, len(req.LeadIDs))
	for _, raw := range req.LeadIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, NewBusinessError("LEAD_NOT_FOUND", "Lead not found", ErrLeadNotFound)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		leadUUIDs = append(leadUUIDs, id)
	}

	var campaign *models.Campaign
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := ensureProfile(txCtx, s.profileRepo, req.UserID); err != nil {
			return err
		}

		leads, err := s.leadRepo.ListByUUIDs(txCtx, req.UserID, leadUUIDs)
		if err != nil {
			return err
		}

		campaign = &models.Campaign{
			UserID:       req.UserID,
			Name:         strings.TrimSpace(req.Name),
			Subject:      req.Subject,
			EmailContent: req.EmailContent,
			Status:       models.CampaignStatusDraft,
			TotalLeads:   len(leads),
		}
		if err := s.campaignRepo.Save(txCtx, campaign); err != nil {
			return err
		}

		rows := make([]*models.CampaignLead, 0, len(leads))
		for _, lead := range leads {
			rows = append(rows, &models.CampaignLead{
				CampaignID: campaign.ID,
				LeadID:     lead.ID,
				Status:     models.CampaignLeadStatusPending,
			})
		}
		return s.campaignLeadRepo.SaveBatch(txCtx, rows)
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	s.logger.Info("campaign created",
		append(metadata.fields(), zap.String("campaign", campaign.UUID.String()), zap.Int("leads", campaign.TotalLeads))...)

	return &dto.CreateCampaignResponse{
		Message:  "Campaign created successfully",
		Campaign: campaignToDTO(campaign),
	}, nil
}

// UpdateCampaign edits the templates and name of a draft or paused campaign
func (s *CampaignFlowImpl) UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	if req.Name == nil && req.Subject == nil && req.EmailContent == nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_REQUIRED", "At least one field must be provided for update", ErrCampaignUpdateRequired)
	}

	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if !campaign.IsEditable() {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_NOT_ALLOWED", "Campaign cannot be updated in current status", ErrCampaignUpdateNotAllowed)
	}

	if req.Name != nil {
		campaign.Name = strings.TrimSpace(*req.Name)
	}
	if req.Subject != nil {
		campaign.Subject = *req.Subject
	}
	if req.EmailContent != nil {
		campaign.EmailContent = *req.EmailContent
	}
	campaign.UpdatedAt = utils.UTCNowPtr()

	if err := s.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Campaign update failed", err)
	}

	s.logger.Info("campaign updated", append(metadata.fields(), zap.String("campaign", campaign.UUID.String()))...)

	out := campaignToDTO(campaign)
	return &out, nil
}

func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, req *dto.CampaignRequest) (*dto.CampaignDTO, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	out := campaignToDTO(campaign)
	return &out, nil
}

func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	page, limit, offset, err := normalizePage(req.Page, req.Limit)
	if err != nil {
		return nil, NewBusinessError("INVALID_PAGINATION", "Invalid pagination", err)
	}

	filter := models.CampaignFilter{UserID: &req.UserID}
	if req.Status != nil && *req.Status != "" {
		status := models.CampaignStatus(*req.Status)
		filter.Status = &status
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name := strings.TrimSpace(*req.Name)
		filter.Name = &name
	}

	orderBy := "created_at DESC, id DESC"
	if req.OrderBy == "oldest" {
		orderBy = "created_at ASC, id ASC"
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}
	campaigns, err := s.campaignRepo.ByFilter(ctx, filter, orderBy, limit, offset)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	items := make([]dto.CampaignDTO, 0, len(campaigns))
	for _, c := range campaigns {
		items = append(items, campaignToDTO(c))
	}

	return &dto.ListCampaignsResponse{
		Message:    "Campaigns retrieved successfully",
		Items:      items,
		Pagination: paginationInfo(total, page, limit),
	}, nil
}

// PauseCampaign pauses any owned campaign. The provider-side pause is best effort.
func (s *CampaignFlowImpl) PauseCampaign(ctx context.Context, req *dto.CampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	if err := s.campaignRepo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusPaused); err != nil {
		return nil, NewBusinessError("CAMPAIGN_PAUSE_FAILED", "Failed to pause campaign", err)
	}
	campaign.Status = models.CampaignStatusPaused
	campaign.UpdatedAt = utils.UTCNowPtr()

	logger := s.logger.With(zap.String("campaign", campaign.UUID.String())).With(metadata.fields()...)
	if campaign.HasExternalCampaign() && s.gateway != nil {
		if err := s.gateway.SetStatus(ctx, *campaign.ExternalID, services.ExternalStatusPaused); err != nil {
			logger.Warn("failed to pause external campaign", zap.String("external_id", *campaign.ExternalID), zap.Error(err))
		}
	}
	logger.Info("campaign paused")

	publishEvent(ctx, s.publisher, s.logger, services.OutreachEvent{
		Type:       services.EventCampaignPaused,
		CampaignID: campaign.UUID,
		UserID:     &campaign.UserID,
	})

	out := campaignToDTO(campaign)
	return &out, nil
}

// DeleteCampaign removes a non-active campaign with its tracking and participation rows
func (s *CampaignFlowImpl) DeleteCampaign(ctx context.Context, req *dto.CampaignRequest, metadata *ClientMetadata) (*dto.DeleteCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if !campaign.IsDeletable() {
		return nil, NewBusinessError("CAMPAIGN_ACTIVE", "Cannot delete active campaign. Please pause it first.", ErrCampaignActive)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.trackingRepo.DeleteByCampaign(txCtx, campaign.ID); err != nil {
			return err
		}
		if err := s.linkRepo.DeleteByCampaign(txCtx, campaign.ID); err != nil {
			return err
		}
		if err := s.campaignLeadRepo.DeleteByCampaign(txCtx, campaign.ID); err != nil {
			return err
		}
		return s.campaignRepo.DeleteByID(txCtx, campaign.ID)
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_DELETE_FAILED", "Failed to delete campaign", err)
	}

	s.invalidateStats(ctx, campaign.UUID)
	s.logger.Info("campaign deleted", append(metadata.fields(), zap.String("campaign", campaign.UUID.String()))...)

	publishEvent(ctx, s.publisher, s.logger, services.OutreachEvent{
		Type:       services.EventCampaignDeleted,
		CampaignID: campaign.UUID,
		UserID:     &campaign.UserID,
	})

	return &dto.DeleteCampaignResponse{
		Message:      "Campaign deleted successfully",
		CampaignName: campaign.Name,
	}, nil
}

// GetCampaignStats derives engagement numbers from the tracking rows.
// Results are cached briefly and concurrent misses share one query.
func (s *CampaignFlowImpl) GetCampaignStats(ctx context.Context, req *dto.CampaignRequest) (*dto.CampaignStatsResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	key := statsCacheKey(s.cacheConfig, campaign.UUID)
	if cached, ok := s.cachedStats(ctx, key); ok {
		return cached, nil
	}

	v, err, _ := s.statsGroup.Do(key, func() (any, error) {
		stats, err := s.trackingRepo.StatsByCampaign(ctx, campaign.ID)
		if err != nil {
			return nil, err
		}
		resp := &dto.CampaignStatsResponse{
			TotalSent:    stats.Sent,
			TotalOpened:  stats.Opened,
			TotalClicked: stats.Clicked,
			TotalReplied: stats.Replied,
			OpenRate:     percentage(stats.Opened, stats.Sent),
			ClickRate:    percentage(stats.Clicked, stats.Sent),
			ReplyRate:    percentage(stats.Replied, stats.Sent),
		}
		s.storeStats(ctx, key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_STATS_FAILED", "Failed to load campaign stats", err)
	}

	return v.(*dto.CampaignStatsResponse), nil
}

// ReplyToLead answers a lead inside the provider thread of a sent campaign
func (s *CampaignFlowImpl) ReplyToLead(ctx context.Context, req *dto.ReplyToLeadRequest, metadata *ClientMetadata) (*dto.ReplyToLeadResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if !campaign.HasExternalCampaign() || s.gateway == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_EXTERNAL", "Campaign has not been sent through SmartLead", ErrCampaignNotExternal)
	}

	lead, err := getLead(ctx, s.leadRepo, req.LeadUUID, req.UserID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to lookup lead", err)
	}

	tracking, err := s.trackingRepo.ByCampaignAndLead(ctx, campaign.ID, lead.ID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to lookup lead", err)
	}
	if tracking == nil {
		return nil, NewBusinessError("LEAD_NOT_FOUND", "Lead was not sent in this campaign", ErrLeadNotFound)
	}

	externalLeadID := utils.FirstNonEmpty(req.ExternalLeadID, lead.UUID.String())
	if err := s.gateway.ReplyToLead(ctx, *campaign.ExternalID, externalLeadID, req.Message); err != nil {
		s.logger.Error("provider reply failed", append(metadata.fields(), zap.String("campaign", campaign.UUID.String()), zap.Error(err))...)
		return nil, NewBusinessError("REPLY_FAILED", "Failed to send reply", providerError(err))
	}

	return &dto.ReplyToLeadResponse{Message: "Reply sent successfully"}, nil
}

func statsCacheKey(cfg config.CacheConfig, campaignID uuid.UUID) string {
	return services.CacheKey(cfg, "campaign-stats", campaignID.String())
}

func (s *CampaignFlowImpl) cachedStats(ctx context.Context, key string) (*dto.CampaignStatsResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	bs, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var resp dto.CampaignStatsResponse
	if err := json.Unmarshal(bs, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (s *CampaignFlowImpl) storeStats(ctx context.Context, key string, resp *dto.CampaignStatsResponse) {
	if s.cache == nil {
		return
	}
	ttl := s.outreachConfig.StatsCacheTTL
	if ttl <= 0 {
		ttl = utils.DefaultStatsCacheTTL
	}
	bs, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, bs, ttl); err != nil {
		s.logger.Warn("failed to cache campaign stats", zap.Error(err))
	}
}

func (s *CampaignFlowImpl) invalidateStats(ctx context.Context, campaignID uuid.UUID) {
	invalidateStats(ctx, s.cache, s.cacheConfig, campaignID, s.logger)
}

// invalidateStats drops the cached stats of a campaign after its tracking rows changed
func invalidateStats(ctx context.Context, cache services.Cache, cfg config.CacheConfig, campaignID uuid.UUID, logger *zap.Logger) {
	if cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := cache.Delete(ctx, statsCacheKey(cfg, campaignID)); err != nil {
		logger.Warn("failed to invalidate campaign stats", zap.Error(err))
	}
}
