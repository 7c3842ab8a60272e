package businessflow

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/repository"
)

// DashboardFlow aggregates the caller's totals
type DashboardFlow interface {
	GetStats(ctx context.Context, userID uuid.UUID) (*dto.DashboardStatsResponse, error)
}

// DashboardFlowImpl implements the dashboard flow
type DashboardFlowImpl struct {
	leadRepo     repository.LeadRepository
	campaignRepo repository.CampaignRepository
	logger       *zap.Logger
}

// NewDashboardFlow creates a new dashboard flow instance
func NewDashboardFlow(leadRepo repository.LeadRepository, campaignRepo repository.CampaignRepository, logger *zap.Logger) DashboardFlow {
	return &DashboardFlowImpl{
		leadRepo:     leadRepo,
		campaignRepo: campaignRepo,
		logger:       logger,
	}
}

// GetStats reads the lead count and the campaign counters concurrently
func (s *DashboardFlowImpl) GetStats(ctx context.Context, userID uuid.UUID) (*dto.DashboardStatsResponse, error) {
	var (
		totalLeads int64
		counters   *models.CampaignCounters
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.leadRepo.Count(gctx, models.LeadFilter{UserID: &userID})
		totalLeads = n
		return err
	})
	g.Go(func() error {
		c, err := s.campaignRepo.CountersByUser(gctx, userID)
		counters = c
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load dashboard stats", zap.String("user", userID.String()), zap.Error(err))
		return nil, NewBusinessError("DASHBOARD_STATS_FAILED", "Failed to load dashboard stats", err)
	}
	if counters == nil {
		counters = &models.CampaignCounters{}
	}

	return &dto.DashboardStatsResponse{
		TotalLeads:      totalLeads,
		TotalCampaigns:  counters.TotalCampaigns,
		ActiveCampaigns: counters.ActiveCampaigns,
		EmailsSent:      counters.Sent,
		EmailsOpened:    counters.Opened,
		EmailsReplied:   counters.Replied,
		OpenRate:        percentage(counters.Opened, counters.Sent),
		ReplyRate:       percentage(counters.Replied, counters.Sent),
	}, nil
}
