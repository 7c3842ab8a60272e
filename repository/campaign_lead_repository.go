package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/models"
)

// stageColumns maps a campaign lead status to the timestamp it stamps
var stageColumns = map[models.CampaignLeadStatus]string{
	models.CampaignLeadStatusSent:    "sent_at",
	models.CampaignLeadStatusOpened:  "opened_at",
	models.CampaignLeadStatusReplied: "replied_at",
}

// CampaignLeadRepositoryImpl implements the CampaignLeadRepository interface
type CampaignLeadRepositoryImpl struct {
	*BaseRepository[models.CampaignLead, models.CampaignLeadFilter]
}

// NewCampaignLeadRepository creates a new campaign lead repository
func NewCampaignLeadRepository(db *gorm.DB) CampaignLeadRepository {
	return &CampaignLeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignLead, models.CampaignLeadFilter](db),
	}
}

// PendingWithLeads returns the pending rows of a campaign with their leads loaded
func (r *CampaignLeadRepositoryImpl) PendingWithLeads(ctx context.Context, campaignID uint) ([]*models.CampaignLead, error) {
	db := r.getDB(ctx)

	var rows []*models.CampaignLead
	err := db.Preload("Lead").
		Where("campaign_id = ? AND status = ?", campaignID, models.CampaignLeadStatusPending).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load pending leads of campaign %d: %w", campaignID, err)
	}
	return rows, nil
}

func (r *CampaignLeadRepositoryImpl) MarkSent(ctx context.Context, campaignID uint, leadIDs []uint, at time.Time) (int64, error) {
	if len(leadIDs) == 0 {
		return 0, nil
	}

	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.CampaignLead{}).
			Where("campaign_id = ? AND lead_id IN ? AND status = ?", campaignID, leadIDs, models.CampaignLeadStatusPending).
			UpdateColumns(map[string]any{
				"status":  models.CampaignLeadStatusSent,
				"sent_at": at,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark campaign %d leads sent: %w", campaignID, res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}

func (r *CampaignLeadRepositoryImpl) Advance(ctx context.Context, campaignID, leadID uint, next models.CampaignLeadStatus, at time.Time) (int64, error) {
	from := models.PredecessorsOf(next)
	if len(from) == 0 {
		return 0, fmt.Errorf("no status can move to %s", next)
	}

	values := map[string]any{"status": next}
	if column, ok := stageColumns[next]; ok {
		values[column] = at
	}

	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.CampaignLead{}).
			Where("campaign_id = ? AND lead_id = ? AND status IN ?", campaignID, leadID, from).
			UpdateColumns(values)
		if res.Error != nil {
			return fmt.Errorf("failed to move campaign lead to %s: %w", next, res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}

func (r *CampaignLeadRepositoryImpl) DeleteByCampaign(ctx context.Context, campaignID uint) error {
	_, err := r.deleteWhere(ctx, "campaign_id = ?", campaignID)
	return err
}

func (r *CampaignLeadRepositoryImpl) DeleteByLead(ctx context.Context, leadID uint) error {
	_, err := r.deleteWhere(ctx, "lead_id = ?", leadID)
	return err
}

// ByFilter retrieves campaign leads based on filter criteria
func (r *CampaignLeadRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignLeadFilter, orderBy string, limit, offset int) ([]*models.CampaignLead, error) {
	db := r.getDB(ctx)

	var rows []*models.CampaignLead
	query := paginate(r.applyFilter(db, filter), orderBy, limit, offset)
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list campaign leads: %w", err)
	}
	return rows, nil
}

// Count returns the number of campaign leads matching the filter
func (r *CampaignLeadRepositoryImpl) Count(ctx context.Context, filter models.CampaignLeadFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.CampaignLead{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count campaign leads: %w", err)
	}
	return count, nil
}

// Exists checks if any campaign lead matching the filter exists
func (r *CampaignLeadRepositoryImpl) Exists(ctx context.Context, filter models.CampaignLeadFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *CampaignLeadRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignLeadFilter) *gorm.DB {
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.LeadID != nil {
		db = db.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	return db
}
