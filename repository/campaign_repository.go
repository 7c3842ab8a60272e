package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/utils"
)

// CampaignRepositoryImpl implements the CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByUUIDForUser retrieves a campaign owned by the user, nil when missing or foreign
func (r *CampaignRepositoryImpl) ByUUIDForUser(ctx context.Context, userID, campaignUUID uuid.UUID) (*models.Campaign, error) {
	campaigns, err := r.ByFilter(ctx, models.CampaignFilter{UUID: &campaignUUID, UserID: &userID}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		return nil, nil
	}
	return campaigns[0], nil
}

// ByUUID retrieves a campaign regardless of owner, used by the public tracking surface
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, campaignUUID uuid.UUID) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	if err := db.Where("uuid = ?", campaignUUID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign %s: %w", campaignUUID, err)
	}
	return &campaign, nil
}

// Update saves every column of the campaign
func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign *models.Campaign) error {
	return r.write(ctx, func(db *gorm.DB) error {
		if err := db.Save(campaign).Error; err != nil {
			return fmt.Errorf("failed to update campaign %d: %w", campaign.ID, err)
		}
		return nil
	})
}

// UpdateStatus updates only the status of a campaign
func (r *CampaignRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
	return r.updateColumns(ctx, id, map[string]any{"status": status})
}

// SetExternalID stores the provider-side campaign id
func (r *CampaignRepositoryImpl) SetExternalID(ctx context.Context, id uint, externalID string) error {
	return r.updateColumns(ctx, id, map[string]any{"external_id": externalID})
}

func (r *CampaignRepositoryImpl) MarkActive(ctx context.Context, id uint, sent int) error {
	return r.updateColumns(ctx, id, map[string]any{
		"status":     models.CampaignStatusActive,
		"sent_count": gorm.Expr("sent_count + ?", sent),
	})
}

func (r *CampaignRepositoryImpl) IncrementOpened(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, map[string]any{"opened_count": gorm.Expr("opened_count + 1")})
}

func (r *CampaignRepositoryImpl) IncrementReplied(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, map[string]any{"replied_count": gorm.Expr("replied_count + 1")})
}

func (r *CampaignRepositoryImpl) updateColumns(ctx context.Context, id uint, values map[string]any) error {
	values["updated_at"] = utils.UTCNow()
	return r.write(ctx, func(db *gorm.DB) error {
		err := db.Model(&models.Campaign{}).
			Where("id = ?", id).
			UpdateColumns(values).Error
		if err != nil {
			return fmt.Errorf("failed to update campaign %d: %w", id, err)
		}
		return nil
	})
}

// CountersByUser sums the denormalized counters of all the user's campaigns
func (r *CampaignRepositoryImpl) CountersByUser(ctx context.Context, userID uuid.UUID) (*models.CampaignCounters, error) {
	db := r.getDB(ctx)

	var counters models.CampaignCounters
	err := db.Model(&models.Campaign{}).
		Select(
			"COUNT(*) AS total_campaigns, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active_campaigns, "+
				"COALESCE(SUM(sent_count), 0) AS sent, "+
				"COALESCE(SUM(opened_count), 0) AS opened, "+
				"COALESCE(SUM(replied_count), 0) AS replied",
			models.CampaignStatusActive,
		).
		Where("user_id = ?", userID).
		Scan(&counters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate campaign counters: %w", err)
	}
	return &counters, nil
}

// DeleteByID removes the campaign row only; dependent rows are the caller's concern
func (r *CampaignRepositoryImpl) DeleteByID(ctx context.Context, id uint) error {
	_, err := r.deleteWhere(ctx, "id = ?", id)
	return err
}

// ByFilter retrieves campaigns based on filter criteria
func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	query := paginate(r.applyFilter(db, filter), orderBy, limit, offset)
	if err := query.Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	return campaigns, nil
}

// Count returns the number of campaigns matching the filter
func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Campaign{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	return count, nil
}

// Exists checks if any campaign matching the filter exists
func (r *CampaignRepositoryImpl) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Name != nil {
		db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(*filter.Name)+"%")
	}
	if filter.ExternalID != nil {
		db = db.Where("external_id = ?", *filter.ExternalID)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
