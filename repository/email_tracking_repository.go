package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/models"
)

// EmailTrackingRepositoryImpl implements EmailTrackingRepository
type EmailTrackingRepositoryImpl struct {
	*BaseRepository[models.EmailTracking, any]
}

func NewEmailTrackingRepository(db *gorm.DB) EmailTrackingRepository {
	return &EmailTrackingRepositoryImpl{BaseRepository: NewBaseRepository[models.EmailTracking, any](db)}
}

func (r *EmailTrackingRepositoryImpl) ByCampaignAndLead(ctx context.Context, campaignID, leadID uint) (*models.EmailTracking, error) {
	db := r.getDB(ctx)
	var row models.EmailTracking
	if err := db.Where("campaign_id = ? AND lead_id = ?", campaignID, leadID).Last(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *EmailTrackingRepositoryImpl) SetOpenedOnce(ctx context.Context, campaignID, leadID uint, at time.Time) (int64, error) {
	return r.setOnce(ctx, campaignID, leadID, "opened_at", map[string]any{"opened_at": at})
}

func (r *EmailTrackingRepositoryImpl) SetClickedOnce(ctx context.Context, campaignID, leadID uint, at time.Time) (int64, error) {
	return r.setOnce(ctx, campaignID, leadID, "clicked_at", map[string]any{"clicked_at": at})
}

func (r *EmailTrackingRepositoryImpl) SetRepliedOnce(ctx context.Context, campaignID, leadID uint, at time.Time, subject, content *string) (int64, error) {
	values := map[string]any{"replied_at": at}
	if subject != nil {
		values["reply_subject"] = *subject
	}
	if content != nil {
		values["reply_content"] = *content
	}
	return r.setOnce(ctx, campaignID, leadID, "replied_at", values)
}

// setOnce writes values only on rows whose guard column is still NULL
func (r *EmailTrackingRepositoryImpl) setOnce(ctx context.Context, campaignID, leadID uint, guard string, values map[string]any) (int64, error) {
	var affected int64
	err := r.write(ctx, func(db *gorm.DB) error {
		res := db.Model(&models.EmailTracking{}).
			Where("campaign_id = ? AND lead_id = ? AND "+guard+" IS NULL", campaignID, leadID).
			UpdateColumns(values)
		if res.Error != nil {
			return fmt.Errorf("failed to set %s: %w", guard, res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}

// StatsByCampaign counts sends and engagement over the campaign's tracking rows
func (r *EmailTrackingRepositoryImpl) StatsByCampaign(ctx context.Context, campaignID uint) (*models.EngagementStats, error) {
	db := r.getDB(ctx)

	var stats models.EngagementStats
	err := db.Model(&models.EmailTracking{}).
		Select("COUNT(*) AS sent, COUNT(opened_at) AS opened, COUNT(clicked_at) AS clicked, COUNT(replied_at) AS replied").
		Where("campaign_id = ?", campaignID).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tracking of campaign %d: %w", campaignID, err)
	}
	return &stats, nil
}

func (r *EmailTrackingRepositoryImpl) DeleteByCampaign(ctx context.Context, campaignID uint) error {
	_, err := r.deleteWhere(ctx, "campaign_id = ?", campaignID)
	return err
}

func (r *EmailTrackingRepositoryImpl) DeleteByLead(ctx context.Context, leadID uint) error {
	_, err := r.deleteWhere(ctx, "lead_id = ?", leadID)
	return err
}

// ByFilter: no filter is defined, return with order/limit/offset only
func (r *EmailTrackingRepositoryImpl) ByFilter(ctx context.Context, _ any, orderBy string, limit, offset int) ([]*models.EmailTracking, error) {
	db := r.getDB(ctx)
	var rows []*models.EmailTracking
	if err := paginate(db.Model(&models.EmailTracking{}), orderBy, limit, offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EmailTrackingRepositoryImpl) Count(ctx context.Context, _ any) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := db.Model(&models.EmailTracking{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *EmailTrackingRepositoryImpl) Exists(ctx context.Context, filter any) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
