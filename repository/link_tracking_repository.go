package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/models"
)

// LinkTrackingRepositoryImpl implements LinkTrackingRepository
type LinkTrackingRepositoryImpl struct {
	*BaseRepository[models.LinkTracking, any]
}

func NewLinkTrackingRepository(db *gorm.DB) LinkTrackingRepository {
	return &LinkTrackingRepositoryImpl{BaseRepository: NewBaseRepository[models.LinkTracking, any](db)}
}

func (r *LinkTrackingRepositoryImpl) CountByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := db.Model(&models.LinkTracking{}).Where("campaign_id = ?", campaignID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LinkTrackingRepositoryImpl) DeleteByCampaign(ctx context.Context, campaignID uint) error {
	_, err := r.deleteWhere(ctx, "campaign_id = ?", campaignID)
	return err
}

func (r *LinkTrackingRepositoryImpl) DeleteByLead(ctx context.Context, leadID uint) error {
	_, err := r.deleteWhere(ctx, "lead_id = ?", leadID)
	return err
}

// ByFilter: no filter is defined, return with order/limit/offset only
func (r *LinkTrackingRepositoryImpl) ByFilter(ctx context.Context, _ any, orderBy string, limit, offset int) ([]*models.LinkTracking, error) {
	db := r.getDB(ctx)
	var rows []*models.LinkTracking
	if err := paginate(db.Model(&models.LinkTracking{}), orderBy, limit, offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LinkTrackingRepositoryImpl) Count(ctx context.Context, _ any) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := db.Model(&models.LinkTracking{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LinkTrackingRepositoryImpl) Exists(ctx context.Context, filter any) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
