package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/utils"
)

// ProfileRepositoryImpl implements ProfileRepository
type ProfileRepositoryImpl struct {
	*BaseRepository[models.Profile, any]
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &ProfileRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Profile, any](db),
	}
}

func (r *ProfileRepositoryImpl) ByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	db := r.getDB(ctx)

	var profile models.Profile
	if err := db.Where("id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find profile %s: %w", userID, err)
	}
	return &profile, nil
}

func (r *ProfileRepositoryImpl) EnsureExists(ctx context.Context, profile *models.Profile) error {
	return r.write(ctx, func(db *gorm.DB) error {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(profile).Error
		if err != nil {
			return fmt.Errorf("failed to provision profile %s: %w", profile.ID, err)
		}
		return nil
	})
}

func (r *ProfileRepositoryImpl) Update(ctx context.Context, profile *models.Profile) error {
	now := utils.UTCNow()
	profile.UpdatedAt = &now
	return r.write(ctx, func(db *gorm.DB) error {
		err := db.Model(&models.Profile{}).
			Where("id = ?", profile.ID).
			Updates(map[string]any{
				"email":      profile.Email,
				"full_name":  profile.FullName,
				"updated_at": profile.UpdatedAt,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update profile %s: %w", profile.ID, err)
		}
		return nil
	})
}
