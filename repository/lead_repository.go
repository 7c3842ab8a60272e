package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/utils"
)

// leadUpsertColumns are overwritten when an imported lead matches an existing email
var leadUpsertColumns = []string{
	"first_name", "last_name", "contact_name", "email", "phone",
	"company_name", "company", "title", "position", "linkedin_url",
	"company_website", "industry", "company_size", "location", "notes",
	"source", "updated_at",
}

// LeadRepositoryImpl implements the LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

// ByUUIDForUser retrieves a lead owned by the user, nil when missing or foreign
func (r *LeadRepositoryImpl) ByUUIDForUser(ctx context.Context, userID, leadUUID uuid.UUID) (*models.Lead, error) {
	leads, err := r.ByFilter(ctx, models.LeadFilter{UUID: &leadUUID, UserID: &userID}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return leads[0], nil
}

// ByEmailForUser finds a lead by email, case-insensitively
func (r *LeadRepositoryImpl) ByEmailForUser(ctx context.Context, userID uuid.UUID, email string) (*models.Lead, error) {
	key := models.EmailKeyFor(email)
	if key == nil {
		return nil, nil
	}

	db := r.getDB(ctx)
	var lead models.Lead
	err := db.Where("user_id = ? AND email_key = ?", userID, *key).First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find lead by email: %w", err)
	}
	return &lead, nil
}

// ListByUUIDs returns the user's leads among the given uuids
func (r *LeadRepositoryImpl) ListByUUIDs(ctx context.Context, userID uuid.UUID, uuids []uuid.UUID) ([]*models.Lead, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	return r.ByFilter(ctx, models.LeadFilter{UserID: &userID, UUIDs: uuids}, "id ASC", 0, 0)
}

// Update saves every column of the lead
func (r *LeadRepositoryImpl) Update(ctx context.Context, lead *models.Lead) error {
	return r.write(ctx, func(db *gorm.DB) error {
		if err := db.Save(lead).Error; err != nil {
			return fmt.Errorf("failed to update lead %d: %w", lead.ID, err)
		}
		return nil
	})
}

// UpsertByEmail inserts the leads in batches; leads whose email already exists for the user are updated in place
func (r *LeadRepositoryImpl) UpsertByEmail(ctx context.Context, leads []*models.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	now := utils.UTCNow()
	for _, lead := range leads {
		lead.UpdatedAt = &now
	}

	return r.write(ctx, func(db *gorm.DB) error {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "email_key"}},
			DoUpdates: clause.AssignmentColumns(leadUpsertColumns),
		}).CreateInBatches(leads, 100).Error
		if err != nil {
			return fmt.Errorf("failed to upsert leads: %w", err)
		}
		return nil
	})
}

// DeleteByID removes the lead row only; dependent rows are the caller's concern
func (r *LeadRepositoryImpl) DeleteByID(ctx context.Context, id uint) error {
	_, err := r.deleteWhere(ctx, "id = ?", id)
	return err
}

// ByFilter retrieves leads based on filter criteria
func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	db := r.getDB(ctx)

	var leads []*models.Lead
	query := paginate(r.applyFilter(db, filter), orderBy, limit, offset)
	if err := query.Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	return leads, nil
}

// Count returns the number of leads matching the filter
func (r *LeadRepositoryImpl) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Lead{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}

	return count, nil
}

// Exists checks if any lead matching the filter exists
func (r *LeadRepositoryImpl) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *LeadRepositoryImpl) applyFilter(db *gorm.DB, filter models.LeadFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if len(filter.UUIDs) > 0 {
		db = db.Where("uuid IN ?", filter.UUIDs)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.EmailKey != nil {
		db = db.Where("email_key = ?", *filter.EmailKey)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Source != nil {
		db = db.Where("source = ?", *filter.Source)
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		db = db.Where(
			"(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(contact_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ?)",
			pattern, pattern, pattern, pattern, pattern,
		)
	}

	return db
}
