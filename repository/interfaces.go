// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amirphl/orochi-outreach/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ProfileRepository defines operations for user profiles
type ProfileRepository interface {
	ByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	// EnsureExists creates the profile unless a row with the same id is present
	EnsureExists(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error
}

// LeadRepository defines operations for leads
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByUUIDForUser(ctx context.Context, userID, leadUUID uuid.UUID) (*models.Lead, error)
	ByEmailForUser(ctx context.Context, userID uuid.UUID, email string) (*models.Lead, error)
	ListByUUIDs(ctx context.Context, userID uuid.UUID, uuids []uuid.UUID) ([]*models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
	// UpsertByEmail inserts leads, updating the existing row on (user_id, lower(email))
	UpsertByEmail(ctx context.Context, leads []*models.Lead) error
	DeleteByID(ctx context.Context, id uint) error
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUIDForUser(ctx context.Context, userID, campaignUUID uuid.UUID) (*models.Campaign, error)
	ByUUID(ctx context.Context, campaignUUID uuid.UUID) (*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error
	SetExternalID(ctx context.Context, id uint, externalID string) error
	// MarkActive sets status active and adds sent to sent_count
	MarkActive(ctx context.Context, id uint, sent int) error
	IncrementOpened(ctx context.Context, id uint) error
	IncrementReplied(ctx context.Context, id uint) error
	CountersByUser(ctx context.Context, userID uuid.UUID) (*models.CampaignCounters, error)
	DeleteByID(ctx context.Context, id uint) error
}

// CampaignLeadRepository defines operations for campaign participation rows
type CampaignLeadRepository interface {
	Repository[models.CampaignLead, models.CampaignLeadFilter]
	PendingWithLeads(ctx context.Context, campaignID uint) ([]*models.CampaignLead, error)
	// MarkSent moves pending rows to sent and returns how many changed
	MarkSent(ctx context.Context, campaignID uint, leadIDs []uint, at time.Time) (int64, error)
	// Advance moves one row forward to next, guarded by the allowed predecessors
	Advance(ctx context.Context, campaignID, leadID uint, next models.CampaignLeadStatus, at time.Time) (int64, error)
	DeleteByCampaign(ctx context.Context, campaignID uint) error
	DeleteByLead(ctx context.Context, leadID uint) error
}

// EmailTrackingRepository defines operations for per-send tracking rows
type EmailTrackingRepository interface {
	Repository[models.EmailTracking, any]
	ByCampaignAndLead(ctx context.Context, campaignID, leadID uint) (*models.EmailTracking, error)
	SetOpenedOnce(ctx context.Context, campaignID, leadID uint, at time.Time) (int64, error)
	SetClickedOnce(ctx context.Context, campaignID, leadID uint, at time.Time) (int64, error)
	SetRepliedOnce(ctx context.Context, campaignID, leadID uint, at time.Time, subject, content *string) (int64, error)
	StatsByCampaign(ctx context.Context, campaignID uint) (*models.EngagementStats, error)
	DeleteByCampaign(ctx context.Context, campaignID uint) error
	DeleteByLead(ctx context.Context, leadID uint) error
}

// LinkTrackingRepository defines operations for the click log
type LinkTrackingRepository interface {
	Repository[models.LinkTracking, any]
	CountByCampaign(ctx context.Context, campaignID uint) (int64, error)
	DeleteByCampaign(ctx context.Context, campaignID uint) error
	DeleteByLead(ctx context.Context, leadID uint) error
}
