package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/utils"
)

// Profile is the local record of an authenticated user account.
// ID is the subject of the user's access token.
type Profile struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string     `gorm:"size:320" json:"email"`
	FullName  string     `gorm:"size:255" json:"full_name"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate is called before creating a new record
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	return nil
}

// AllModels lists every persisted model, in dependency order
func AllModels() []any {
	return []any{
		&Profile{},
		&Lead{},
		&Campaign{},
		&CampaignLead{},
		&EmailTracking{},
		&LinkTracking{},
	}
}
