package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/utils"
)

// LeadStatus represents where a lead is in the sales funnel
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusUnqualified LeadStatus = "unqualified"
	LeadStatusConverted   LeadStatus = "converted"
)

// Lead sources
const (
	LeadSourceManual = "manual"
	LeadSourceImport = "import"
)

// String returns the string representation of the status
func (s LeadStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified,
		LeadStatusUnqualified, LeadStatusConverted:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for LeadStatus
func (s *LeadStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = LeadStatus(v)
	case []byte:
		*s = LeadStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into LeadStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for LeadStatus
func (s LeadStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid LeadStatus: %s", s)
	}
	return string(s), nil
}

// Lead is a prospective contact owned by one user.
// EmailKey holds the lower-cased email and backs the per-user uniqueness; it is NULL for leads without email.
type Lead struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_leads_uuid" json:"uuid"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_leads_user_id;uniqueIndex:uk_leads_user_email_key,priority:1" json:"user_id"`
	FirstName      string     `gorm:"size:255" json:"first_name"`
	LastName       string     `gorm:"size:255" json:"last_name"`
	ContactName    string     `gorm:"size:511" json:"contact_name"`
	Email          string     `gorm:"size:320" json:"email"`
	EmailKey       *string    `gorm:"size:320;uniqueIndex:uk_leads_user_email_key,priority:2" json:"-"`
	Phone          string     `gorm:"size:50" json:"phone"`
	CompanyName    string     `gorm:"size:255" json:"company_name"`
	Company        string     `gorm:"size:255" json:"company"`
	Title          string     `gorm:"size:255" json:"title"`
	Position       string     `gorm:"size:255" json:"position"`
	LinkedinURL    string     `gorm:"column:linkedin_url;size:1024" json:"linkedin_url"`
	CompanyWebsite string     `gorm:"size:1024" json:"company_website"`
	Industry       string     `gorm:"size:255" json:"industry"`
	CompanySize    string     `gorm:"size:50" json:"company_size"`
	Location       string     `gorm:"size:255" json:"location"`
	Notes          string     `gorm:"type:text" json:"notes"`
	Source         string     `gorm:"size:50;index:idx_leads_source" json:"source"`
	Status         LeadStatus `gorm:"type:varchar(20);not null;index:idx_leads_status" json:"status"`
	CreatedAt      time.Time  `gorm:"not null;index:idx_leads_created_at" json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Lead) TableName() string {
	return "leads"
}

// BeforeCreate is called before creating a new record
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	l.SyncEmailKey()
	return nil
}

// BeforeUpdate is called before updating a record
func (l *Lead) BeforeUpdate(tx *gorm.DB) error {
	l.UpdatedAt = utils.UTCNowPtr()
	l.SyncEmailKey()
	return nil
}

// SyncEmailKey recomputes EmailKey from Email
func (l *Lead) SyncEmailKey() {
	l.EmailKey = EmailKeyFor(l.Email)
}

// EmailKeyFor returns the uniqueness key for an email, nil when blank
func EmailKeyFor(email string) *string {
	normalized := utils.NormalizeEmail(email)
	if normalized == "" {
		return nil
	}
	return &normalized
}

// HasSendableEmail reports whether the provider can accept this lead
func (l *Lead) HasSendableEmail() bool {
	return utils.HasEmailShape(l.Email)
}

// DisplayName returns the best human name of the lead
func (l *Lead) DisplayName() string {
	if name := strings.TrimSpace(l.FirstName + " " + l.LastName); name != "" {
		return name
	}
	if l.ContactName != "" {
		return l.ContactName
	}
	return l.Email
}

// LeadFilter represents filter criteria for leads
type LeadFilter struct {
	ID       *uint       `json:"id,omitempty"`
	UUID     *uuid.UUID  `json:"uuid,omitempty"`
	UUIDs    []uuid.UUID `json:"uuids,omitempty"`
	UserID   *uuid.UUID  `json:"user_id,omitempty"`
	EmailKey *string     `json:"email_key,omitempty"`
	Status   *LeadStatus `json:"status,omitempty"`
	Source   *string     `json:"source,omitempty"`
	// Search matches name, email and company, case-insensitively
	Search *string `json:"search,omitempty"`
}
