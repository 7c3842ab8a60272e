package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/utils"
)

// CampaignStatus represents the status of an email campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusStopped   CampaignStatus = "stopped"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused,
		CampaignStatusCompleted, CampaignStatusStopped:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// Campaign is an outreach effort pairing a message template with a set of leads
type Campaign struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_campaigns_user_id" json:"user_id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Subject      string         `gorm:"size:998;not null" json:"subject"`
	EmailContent string         `gorm:"type:text;not null" json:"email_content"`
	Status       CampaignStatus `gorm:"type:varchar(20);not null;index:idx_campaigns_status" json:"status"`
	TotalLeads   int            `gorm:"not null;default:0" json:"total_leads"`
	SentCount    int            `gorm:"not null;default:0" json:"sent_count"`
	OpenedCount  int            `gorm:"not null;default:0" json:"opened_count"`
	RepliedCount int            `gorm:"not null;default:0" json:"replied_count"`
	ExternalID   *string        `gorm:"size:64" json:"external_id,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt    *time.Time     `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	c.UpdatedAt = utils.UTCNowPtr()
	return nil
}

// IsSendable reports whether the campaign may enter the send pipeline
func (c *Campaign) IsSendable() bool {
	return c.Status == CampaignStatusDraft || c.Status == CampaignStatusPaused
}

// IsEditable checks if the campaign content can still change
func (c *Campaign) IsEditable() bool {
	return c.Status == CampaignStatusDraft || c.Status == CampaignStatusPaused
}

// IsDeletable checks if the campaign can be deleted
func (c *Campaign) IsDeletable() bool {
	return c.Status != CampaignStatusActive
}

// HasExternalCampaign reports whether a provider-side campaign was already created
func (c *Campaign) HasExternalCampaign() bool {
	return c.ExternalID != nil && *c.ExternalID != ""
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch newStatus {
	case CampaignStatusActive:
		return c.IsSendable()
	case CampaignStatusPaused:
		return c.Status != CampaignStatusCompleted && c.Status != CampaignStatusStopped
	case CampaignStatusDraft:
		// rollback of a failed send
		return c.Status == CampaignStatusDraft || c.Status == CampaignStatusPaused || c.Status == CampaignStatusActive
	case CampaignStatusCompleted, CampaignStatusStopped:
		return c.Status == CampaignStatusActive || c.Status == CampaignStatusPaused
	default:
		return false
	}
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
	Status        *CampaignStatus `json:"status,omitempty"`
	Name          *string         `json:"name,omitempty"`
	ExternalID    *string         `json:"external_id,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}

// CampaignCounters are the denormalized engagement totals of a user's campaigns
type CampaignCounters struct {
	TotalCampaigns  int64 `json:"total_campaigns"`
	ActiveCampaigns int64 `json:"active_campaigns"`
	Sent            int64 `json:"sent"`
	Opened          int64 `json:"opened"`
	Replied         int64 `json:"replied"`
}
