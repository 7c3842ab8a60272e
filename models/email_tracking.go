package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/utils"
)

// EmailTracking records one send to a lead and its engagement timestamps.
// Timestamps are set once; later events never overwrite them.
type EmailTracking struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CampaignID   uint       `gorm:"not null;index:idx_email_tracking_campaign_lead,priority:1" json:"campaign_id"`
	LeadID       uint       `gorm:"not null;index:idx_email_tracking_campaign_lead,priority:2;index:idx_email_tracking_lead_id" json:"lead_id"`
	Subject      string     `gorm:"size:998" json:"subject"`
	Content      string     `gorm:"type:text" json:"content"`
	EmailType    string     `gorm:"size:50;not null" json:"email_type"`
	ExternalID   *string    `gorm:"size:255" json:"external_id,omitempty"`
	SentAt       time.Time  `gorm:"not null" json:"sent_at"`
	OpenedAt     *time.Time `json:"opened_at,omitempty"`
	ClickedAt    *time.Time `json:"clicked_at,omitempty"`
	RepliedAt    *time.Time `json:"replied_at,omitempty"`
	ReplySubject *string    `gorm:"size:998" json:"reply_subject,omitempty"`
	ReplyContent *string    `gorm:"type:text" json:"reply_content,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
}

// TableName returns the table name for the model
func (EmailTracking) TableName() string {
	return "email_tracking"
}

// BeforeCreate is called before creating a new record
func (t *EmailTracking) BeforeCreate(tx *gorm.DB) error {
	now := utils.UTCNow()
	if t.EmailType == "" {
		t.EmailType = utils.EmailTypeCampaign
	}
	if t.SentAt.IsZero() {
		t.SentAt = now
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	return nil
}

// EngagementStats are aggregate counts over a campaign's tracking rows
type EngagementStats struct {
	Sent    int64 `json:"sent"`
	Opened  int64 `json:"opened"`
	Clicked int64 `json:"clicked"`
	Replied int64 `json:"replied"`
}
