package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/utils"
)

// CampaignLeadStatus tracks a lead's delivery and engagement stage within a campaign
type CampaignLeadStatus string

const (
	CampaignLeadStatusPending CampaignLeadStatus = "pending"
	CampaignLeadStatusSent    CampaignLeadStatus = "sent"
	CampaignLeadStatusOpened  CampaignLeadStatus = "opened"
	CampaignLeadStatusReplied CampaignLeadStatus = "replied"
	CampaignLeadStatusBounced CampaignLeadStatus = "bounced"
)

// String returns the string representation of the status
func (s CampaignLeadStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignLeadStatus) Valid() bool {
	switch s {
	case CampaignLeadStatusPending, CampaignLeadStatusSent, CampaignLeadStatusOpened,
		CampaignLeadStatusReplied, CampaignLeadStatusBounced:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignLeadStatus
func (s *CampaignLeadStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignLeadStatus(v)
	case []byte:
		*s = CampaignLeadStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignLeadStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignLeadStatus
func (s CampaignLeadStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignLeadStatus: %s", s)
	}
	return string(s), nil
}

// CanTransitionTo checks the forward-only stage order. Bounced is terminal.
func (s CampaignLeadStatus) CanTransitionTo(next CampaignLeadStatus) bool {
	switch s {
	case CampaignLeadStatusPending:
		return next == CampaignLeadStatusSent || next == CampaignLeadStatusBounced
	case CampaignLeadStatusSent:
		return next == CampaignLeadStatusOpened || next == CampaignLeadStatusReplied || next == CampaignLeadStatusBounced
	case CampaignLeadStatusOpened:
		return next == CampaignLeadStatusReplied
	default:
		return false
	}
}

// PredecessorsOf lists the statuses a row may hold before moving to next
func PredecessorsOf(next CampaignLeadStatus) []CampaignLeadStatus {
	all := []CampaignLeadStatus{
		CampaignLeadStatusPending, CampaignLeadStatusSent, CampaignLeadStatusOpened,
		CampaignLeadStatusReplied, CampaignLeadStatusBounced,
	}
	var out []CampaignLeadStatus
	for _, s := range all {
		if s.CanTransitionTo(next) {
			out = append(out, s)
		}
	}
	return out
}

// CampaignLead is a lead's participation in a campaign
type CampaignLead struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	CampaignID uint               `gorm:"not null;uniqueIndex:uk_campaign_leads_pair,priority:1;index:idx_campaign_leads_campaign_id" json:"campaign_id"`
	LeadID     uint               `gorm:"not null;uniqueIndex:uk_campaign_leads_pair,priority:2;index:idx_campaign_leads_lead_id" json:"lead_id"`
	Status     CampaignLeadStatus `gorm:"type:varchar(20);not null;index:idx_campaign_leads_status" json:"status"`
	SentAt     *time.Time         `json:"sent_at,omitempty"`
	OpenedAt   *time.Time         `json:"opened_at,omitempty"`
	RepliedAt  *time.Time         `json:"replied_at,omitempty"`
	CreatedAt  time.Time          `gorm:"not null" json:"created_at"`

	// Relations
	Lead *Lead `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
}

// TableName returns the table name for the model
func (CampaignLead) TableName() string {
	return "campaign_leads"
}

// BeforeCreate is called before creating a new record
func (cl *CampaignLead) BeforeCreate(tx *gorm.DB) error {
	if cl.Status == "" {
		cl.Status = CampaignLeadStatusPending
	}
	if cl.CreatedAt.IsZero() {
		cl.CreatedAt = utils.UTCNow()
	}
	return nil
}

// CampaignLeadFilter represents filter criteria for campaign leads
type CampaignLeadFilter struct {
	CampaignID *uint               `json:"campaign_id,omitempty"`
	LeadID     *uint               `json:"lead_id,omitempty"`
	Status     *CampaignLeadStatus `json:"status,omitempty"`
}
