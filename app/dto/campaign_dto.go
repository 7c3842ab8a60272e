package dto

import (
	"time"

	"github.com/google/uuid"
)

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	UserID       uuid.UUID `json:"-"`
	Name         string    `json:"name" validate:"required,max=255"`
	Subject      string    `json:"subject" validate:"required,max=998"`
	EmailContent string    `json:"email_content" validate:"required"`
	LeadIDs      []string  `json:"lead_ids" validate:"omitempty,dive,uuid"`
}

// CreateCampaignResponse represents the response to create a new campaign
type CreateCampaignResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// UpdateCampaignRequest represents the request to edit a draft or paused campaign
type UpdateCampaignRequest struct {
	UUID         string    `json:"-"`
	UserID       uuid.UUID `json:"-"`
	Name         *string   `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Subject      *string   `json:"subject,omitempty" validate:"omitempty,min=1,max=998"`
	EmailContent *string   `json:"email_content,omitempty" validate:"omitempty,min=1"`
}

// CampaignDTO is the campaign representation in responses
type CampaignDTO struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Subject      string     `json:"subject"`
	EmailContent string     `json:"email_content"`
	Status       string     `json:"status"`
	TotalLeads   int        `json:"total_leads"`
	SentCount    int        `json:"sent_count"`
	OpenedCount  int        `json:"opened_count"`
	RepliedCount int        `json:"replied_count"`
	ExternalID   *string    `json:"smartlead_campaign_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// CampaignRequest addresses one campaign owned by the caller
type CampaignRequest struct {
	UUID   string    `json:"-"`
	UserID uuid.UUID `json:"-"`
}

// ListCampaignsRequest represents a paginated list request for user's campaigns
type ListCampaignsRequest struct {
	UserID  uuid.UUID `json:"-"`
	Page    int       `query:"page"`
	Limit   int       `query:"limit"`
	OrderBy string    `query:"orderby"` // newest, oldest
	Status  *string   `query:"status" validate:"omitempty,oneof=draft active paused completed stopped"`
	Name    *string   `query:"name"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// ListCampaignsResponse represents a paginated list of campaigns
type ListCampaignsResponse struct {
	Message    string         `json:"message"`
	Items      []CampaignDTO  `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// SendCampaignResponse is returned once a campaign has been handed to the provider
type SendCampaignResponse struct {
	Message             string  `json:"message"`
	SmartLeadCampaignID *string `json:"smartLeadCampaignId"`
	TotalLeads          int     `json:"totalLeads"`
	Status              string  `json:"status"`
}

// DeleteCampaignResponse represents the response to delete a campaign
type DeleteCampaignResponse struct {
	Message      string `json:"message"`
	CampaignName string `json:"campaignName"`
}

// CampaignStatsResponse holds engagement counts and percentage rates
type CampaignStatsResponse struct {
	TotalSent    int64  `json:"totalSent"`
	TotalOpened  int64  `json:"totalOpened"`
	TotalClicked int64  `json:"totalClicked"`
	TotalReplied int64  `json:"totalReplied"`
	OpenRate     string `json:"openRate"`
	ClickRate    string `json:"clickRate"`
	ReplyRate    string `json:"replyRate"`
}

// ReplyToLeadRequest sends a reply to a lead through the provider thread
type ReplyToLeadRequest struct {
	UUID           string    `json:"-"`
	LeadUUID       string    `json:"-"`
	UserID         uuid.UUID `json:"-"`
	Message        string    `json:"message" validate:"required"`
	ExternalLeadID string    `json:"external_lead_id,omitempty"` // provider lead id, defaults to the lead's id
}

// ReplyToLeadResponse represents the response to a provider reply
type ReplyToLeadResponse struct {
	Message string `json:"message"`
}
