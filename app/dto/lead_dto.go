package dto

import (
	"time"

	"github.com/google/uuid"
)

// LeadDTO is the lead representation in responses
type LeadDTO struct {
	ID             string     `json:"id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	ContactName    string     `json:"contact_name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	CompanyName    string     `json:"company_name"`
	Title          string     `json:"title"`
	LinkedinURL    string     `json:"linkedin_url"`
	CompanyWebsite string     `json:"company_website"`
	Industry       string     `json:"industry"`
	CompanySize    string     `json:"company_size"`
	Location       string     `json:"location"`
	Notes          string     `json:"notes"`
	Source         string     `json:"source"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// LeadFields are the writable lead attributes shared by create, update and import
type LeadFields struct {
	FirstName      *string `json:"first_name,omitempty" validate:"omitempty,max=255"`
	LastName       *string `json:"last_name,omitempty" validate:"omitempty,max=255"`
	ContactName    *string `json:"contact_name,omitempty" validate:"omitempty,max=255"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone          *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	CompanyName    *string `json:"company_name,omitempty" validate:"omitempty,max=255"`
	Company        *string `json:"company,omitempty" validate:"omitempty,max=255"`
	Title          *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Position       *string `json:"position,omitempty" validate:"omitempty,max=255"`
	LinkedinURL    *string `json:"linkedin_url,omitempty" validate:"omitempty,max=500"`
	CompanyWebsite *string `json:"company_website,omitempty" validate:"omitempty,max=500"`
	Industry       *string `json:"industry,omitempty" validate:"omitempty,max=255"`
	CompanySize    *string `json:"company_size,omitempty" validate:"omitempty,max=100"`
	Location       *string `json:"location,omitempty" validate:"omitempty,max=255"`
	Notes          *string `json:"notes,omitempty"`
	Status         *string `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified unqualified converted"`
}

// CreateLeadRequest represents the request to add a single lead
type CreateLeadRequest struct {
	UserID uuid.UUID `json:"-"`
	LeadFields
}

// UpdateLeadRequest represents the request to edit a lead
type UpdateLeadRequest struct {
	UUID   string    `json:"-"`
	UserID uuid.UUID `json:"-"`
	LeadFields
}

// LeadRequest addresses one lead owned by the caller
type LeadRequest struct {
	UUID   string    `json:"-"`
	UserID uuid.UUID `json:"-"`
}

// DeleteLeadResponse represents the response to delete a lead
type DeleteLeadResponse struct {
	Message  string `json:"message"`
	LeadName string `json:"leadName"`
}

// ListLeadsRequest represents a paginated list request for user's leads
type ListLeadsRequest struct {
	UserID uuid.UUID `json:"-"`
	Page   int       `query:"page"`
	Limit  int       `query:"limit"`
	Status *string   `query:"status" validate:"omitempty,oneof=new contacted qualified unqualified converted"`
	Source *string   `query:"source"`
	Search *string   `query:"search"`
}

// ListLeadsResponse represents a paginated list of leads
type ListLeadsResponse struct {
	Message    string         `json:"message"`
	Items      []LeadDTO      `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// ImportLeadsRequest carries a batch of leads; items are validated per row by the flow
type ImportLeadsRequest struct {
	UserID uuid.UUID    `json:"-"`
	Leads  []LeadFields `json:"leads"`
}

// ImportLeadsResponse summarises an import
type ImportLeadsResponse struct {
	Success      bool     `json:"success"`
	SuccessCount int      `json:"successCount"`
	ErrorCount   int      `json:"errorCount"`
	Errors       []string `json:"errors"`
	Message      string   `json:"message"`
}
