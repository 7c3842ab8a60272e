// Package businessflow contains the core business logic and use cases for outreach workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Campaign-related errors
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrCampaignNotSendable      = errors.New("campaign cannot be started")
	ErrCampaignUpdateNotAllowed = errors.New("campaign update not allowed")
	ErrCampaignActive           = errors.New("cannot delete active campaign")
	ErrCampaignSendInProgress   = errors.New("campaign send already in progress")
	ErrNoPendingLeads           = errors.New("no pending leads to send to")
	ErrCampaignNotExternal      = errors.New("campaign has not been sent through the provider")
	ErrCampaignUpdateRequired   = errors.New("at least one field must be provided for update")
	ErrCampaignUUIDRequired     = errors.New("campaign UUID is required")

	// Lead-related errors
	ErrLeadNotFound       = errors.New("lead not found")
	ErrLeadEmailExists    = errors.New("a lead with this email already exists")
	ErrLeadsRequired      = errors.New("leads are required")
	ErrLeadUUIDRequired   = errors.New("lead UUID is required")
	ErrInvalidSpreadsheet = errors.New("invalid spreadsheet")

	// Profile errors
	ErrProfileNotFound       = errors.New("profile not found")
	ErrProfileUpdateRequired = errors.New("at least one profile field must be provided")

	// Delivery errors
	ErrProviderFailed = errors.New("provider failed")

	// Session errors
	ErrTokenRequired = errors.New("access token is required")

	// Tracking errors
	ErrTrackingParamsRequired = errors.New("tracking parameters are required")
	ErrInvalidRedirectURL     = errors.New("invalid redirect url")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignNotSendable(err error) bool {
	return errors.Is(err, ErrCampaignNotSendable)
}

func IsCampaignUpdateNotAllowed(err error) bool {
	return errors.Is(err, ErrCampaignUpdateNotAllowed)
}

func IsCampaignActive(err error) bool {
	return errors.Is(err, ErrCampaignActive)
}

func IsCampaignSendInProgress(err error) bool {
	return errors.Is(err, ErrCampaignSendInProgress)
}

func IsNoPendingLeads(err error) bool {
	return errors.Is(err, ErrNoPendingLeads)
}

func IsCampaignNotExternal(err error) bool {
	return errors.Is(err, ErrCampaignNotExternal)
}

func IsCampaignUpdateRequired(err error) bool {
	return errors.Is(err, ErrCampaignUpdateRequired)
}

func IsCampaignUUIDRequired(err error) bool {
	return errors.Is(err, ErrCampaignUUIDRequired)
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsLeadEmailExists(err error) bool {
	return errors.Is(err, ErrLeadEmailExists)
}

func IsLeadsRequired(err error) bool {
	return errors.Is(err, ErrLeadsRequired)
}

func IsLeadUUIDRequired(err error) bool {
	return errors.Is(err, ErrLeadUUIDRequired)
}

func IsInvalidSpreadsheet(err error) bool {
	return errors.Is(err, ErrInvalidSpreadsheet)
}

func IsProviderFailed(err error) bool {
	return errors.Is(err, ErrProviderFailed)
}

func IsTrackingParamsRequired(err error) bool {
	return errors.Is(err, ErrTrackingParamsRequired)
}

func IsInvalidRedirectURL(err error) bool {
	return errors.Is(err, ErrInvalidRedirectURL)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsProfileUpdateRequired(err error) bool {
	return errors.Is(err, ErrProfileUpdateRequired)
}

func IsTokenRequired(err error) bool {
	return errors.Is(err, ErrTokenRequired)
}
