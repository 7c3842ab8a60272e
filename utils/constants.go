package utils

import (
	"time"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Outreach constants
const (
	// DefaultSendLockTTL bounds how long a campaign send may hold its lock
	DefaultSendLockTTL = 5 * time.Minute

	// DefaultStatsCacheTTL is how long computed campaign stats are cached
	DefaultStatsCacheTTL = 30 * time.Second

	// ImportErrorPreviewLimit is how many import errors are echoed back to the caller
	ImportErrorPreviewLimit = 5

	// UnknownClientValue is stored when a click carries no IP or user agent
	UnknownClientValue = "unknown"

	// EmailTypeCampaign tags tracking rows written by the send pipeline
	EmailTypeCampaign = "campaign"

	// DefaultPageSize is used by list endpoints when no page size is given
	DefaultPageSize = 20

	// MaxPageSize caps list endpoints
	MaxPageSize = 100
)
