// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/app/services"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/repository"
	"github.com/amirphl/orochi-outreach/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client information attached to request logs
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

func (cm *ClientMetadata) fields() []zap.Field {
	if cm == nil {
		return nil
	}
	return []zap.Field{
		zap.String("ip", cm.IPAddress),
		zap.String("user_agent", cm.UserAgent),
		zap.String("request_id", cm.RequestID),
	}
}

// getCampaign loads a campaign owned by userID; missing and foreign campaigns are both not found
func getCampaign(ctx context.Context, repo repository.CampaignRepository, campaignUUID string, userID uuid.UUID) (*models.Campaign, error) {
	if campaignUUID == "" {
		return nil, ErrCampaignUUIDRequired
	}
	id, err := uuid.Parse(campaignUUID)
	if err != nil {
		return nil, ErrCampaignNotFound
	}
	campaign, err := repo.ByUUIDForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

// getLead loads a lead owned by userID
func getLead(ctx context.Context, repo repository.LeadRepository, leadUUID string, userID uuid.UUID) (*models.Lead, error) {
	if leadUUID == "" {
		return nil, ErrLeadUUIDRequired
	}
	id, err := uuid.Parse(leadUUID)
	if err != nil {
		return nil, ErrLeadNotFound
	}
	lead, err := repo.ByUUIDForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

// ensureProfile provisions the caller's profile row on first write
func ensureProfile(ctx context.Context, repo repository.ProfileRepository, userID uuid.UUID) error {
	return repo.EnsureExists(ctx, &models.Profile{ID: userID})
}

// normalizePage validates paging input and returns limit and offset
func normalizePage(page, limit int) (int, int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = utils.DefaultPageSize
	}
	if page < 1 {
		return 0, 0, 0, ErrInvalidPage
	}
	if limit < 1 || limit > utils.MaxPageSize {
		return 0, 0, 0, ErrInvalidPageSize
	}
	return page, limit, (page - 1) * limit, nil
}

func paginationInfo(total int64, page, limit int) dto.PaginationInfo {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return dto.PaginationInfo{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

// percentage renders part/whole as a one-decimal percentage, "0" when whole is zero
func percentage(part, whole int64) string {
	if whole <= 0 {
		return "0"
	}
	return fmt.Sprintf("%.1f", float64(part)*100/float64(whole))
}

// publishEvent is fire-and-forget; failures are logged only
func publishEvent(ctx context.Context, publisher services.EventPublisher, logger *zap.Logger, event services.OutreachEvent) {
	if publisher == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = utils.UTCNow()
	}
	if err := publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func providerError(err error) error {
	if errors.Is(err, ErrProviderFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrProviderFailed, err)
}

func campaignToDTO(c *models.Campaign) dto.CampaignDTO {
	return dto.CampaignDTO{
		ID:           c.UUID.String(),
		Name:         c.Name,
		Subject:      c.Subject,
		EmailContent: c.EmailContent,
		Status:       c.Status.String(),
		TotalLeads:   c.TotalLeads,
		SentCount:    c.SentCount,
		OpenedCount:  c.OpenedCount,
		RepliedCount: c.RepliedCount,
		ExternalID:   c.ExternalID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func leadToDTO(l *models.Lead) dto.LeadDTO {
	return dto.LeadDTO{
		ID:             l.UUID.String(),
		FirstName:      l.FirstName,
		LastName:       l.LastName,
		ContactName:    l.ContactName,
		Email:          l.Email,
		Phone:          l.Phone,
		CompanyName:    utils.FirstNonEmpty(l.CompanyName, l.Company),
		Title:          utils.FirstNonEmpty(l.Title, l.Position),
		LinkedinURL:    l.LinkedinURL,
		CompanyWebsite: l.CompanyWebsite,
		Industry:       l.Industry,
		CompanySize:    l.CompanySize,
		Location:       l.Location,
		Notes:          l.Notes,
		Source:         l.Source,
		Status:         l.Status.String(),
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}
