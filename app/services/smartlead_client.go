package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amirphl/orochi-outreach/config"
)

// External campaign run statuses
const (
	ExternalStatusStart  = "START"
	ExternalStatusPaused = "PAUSED"
)

// CampaignGateway is the provider-side campaign API
type CampaignGateway interface {
	CreateCampaign(ctx context.Context, req CreateExternalCampaignRequest) (*ExternalCampaign, error)
	AddLeads(ctx context.Context, externalID string, leads []ExternalLead) error
	SetStatus(ctx context.Context, externalID, status string) error
	ReplyToLead(ctx context.Context, externalID, externalLeadID, message string) error
}

// GatewayError carries the provider's status code and raw body
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("SmartLead API Error: %d - %s", e.StatusCode, e.Body)
}

// IsGatewayError reports whether err came back from the provider
func IsGatewayError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}

// CreateExternalCampaignRequest describes a campaign to create at the provider
type CreateExternalCampaignRequest struct {
	Name          string
	Subject       string
	Body          string
	EmailAccounts []string
}

// ExternalCampaign is the provider's answer to a create call
type ExternalCampaign struct {
	ID string
}

// ExternalLead is the provider's lead shape
type ExternalLead struct {
	Email        string         `json:"email"`
	FirstName    string         `json:"first_name,omitempty"`
	LastName     string         `json:"last_name,omitempty"`
	CompanyName  string         `json:"company_name,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Website      string         `json:"website,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

type smartLeadSchedule struct {
	Timezone   string `json:"timezone"`
	DaysOfWeek []int  `json:"days_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	MinGap     int    `json:"min_gap"`
	MaxGap     int    `json:"max_gap"`
}

type smartLeadSettings struct {
	DailyLimit  int  `json:"daily_limit"`
	TrackOpens  bool `json:"track_opens"`
	TrackClicks bool `json:"track_clicks"`
}

type smartLeadSequence struct {
	Position int    `json:"position"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	WaitDays int    `json:"wait_days"`
}

type smartLeadCampaignRequest struct {
	Name          string              `json:"name"`
	EmailAccounts []string            `json:"email_accounts"`
	Schedule      smartLeadSchedule   `json:"schedule"`
	Settings      smartLeadSettings   `json:"settings"`
	Sequences     []smartLeadSequence `json:"sequences"`
}

// SmartLeadClient implements CampaignGateway over the SmartLead REST API.
// Calls are not retried; a failure aborts the caller's step.
type SmartLeadClient struct {
	config *config.SmartLeadConfig
	client *http.Client
}

// NewSmartLeadClient creates a new SmartLead client instance
func NewSmartLeadClient(cfg *config.SmartLeadConfig) *SmartLeadClient {
	return &SmartLeadClient{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// CreateCampaign creates a one-step campaign on a weekday business-hours schedule
func (c *SmartLeadClient) CreateCampaign(ctx context.Context, req CreateExternalCampaignRequest) (*ExternalCampaign, error) {
	accounts := req.EmailAccounts
	if len(accounts) == 0 {
		accounts = c.config.EmailAccounts
	}
	if accounts == nil {
		accounts = []string{}
	}

	timezone := c.config.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	dailyLimit := c.config.DailyLimit
	if dailyLimit <= 0 {
		dailyLimit = 50
	}

	payload := smartLeadCampaignRequest{
		Name:          req.Name,
		EmailAccounts: accounts,
		Schedule: smartLeadSchedule{
			Timezone:   timezone,
			DaysOfWeek: []int{1, 2, 3, 4, 5},
			StartTime:  "09:00",
			EndTime:    "17:00",
			MinGap:     2,
			MaxGap:     5,
		},
		Settings: smartLeadSettings{
			DailyLimit:  dailyLimit,
			TrackOpens:  true,
			TrackClicks: true,
		},
		Sequences: []smartLeadSequence{
			{Position: 1, Subject: req.Subject, Message: req.Body, WaitDays: 0},
		},
	}

	var result struct {
		ID json.RawMessage `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/campaigns", payload, &result); err != nil {
		return nil, err
	}

	id, err := decodeExternalID(result.ID)
	if err != nil {
		return nil, err
	}
	return &ExternalCampaign{ID: id}, nil
}

// AddLeads pushes a batch of leads into the external campaign
func (c *SmartLeadClient) AddLeads(ctx context.Context, externalID string, leads []ExternalLead) error {
	body := struct {
		Leads []ExternalLead `json:"leads"`
	}{Leads: leads}
	return c.do(ctx, http.MethodPost, "/campaigns/"+url.PathEscape(externalID)+"/leads", body, nil)
}

// SetStatus changes the run status of the external campaign
func (c *SmartLeadClient) SetStatus(ctx context.Context, externalID, status string) error {
	body := map[string]string{"status": status}
	return c.do(ctx, http.MethodPost, "/campaigns/"+url.PathEscape(externalID)+"/status", body, nil)
}

// ReplyToLead answers a lead inside the provider's thread
func (c *SmartLeadClient) ReplyToLead(ctx context.Context, externalID, externalLeadID, message string) error {
	body := map[string]string{"message": message}
	path := fmt.Sprintf("/email-campaigns/%s/leads/%s/reply", url.PathEscape(externalID), url.PathEscape(externalLeadID))
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *SmartLeadClient) do(ctx context.Context, method, endpoint string, payload, out any) error {
	if c.config.APIKey == "" {
		return fmt.Errorf("SMARTLEAD_API_KEY is not configured")
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SmartLead request: %w", err)
	}

	separator := "?"
	if strings.Contains(endpoint, "?") {
		separator = "&"
	}
	target := strings.TrimRight(c.config.BaseURL, "/") + endpoint + separator + "api_key=" + url.QueryEscape(c.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call SmartLead %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read SmartLead response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode SmartLead response: %w", err)
		}
	}
	return nil
}

// decodeExternalID accepts the id as a JSON number or string
func decodeExternalID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("SmartLead response has no campaign id")
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil && asString != "" {
		return asString, nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if _, err := strconv.ParseFloat(asNumber.String(), 64); err == nil {
			return asNumber.String(), nil
		}
	}

	return "", fmt.Errorf("SmartLead returned an unexpected campaign id: %s", string(raw))
}
