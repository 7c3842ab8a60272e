package testing

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/utils"
)

var fixtureSeq atomic.Int64

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *gorm.DB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *gorm.DB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestProfile creates a profile for a fresh user id
func (tf *TestFixtures) CreateTestProfile() (*models.Profile, error) {
	n := fixtureSeq.Add(1)
	profile := &models.Profile{
		ID:       uuid.New(),
		Email:    fmt.Sprintf("owner.%d@example.com", n),
		FullName: "Owner Test",
	}
	if err := tf.DB.Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

// CreateTestLead creates a lead owned by userID. An empty email produces a lead without one.
func (tf *TestFixtures) CreateTestLead(userID uuid.UUID, email string) (*models.Lead, error) {
	lead := &models.Lead{
		UserID:      userID,
		FirstName:   "Jane",
		LastName:    "Doe",
		ContactName: "Jane Doe",
		Email:       email,
		CompanyName: "Acme",
		Title:       "CTO",
		Industry:    "Software",
		Location:    "Berlin",
		Source:      models.LeadSourceManual,
	}
	if err := tf.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

// CreateTestCampaign creates a campaign with pending campaign leads for the given leads
func (tf *TestFixtures) CreateTestCampaign(userID uuid.UUID, status models.CampaignStatus, leads ...*models.Lead) (*models.Campaign, error) {
	n := fixtureSeq.Add(1)
	campaign := &models.Campaign{
		UserID:       userID,
		Name:         fmt.Sprintf("Campaign %d", n),
		Subject:      "Hello {{first_name}}",
		EmailContent: "Hi {{first_name}} from {{company}}, see https://example.com/offer",
		Status:       status,
		TotalLeads:   len(leads),
	}
	if err := tf.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	for _, lead := range leads {
		cl := &models.CampaignLead{CampaignID: campaign.ID, LeadID: lead.ID}
		if err := tf.DB.Create(cl).Error; err != nil {
			return nil, fmt.Errorf("failed to create campaign lead: %w", err)
		}
	}

	return campaign, nil
}

// CreateTestTracking creates a sent email tracking row
func (tf *TestFixtures) CreateTestTracking(campaignID, leadID uint) (*models.EmailTracking, error) {
	row := &models.EmailTracking{
		CampaignID: campaignID,
		LeadID:     leadID,
		Subject:    "Hello",
		Content:    "Body",
		ExternalID: utils.ToPtr(fmt.Sprintf("test-%d-%d", campaignID, leadID)),
	}
	if err := tf.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create email tracking: %w", err)
	}
	return row, nil
}

// MarkCampaignLead forces a campaign lead into a status
func (tf *TestFixtures) MarkCampaignLead(campaignID, leadID uint, status models.CampaignLeadStatus) error {
	return tf.DB.Model(&models.CampaignLead{}).
		Where("campaign_id = ? AND lead_id = ?", campaignID, leadID).
		Update("status", status).Error
}
