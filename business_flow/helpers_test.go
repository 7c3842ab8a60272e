package businessflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/amirphl/orochi-outreach/app/services"
	businessflow "github.com/amirphl/orochi-outreach/business_flow"
	"github.com/amirphl/orochi-outreach/config"
	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/repository"
	testingutil "github.com/amirphl/orochi-outreach/testing"
)

type flowEnv struct {
	db               *gorm.DB
	fixtures         *testingutil.TestFixtures
	profileRepo      repository.ProfileRepository
	leadRepo         repository.LeadRepository
	campaignRepo     repository.CampaignRepository
	campaignLeadRepo repository.CampaignLeadRepository
	trackingRepo     repository.EmailTrackingRepository
	linkRepo         repository.LinkTrackingRepository
	cache            *services.MemoryCache
	publisher        *recordingPublisher
	notifyMailer     *fakeMailer
	notifier         services.NotificationService
	cacheConfig      config.CacheConfig
	logger           *zap.Logger
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()
	db := testingutil.NewSQLiteTestDB(t)
	notifyMailer := &fakeMailer{failFor: map[string]error{}}
	return &flowEnv{
		db:               db,
		fixtures:         testingutil.NewTestFixtures(db),
		profileRepo:      repository.NewProfileRepository(db),
		leadRepo:         repository.NewLeadRepository(db),
		campaignRepo:     repository.NewCampaignRepository(db),
		campaignLeadRepo: repository.NewCampaignLeadRepository(db),
		trackingRepo:     repository.NewEmailTrackingRepository(db),
		linkRepo:         repository.NewLinkTrackingRepository(db),
		cache:            services.NewMemoryCache(),
		publisher:        &recordingPublisher{},
		notifyMailer:     notifyMailer,
		notifier:         services.NewEmailNotificationService(notifyMailer, "https://app.example.com"),
		cacheConfig:      config.CacheConfig{RedisPrefix: "test:"},
		logger:           zap.NewNop(),
	}
}

func (e *flowEnv) owner(t *testing.T) uuid.UUID {
	t.Helper()
	profile, err := e.fixtures.CreateTestProfile()
	require.NoError(t, err)
	return profile.ID
}

func (e *flowEnv) lead(t *testing.T, userID uuid.UUID, email string) *models.Lead {
	t.Helper()
	lead, err := e.fixtures.CreateTestLead(userID, email)
	require.NoError(t, err)
	return lead
}

func (e *flowEnv) campaign(t *testing.T, userID uuid.UUID, status models.CampaignStatus, leads ...*models.Lead) *models.Campaign {
	t.Helper()
	campaign, err := e.fixtures.CreateTestCampaign(userID, status, leads...)
	require.NoError(t, err)
	return campaign
}

func (e *flowEnv) reloadCampaign(t *testing.T, id uint) *models.Campaign {
	t.Helper()
	campaign, err := e.campaignRepo.ByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, campaign)
	return campaign
}

func (e *flowEnv) campaignLeadStatus(t *testing.T, campaignID, leadID uint) models.CampaignLeadStatus {
	t.Helper()
	rows, err := e.campaignLeadRepo.ByFilter(context.Background(), models.CampaignLeadFilter{CampaignID: &campaignID, LeadID: &leadID}, "", 1, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0].Status
}

func (e *flowEnv) trackingFlow() businessflow.TrackingFlow {
	return businessflow.NewTrackingFlow(
		e.campaignRepo,
		e.leadRepo,
		e.campaignLeadRepo,
		e.trackingRepo,
		e.linkRepo,
		e.profileRepo,
		e.cache,
		e.publisher,
		e.notifier,
		e.cacheConfig,
		e.logger,
		e.db,
	)
}

func (e *flowEnv) campaignFlow(gateway services.CampaignGateway) businessflow.CampaignFlow {
	return businessflow.NewCampaignFlow(
		e.campaignRepo,
		e.campaignLeadRepo,
		e.leadRepo,
		e.profileRepo,
		e.trackingRepo,
		e.linkRepo,
		gateway,
		e.cache,
		e.publisher,
		e.cacheConfig,
		config.OutreachConfig{},
		e.logger,
		e.db,
	)
}

// fakeGateway records provider calls; the err fields fail the matching call
type fakeGateway struct {
	mu        sync.Mutex
	nextID    int
	created   []services.CreateExternalCampaignRequest
	added     map[string][]services.ExternalLead
	statuses  []string
	replies   []string
	createErr error
	addErr    error
	statusErr error
	replyErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{added: make(map[string][]services.ExternalLead)}
}

func (g *fakeGateway) CreateCampaign(_ context.Context, req services.CreateExternalCampaignRequest) (*services.ExternalCampaign, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextID++
	g.created = append(g.created, req)
	return &services.ExternalCampaign{ID: fmt.Sprintf("ext-%d", g.nextID)}, nil
}

func (g *fakeGateway) AddLeads(_ context.Context, externalID string, leads []services.ExternalLead) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.addErr != nil {
		return g.addErr
	}
	g.added[externalID] = append(g.added[externalID], leads...)
	return nil
}

func (g *fakeGateway) SetStatus(_ context.Context, externalID, status string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusErr != nil {
		return g.statusErr
	}
	g.statuses = append(g.statuses, externalID+":"+status)
	return nil
}

func (g *fakeGateway) ReplyToLead(_ context.Context, externalID, externalLeadID, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.replyErr != nil {
		return g.replyErr
	}
	g.replies = append(g.replies, externalID+":"+externalLeadID+":"+message)
	return nil
}

// fakeMailer records messages and fails the recipients listed in failFor
type fakeMailer struct {
	mu      sync.Mutex
	sent    []services.OutgoingEmail
	failFor map[string]error
}

func (m *fakeMailer) Send(_ context.Context, email services.OutgoingEmail) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[email.To]; ok {
		return "", err
	}
	m.sent = append(m.sent, email)
	return fmt.Sprintf("<msg-%d@mail.test>", len(m.sent)), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []services.OutreachEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event services.OutreachEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
