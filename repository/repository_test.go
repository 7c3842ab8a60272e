package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/orochi-outreach/models"
	"github.com/amirphl/orochi-outreach/repository"
	testingutil "github.com/amirphl/orochi-outreach/testing"
	"github.com/amirphl/orochi-outreach/utils"
)

func TestLeadRepository(t *testing.T) {
	db := testingutil.NewSQLiteTestDB(t)
	fixtures := testingutil.NewTestFixtures(db)
	repo := repository.NewLeadRepository(db)
	ctx := testingutil.CreateTestContext()

	owner, err := fixtures.CreateTestProfile()
	require.NoError(t, err)
	stranger, err := fixtures.CreateTestProfile()
	require.NoError(t, err)

	lead, err := fixtures.CreateTestLead(owner.ID, "Lead.One@Example.com")
	require.NoError(t, err)

	t.Run("ByUUIDForUser", func(t *testing.T) {
		found, err := repo.ByUUIDForUser(ctx, owner.ID, lead.UUID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, lead.ID, found.ID)

		notOwned, err := repo.ByUUIDForUser(ctx, stranger.ID, lead.UUID)
		require.NoError(t, err)
		assert.Nil(t, notOwned)
	})

	t.Run("ByEmailForUserIgnoresCase", func(t *testing.T) {
		found, err := repo.ByEmailForUser(ctx, owner.ID, "lead.one@EXAMPLE.com")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, lead.ID, found.ID)

		missing, err := repo.ByEmailForUser(ctx, owner.ID, "")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("UpsertByEmail", func(t *testing.T) {
		batch := []*models.Lead{
			{UserID: owner.ID, FirstName: "Updated", Email: "LEAD.ONE@example.com", Source: models.LeadSourceImport},
			{UserID: owner.ID, FirstName: "Fresh", Email: "fresh@example.com", Source: models.LeadSourceImport},
		}
		require.NoError(t, repo.UpsertByEmail(ctx, batch))

		updated, err := repo.ByID(ctx, lead.ID)
		require.NoError(t, err)
		assert.Equal(t, "Updated", updated.FirstName)
		assert.Equal(t, lead.UUID, updated.UUID)

		count, err := repo.Count(ctx, models.LeadFilter{UserID: &owner.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("SearchFilter", func(t *testing.T) {
		search := "FRESH"
		leads, err := repo.ByFilter(ctx, models.LeadFilter{UserID: &owner.ID, Search: &search}, "id ASC", 10, 0)
		require.NoError(t, err)
		require.Len(t, leads, 1)
		assert.Equal(t, "fresh@example.com", leads[0].Email)
	})

	t.Run("ListByUUIDs", func(t *testing.T) {
		foreign, err := fixtures.CreateTestLead(stranger.ID, "foreign@example.com")
		require.NoError(t, err)

		leads, err := repo.ListByUUIDs(ctx, owner.ID, []uuid.UUID{lead.UUID, foreign.UUID})
		require.NoError(t, err)
		require.Len(t, leads, 1)
		assert.Equal(t, lead.ID, leads[0].ID)
	})
}

func TestCampaignLeadRepositoryForwardOnly(t *testing.T) {
	db := testingutil.NewSQLiteTestDB(t)
	fixtures := testingutil.NewTestFixtures(db)
	repo := repository.NewCampaignLeadRepository(db)
	ctx := testingutil.CreateTestContext()

	owner, err := fixtures.CreateTestProfile()
	require.NoError(t, err)
	lead, err := fixtures.CreateTestLead(owner.ID, "stage@example.com")
	require.NoError(t, err)
	noEmail, err := fixtures.CreateTestLead(owner.ID, "")
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(owner.ID, models.CampaignStatusDraft, lead, noEmail)
	require.NoError(t, err)

	pending, err := repo.PendingWithLeads(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.NotNil(t, pending[0].Lead)
	assert.Equal(t, "stage@example.com", pending[0].Lead.Email)

	now := utils.UTCNow()

	// pending cannot jump to opened
	n, err := repo.Advance(ctx, campaign.ID, lead.ID, models.CampaignLeadStatusOpened, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.MarkSent(ctx, campaign.ID, []uint{lead.ID}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.MarkSent(ctx, campaign.ID, []uint{lead.ID}, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.Advance(ctx, campaign.ID, lead.ID, models.CampaignLeadStatusReplied, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// replied never moves back to opened
	n, err = repo.Advance(ctx, campaign.ID, lead.ID, models.CampaignLeadStatusOpened, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	rows, err := repo.ByFilter(ctx, models.CampaignLeadFilter{CampaignID: &campaign.ID, LeadID: &lead.ID}, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.CampaignLeadStatusReplied, rows[0].Status)
	assert.NotNil(t, rows[0].SentAt)
	assert.NotNil(t, rows[0].RepliedAt)
	assert.Nil(t, rows[0].OpenedAt)
}

func TestEmailTrackingRepositorySetOnce(t *testing.T) {
	db := testingutil.NewSQLiteTestDB(t)
	fixtures := testingutil.NewTestFixtures(db)
	repo := repository.NewEmailTrackingRepository(db)
	ctx := testingutil.CreateTestContext()

	owner, err := fixtures.CreateTestProfile()
	require.NoError(t, err)
	lead, err := fixtures.CreateTestLead(owner.ID, "open@example.com")
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(owner.ID, models.CampaignStatusActive, lead)
	require.NoError(t, err)
	_, err = fixtures.CreateTestTracking(campaign.ID, lead.ID)
	require.NoError(t, err)

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n, err := repo.SetOpenedOnce(ctx, campaign.ID, lead.ID, first)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.SetOpenedOnce(ctx, campaign.ID, lead.ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	subject, content := "Re: hello", "Sounds good"
	n, err = repo.SetRepliedOnce(ctx, campaign.ID, lead.ID, first, &subject, &content)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	row, err := repo.ByCampaignAndLead(ctx, campaign.ID, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, row.OpenedAt)
	assert.True(t, row.OpenedAt.Equal(first))
	assert.Equal(t, "Sounds good", utils.Deref(row.ReplyContent))

	stats, err := repo.StatsByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EngagementStats{Sent: 1, Opened: 1, Clicked: 0, Replied: 1}, *stats)
}

func TestCampaignRepositoryCounters(t *testing.T) {
	db := testingutil.NewSQLiteTestDB(t)
	fixtures := testingutil.NewTestFixtures(db)
	repo := repository.NewCampaignRepository(db)
	ctx := testingutil.CreateTestContext()

	owner, err := fixtures.CreateTestProfile()
	require.NoError(t, err)
	draft, err := fixtures.CreateTestCampaign(owner.ID, models.CampaignStatusDraft)
	require.NoError(t, err)
	_, err = fixtures.CreateTestCampaign(owner.ID, models.CampaignStatusPaused)
	require.NoError(t, err)

	require.NoError(t, repo.MarkActive(ctx, draft.ID, 3))
	require.NoError(t, repo.IncrementOpened(ctx, draft.ID))
	require.NoError(t, repo.IncrementReplied(ctx, draft.ID))
	require.NoError(t, repo.SetExternalID(ctx, draft.ID, "4242"))

	reloaded, err := repo.ByUUIDForUser(ctx, owner.ID, draft.UUID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive, reloaded.Status)
	assert.Equal(t, 3, reloaded.SentCount)
	assert.Equal(t, 1, reloaded.OpenedCount)
	assert.Equal(t, "4242", utils.Deref(reloaded.ExternalID))
	assert.NotNil(t, reloaded.UpdatedAt)

	counters, err := repo.CountersByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters.TotalCampaigns)
	assert.Equal(t, int64(1), counters.ActiveCampaigns)
	assert.Equal(t, int64(3), counters.Sent)
	assert.Equal(t, int64(1), counters.Replied)

	foreign, err := repo.ByUUIDForUser(ctx, uuid.New(), draft.UUID)
	require.NoError(t, err)
	assert.Nil(t, foreign)
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := testingutil.NewSQLiteTestDB(t)
	fixtures := testingutil.NewTestFixtures(db)
	campaigns := repository.NewCampaignRepository(db)

	owner, err := fixtures.CreateTestProfile()
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(owner.ID, models.CampaignStatusDraft)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repository.WithTransaction(context.Background(), db, func(txCtx context.Context) error {
		if err := campaigns.MarkActive(txCtx, campaign.ID, 5); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	reloaded, err := campaigns.ByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, reloaded.Status)
	assert.Zero(t, reloaded.SentCount)
}
