package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/repository"
	testutil "github.com/amirphl/nightpulse/testing"
	"github.com/amirphl/nightpulse/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var baseTime = time.Date(2025, 3, 14, 21, 0, 0, 0, time.UTC)

func TestVoteRepository_UpsertOverwritesSameKey(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := repository.NewVoteRepository(tdb.DB)
	ctx := context.Background()

	first := &models.Vote{
		Mode:         models.VoteModeNightlife,
		NightKey:     "20250314",
		UID:          "u1",
		Intent:       models.VoteIntentMaybe,
		Selections:   datatypes.JSONSlice[models.Selection]{models.NewNightlifeSelection("alpha", "21-22")},
		LastEditedAt: baseTime,
	}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &models.Vote{
		Mode:         models.VoteModeNightlife,
		NightKey:     "20250314",
		UID:          "u1",
		Intent:       models.VoteIntentYes,
		Selections:   datatypes.JSONSlice[models.Selection]{models.NewNightlifeSelection("bravo", "")},
		LastEditedAt: baseTime.Add(time.Hour),
	}
	require.NoError(t, repo.Upsert(ctx, second))

	count, err := repo.Count(ctx, models.VoteFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := repo.ByKey(ctx, models.VoteModeNightlife, "20250314", "u1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.VoteIntentYes, stored.Intent)
	require.Len(t, stored.Selections, 1)
	assert.Equal(t, "bravo", stored.Selections[0].VenueID())
	assert.True(t, stored.LastEditedAt.Equal(baseTime.Add(time.Hour)))
}

func TestVoteRepository_ListByNightIsolatesBuckets(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	fx := testutil.NewTestFixtures(tdb)
	repo := repository.NewVoteRepository(tdb.DB)
	ctx := context.Background()

	require.NoError(t, fx.CreateNightlifeVotes("20250314", "alpha", "", baseTime, "u3", "u1", "u2"))
	require.NoError(t, fx.CreateNightlifeVotes("20250313", "alpha", "", baseTime, "u9"))
	_, err := fx.CreateVote(models.VoteModeFood, "20250314", "u4", models.VoteIntentYes, baseTime,
		models.NewFoodSelection("echo", utils.ToPtr(12.0)))
	require.NoError(t, err)

	votes, err := repo.ListByNight(ctx, models.VoteModeNightlife, "20250314")
	require.NoError(t, err)
	require.Len(t, votes, 3)
	assert.Equal(t, "u1", votes[0].UID)
	assert.Equal(t, "u2", votes[1].UID)
	assert.Equal(t, "u3", votes[2].UID)

	missing, err := repo.ByKey(ctx, models.VoteModeFood, "20250314", "u1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSubmissionQuotaRepository_TryIncrement(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := repository.NewSubmissionQuotaRepository(tdb.DB)
	ctx := context.Background()

	ok, err := repo.TryIncrement(ctx, "u1", "20250314", 2, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TryIncrement(ctx, "u1", "20250314", 2, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TryIncrement(ctx, "u1", "20250314", 2, baseTime)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.TryIncrement(ctx, "u1", "20250315", 2, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	quota, err := repo.ByKey(ctx, "u1", "20250314")
	require.NoError(t, err)
	require.NotNil(t, quota)
	assert.Equal(t, 2, quota.Count)
}

func TestHousepartyRepository_TransitionStatusIsConditional(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	fx := testutil.NewTestFixtures(tdb)
	repo := repository.NewHousepartyRepository(tdb.DB)
	ctx := context.Background()

	hp, err := fx.CreateHouseparty("20250314", "u1", models.HousepartyStatusPending,
		utils.LatLng{Lat: 53.569, Lng: -2.881}, baseTime, baseTime.Add(3*time.Hour))
	require.NoError(t, err)

	moved, err := repo.TransitionStatus(ctx, hp.ID, models.HousepartyStatusActive, models.HousepartyStatusHidden, nil)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = repo.TransitionStatus(ctx, hp.ID, models.HousepartyStatusPending, models.HousepartyStatusActive,
		map[string]any{"moderated_by_uid": "admin"})
	require.NoError(t, err)
	assert.True(t, moved)

	stored, err := repo.ByUUID(ctx, hp.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.HousepartyStatusActive, stored.Status)
	require.NotNil(t, stored.ModeratedByUID)
	assert.Equal(t, "admin", *stored.ModeratedByUID)
}

func TestHousepartyRepository_ListForDedupCoversEveryStatus(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	fx := testutil.NewTestFixtures(tdb)
	repo := repository.NewHousepartyRepository(tdb.DB)
	ctx := context.Background()

	at := utils.LatLng{Lat: 53.569, Lng: -2.881}
	for _, status := range []models.HousepartyStatus{
		models.HousepartyStatusPending, models.HousepartyStatusActive,
		models.HousepartyStatusRejected, models.HousepartyStatusHidden,
	} {
		_, err := fx.CreateHouseparty("20250314", "u1", status, at, baseTime, baseTime.Add(time.Hour))
		require.NoError(t, err)
	}
	_, err := fx.CreateHouseparty("20250313", "u1", models.HousepartyStatusActive, at, baseTime, baseTime.Add(time.Hour))
	require.NoError(t, err)

	rows, err := repo.ListForDedup(ctx, "20250314")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	for _, row := range rows {
		assert.Equal(t, "20250314", row.NightKey)
	}
}

func TestNightLockRepository_RequiresTransaction(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := repository.NewNightLockRepository(tdb.DB)
	ctx := context.Background()

	assert.Error(t, repo.Acquire(ctx, "20250314", baseTime))

	err := repository.WithTransaction(ctx, tdb.DB, func(txCtx context.Context) error {
		if err := repo.Acquire(txCtx, "20250314", baseTime); err != nil {
			return err
		}
		return repo.Acquire(txCtx, "20250314", baseTime.Add(time.Minute))
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, tdb.DB.Model(&models.NightLock{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestVenueFlagRepository_MarkHiddenIsIdempotent(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := repository.NewVenueFlagRepository(tdb.DB)
	ctx := context.Background()

	changed, err := repo.MarkHidden(ctx, "alpha", baseTime)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkHidden(ctx, "alpha", baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)

	hidden, err := repo.HiddenVenueIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"alpha": true}, hidden)

	flag, err := repo.ByVenueID(ctx, "bravo")
	require.NoError(t, err)
	assert.Nil(t, flag)
}

func TestPredictionSummaryRepository_UpsertReplacesRow(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := repository.NewPredictionSummaryRepository(tdb.DB)
	ctx := context.Background()

	first := &models.PredictionSummary{
		Mode:        models.VoteModeNightlife,
		NightKey:    "20250314",
		GeneratedAt: baseTime,
		Items: datatypes.NewJSONType(map[string]models.SummaryItem{
			"alpha": {Score: 100, TypicalPeak: "22-23"},
		}),
		Top:          []string{"alpha"},
		SourceNights: []string{"20250307"},
	}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &models.PredictionSummary{
		Mode:        models.VoteModeNightlife,
		NightKey:    "20250314",
		GeneratedAt: baseTime.Add(time.Hour),
		Items: datatypes.NewJSONType(map[string]models.SummaryItem{
			"bravo": {Score: 100},
			"alpha": {Score: 40},
		}),
		Top: []string{"bravo", "alpha"},
	}
	require.NoError(t, repo.Upsert(ctx, second))

	stored, err := repo.ByModeAndNight(ctx, models.VoteModeNightlife, "20250314")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []string{"bravo", "alpha"}, []string(stored.Top))
	assert.Equal(t, 40, stored.ItemMap()["alpha"].Score)
	assert.True(t, stored.GeneratedAt.Equal(baseTime.Add(time.Hour)))

	other, err := repo.ByModeAndNight(ctx, models.VoteModeFood, "20250314")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestUserProfileRepository_TrustScoreDefaultsToZero(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := repository.NewUserProfileRepository(tdb.DB)
	ctx := context.Background()

	score, err := repo.TrustScore(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	require.NoError(t, repo.Upsert(ctx, &models.UserProfile{UID: "u1", TrustScore: 2}))
	require.NoError(t, repo.Upsert(ctx, &models.UserProfile{UID: "u1", TrustScore: 5}))

	score, err = repo.TrustScore(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, score)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	repo := repository.NewReportRepository(tdb.DB)
	ctx := context.Background()

	err := repository.WithTransaction(ctx, tdb.DB, func(txCtx context.Context) error {
		if err := repo.Save(txCtx, &models.Report{
			TargetKind: models.ReportTargetVenue,
			TargetID:   "alpha",
			NightKey:   "20250314",
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	count, err := repo.Count(ctx, models.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
