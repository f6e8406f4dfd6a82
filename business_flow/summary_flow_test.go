package businessflow_test

import (
	"testing"
	"time"

	"github.com/amirphl/nightpulse/app/dto"
	businessflow "github.com/amirphl/nightpulse/business_flow"
	"github.com/amirphl/nightpulse/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedHistory puts votes on past nights of the target 20261016
func seedHistory(t *testing.T, env *flowEnv) {
	t.Helper()
	past := flowNow.Add(-7 * 24 * time.Hour)
	require.NoError(t, env.fx.CreateNightlifeVotes("20261009", "alpha", "22-23", past,
		"u1", "u2", "u3", "u4"))
	require.NoError(t, env.fx.CreateNightlifeVotes("20261009", "bravo", "21-22", past,
		"u5", "u6"))
	require.NoError(t, env.fx.CreateNightlifeVotes("20261014", "charlie", "23-24", past,
		"u7", "u8", "u9"))
}

func TestSummary_GenerateIsIdempotent(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()
	seedHistory(t, env)

	first, err := env.summaries.Generate(ctx, models.VoteModeNightlife, tonight, businessflow.GenerateOptions{Force: true})
	require.NoError(t, err)
	assert.True(t, first.Written)
	require.NotEmpty(t, first.Items)
	assert.Equal(t, 100, first.Items[0].Score)
	assert.Equal(t, "alpha", first.Top[0])

	second, err := env.summaries.Generate(ctx, models.VoteModeNightlife, tonight, businessflow.GenerateOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, first.Top, second.Top)
	assert.Equal(t, first.SourceNights, second.SourceNights)

	var rows int64
	require.NoError(t, env.db.DB.Model(&models.PredictionSummary{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestSummary_GenerateIfAbsentKeepsExisting(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()

	empty, err := env.summaries.GenerateIfAbsent(ctx, models.VoteModeNightlife, tonight)
	require.NoError(t, err)
	assert.True(t, empty.Written)
	assert.Empty(t, empty.Items)

	// history arriving later does not change a stored summary
	seedHistory(t, env)
	again, err := env.summaries.GenerateIfAbsent(ctx, models.VoteModeNightlife, tonight)
	require.NoError(t, err)
	assert.False(t, again.Written)
	assert.Empty(t, again.Items)

	kept, err := env.summaries.Generate(ctx, models.VoteModeNightlife, tonight, businessflow.GenerateOptions{})
	require.NoError(t, err)
	assert.False(t, kept.Written)
	assert.Empty(t, kept.Items)

	forced, err := env.summaries.Generate(ctx, models.VoteModeNightlife, tonight, businessflow.GenerateOptions{Force: true})
	require.NoError(t, err)
	assert.True(t, forced.Written)
	assert.NotEmpty(t, forced.Items)
}

func TestSummary_DryRunDoesNotWrite(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()
	seedHistory(t, env)

	resp, err := env.summaries.Generate(ctx, models.VoteModeNightlife, tonight, businessflow.GenerateOptions{DryRun: true})
	require.NoError(t, err)
	assert.False(t, resp.Written)
	assert.NotEmpty(t, resp.Items)

	stored, err := env.summaryRep.ByModeAndNight(ctx, models.VoteModeNightlife, tonight)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSummary_HiddenVenuesAreDropped(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()
	seedHistory(t, env)

	_, err := env.flagRepo.MarkHidden(ctx, "alpha", flowNow)
	require.NoError(t, err)

	resp, err := env.summaries.Predictions(ctx, &dto.NightQuery{Mode: "nightlife"})
	require.NoError(t, err)
	assert.Equal(t, tonight, resp.Night)
	assert.NotContains(t, resp.Top, "alpha")
	for _, item := range resp.Items {
		assert.NotEqual(t, "alpha", item.VenueID)
	}
}

func TestSummary_Backfill(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()

	_, err := env.summaries.Backfill(ctx, models.VoteModeFood, "", 0, false)
	assert.ErrorIs(t, err, businessflow.ErrBackfillRange)
	_, err = env.summaries.Backfill(ctx, models.VoteModeFood, "", 61, false)
	assert.ErrorIs(t, err, businessflow.ErrBackfillRange)

	resp, err := env.summaries.Backfill(ctx, models.VoteModeFood, "", 3, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"20261015", "20261014", "20261013"}, resp.Nights)
	var rows int64
	require.NoError(t, env.db.DB.Model(&models.PredictionSummary{}).Count(&rows).Error)
	assert.Zero(t, rows)

	resp, err = env.summaries.Backfill(ctx, models.VoteModeFood, "20261010", 2, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"20261009", "20261008"}, resp.Nights)
	require.NoError(t, env.db.DB.Model(&models.PredictionSummary{}).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)
}

func TestSummary_GenerateAll(t *testing.T) {
	env := newFlowEnv(t)
	ctx := ctxWithRequestID()

	resp, err := env.summaries.GenerateAll(ctx, &dto.GenerateSummaryRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Summaries, 2)
	assert.Equal(t, "nightlife", resp.Summaries[0].Mode)
	assert.Equal(t, "food", resp.Summaries[1].Mode)

	_, err = env.summaries.GenerateAll(ctx, &dto.GenerateSummaryRequest{Mode: "brunch"})
	assert.True(t, businessflow.IsValidation(err))

	_, err = env.summaries.GenerateIfAbsent(ctx, models.VoteModeFood, "yesterday")
	assert.ErrorIs(t, err, businessflow.ErrInvalidNightKey)
}
