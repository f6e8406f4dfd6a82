package businessflow

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/models"
	testutil "github.com/amirphl/nightpulse/testing"
	"github.com/amirphl/nightpulse/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var blendNow = time.Date(2026, 10, 16, 21, 0, 0, 0, time.UTC)

type memVotes struct {
	byNight map[string][]*models.Vote
	fail    string
}

func (m *memVotes) ListByNight(_ context.Context, mode models.VoteMode, night string) ([]*models.Vote, error) {
	if night == m.fail {
		return nil, errors.New("bucket unavailable")
	}
	var out []*models.Vote
	for _, v := range m.byNight[night] {
		if v.Mode == mode {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memVotes) add(night, uid string, intent models.VoteIntent, sels ...models.Selection) {
	if m.byNight == nil {
		m.byNight = map[string][]*models.Vote{}
	}
	mode := models.VoteModeNightlife
	if len(sels) > 0 {
		mode = sels[0].Kind
	}
	m.byNight[night] = append(m.byNight[night], &models.Vote{
		Mode:         mode,
		NightKey:     night,
		UID:          uid,
		Intent:       intent,
		Selections:   sels,
		LastEditedAt: blendNow.Add(-30 * time.Minute),
	})
}

func newTestBlender(t *testing.T, votes VoteReader) (*PredictionBlender, *utils.NightKeyResolver) {
	t.Helper()
	cfg := config.DefaultEngineConfig()
	nights, err := utils.NewNightKeyResolver(cfg.Timezone, cfg.RolloverHour)
	require.NoError(t, err)
	calc, err := NewVoteWeightCalculator(cfg)
	require.NoError(t, err)
	agg := NewTallyAggregator(votes, testutil.NewStaticVenues(), calc, cfg.FanOutLimit, utils.FixedClock(blendNow))
	return NewPredictionBlender(cfg, nights, agg), nights
}

func TestHistoryKeys(t *testing.T) {
	b, _ := newTestBlender(t, &memVotes{})

	same, recent, err := b.HistoryKeys("20261016")
	require.NoError(t, err)
	require.Len(t, same, 8)
	require.Len(t, recent, 14)
	assert.Equal(t, "20261009", same[0])
	assert.Equal(t, "20260821", same[7])
	assert.Equal(t, "20261015", recent[0])
	assert.Equal(t, "20261002", recent[13])

	_, _, err = b.HistoryKeys("2026-10-16")
	assert.ErrorIs(t, err, ErrInvalidNightKey)
}

func TestAggregateVotes_Deterministic(t *testing.T) {
	votes := &memVotes{}
	lat, lng := 53.5691, -2.8811
	for i, venue := range []string{"alpha", "bravo", "alpha", "charlie", "alpha", "bravo"} {
		intent := models.VoteIntentYes
		if i%2 == 1 {
			intent = models.VoteIntentMaybe
		}
		votes.add("20261016", string(rune('a'+i)), intent, models.NewNightlifeSelection(venue, models.ArrivalWindows[i%4]))
	}
	votes.byNight["20261016"][0].Lat = &lat
	votes.byNight["20261016"][0].Lng = &lng
	votes.add("20261016", "stay-home", models.VoteIntentNo)

	calc, err := NewVoteWeightCalculator(config.DefaultEngineConfig())
	require.NoError(t, err)
	venues := testutil.NewStaticVenues()

	all := votes.byNight["20261016"]
	first := AggregateVotes(all, venues, models.VoteModeNightlife, calc, blendNow)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]*models.Vote(nil), all...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		again := AggregateVotes(shuffled, venues, models.VoteModeNightlife, calc, blendNow)
		assert.Equal(t, first, again)
	}

	assert.Equal(t, 1, first.StayIn)
	assert.Equal(t, 3, first.Get("alpha").Voters)
	assert.Equal(t, 2, first.Get("bravo").Voters)
	assert.Equal(t, 0, first.Get("delta").Voters)
}

func TestAggregateVotes_SkipsUnknownVenuesAndOtherModes(t *testing.T) {
	price := 12.0
	votes := []*models.Vote{
		{Mode: models.VoteModeNightlife, UID: "a", Intent: models.VoteIntentYes, Selections: []models.Selection{models.NewNightlifeSelection("ghost", "")}},
		{Mode: models.VoteModeFood, UID: "b", Intent: models.VoteIntentYes, Selections: []models.Selection{models.NewFoodSelection("echo", &price)}},
	}
	calc, err := NewVoteWeightCalculator(config.DefaultEngineConfig())
	require.NoError(t, err)

	set := AggregateVotes(votes, testutil.NewStaticVenues(), models.VoteModeNightlife, calc, blendNow)
	assert.Empty(t, set.Venues)

	food := AggregateVotes(votes, testutil.NewStaticVenues(), models.VoteModeFood, calc, blendNow)
	echo := food.Get("echo")
	avg, ok := echo.AvgPrice()
	assert.True(t, ok)
	assert.Equal(t, 12, avg)
}

func TestPredict_MaxScoreIsHundred(t *testing.T) {
	votes := &memVotes{}
	// same weekday history: alpha strong, bravo weaker
	for i := 0; i < 6; i++ {
		votes.add("20261009", "s-alpha-"+string(rune('a'+i)), models.VoteIntentYes, models.NewNightlifeSelection("alpha", "22-23"))
	}
	for i := 0; i < 3; i++ {
		votes.add("20261002", "s-bravo-"+string(rune('a'+i)), models.VoteIntentYes, models.NewNightlifeSelection("bravo", "21-22"))
	}
	// recent history: charlie only
	for i := 0; i < 4; i++ {
		votes.add("20261014", "r-charlie-"+string(rune('a'+i)), models.VoteIntentMaybe, models.NewNightlifeSelection("charlie", "23-24"))
	}

	b, _ := newTestBlender(t, votes)
	p, err := b.Predict(context.Background(), models.VoteModeNightlife, "20261016")
	require.NoError(t, err)

	maxScore := 0
	for _, item := range p.Items {
		maxScore = max(maxScore, item.Score)
		assert.GreaterOrEqual(t, item.Score, 0)
		assert.LessOrEqual(t, item.Score, 100)
	}
	assert.Equal(t, 100, maxScore)
	assert.Equal(t, "alpha", p.Top[0])
	assert.Equal(t, "22-23", p.Items["alpha"].TypicalPeak)
	assert.NotContains(t, p.Items, "delta")
	assert.Len(t, p.SourceNights, 20)

	again, err := b.Predict(context.Background(), models.VoteModeNightlife, "20261016")
	require.NoError(t, err)
	assert.Equal(t, p.Items, again.Items)
	assert.Equal(t, p.Top, again.Top)
}

func TestPredict_NoHistory(t *testing.T) {
	b, _ := newTestBlender(t, &memVotes{})
	p, err := b.Predict(context.Background(), models.VoteModeFood, "20261016")
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.Empty(t, p.Top)
}

func TestPredict_FailedBucketFailsWhole(t *testing.T) {
	b, _ := newTestBlender(t, &memVotes{fail: "20261010"})
	_, err := b.Predict(context.Background(), models.VoteModeNightlife, "20261016")
	assert.ErrorIs(t, err, ErrStorage)
}

func TestTypicalPeak_FirstMaximumWins(t *testing.T) {
	assert.Equal(t, "21-22", typicalPeak(map[string]int{"21-22": 2, "23-24": 2}))
	assert.Equal(t, "23-24", typicalPeak(map[string]int{"21-22": 1}, map[string]int{"23-24": 3}))
	assert.Equal(t, "", typicalPeak(nil))
}
