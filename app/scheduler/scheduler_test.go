package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/app/services"
	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeQueueCoalesces(t *testing.T) {
	q := NewRecomputeQueue(2)
	a := RecomputeKey{Mode: models.VoteModeNightlife, Night: "20261016"}
	b := RecomputeKey{Mode: models.VoteModeFood, Night: "20261016"}
	c := RecomputeKey{Mode: models.VoteModeNightlife, Night: "20261015"}

	for i := 0; i < 5; i++ {
		assert.True(t, q.Enqueue(a))
	}
	assert.Equal(t, 1, q.Pending())

	assert.True(t, q.Enqueue(b))
	assert.False(t, q.Enqueue(c), "full queue drops new keys")
	assert.Equal(t, uint64(1), q.Dropped())

	ctx := context.Background()
	got, ok := q.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, a, got)

	// still pending until released
	assert.True(t, q.Enqueue(a))
	assert.Equal(t, 2, q.Pending())

	q.Release(a)
	assert.True(t, q.Enqueue(a))
	assert.Equal(t, 2, q.Pending())
}

func TestRecomputeQueueNextHonoursContext(t *testing.T) {
	q := NewRecomputeQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := q.Next(ctx)
	assert.False(t, ok)
}

type fakeRecomputer struct {
	mu    sync.Mutex
	calls []RecomputeKey
	err   error
}

func (f *fakeRecomputer) RecomputeLive(_ context.Context, mode models.VoteMode, night string) (*dto.LiveTallyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, RecomputeKey{Mode: mode, Night: night})
	return &dto.LiveTallyResponse{Mode: string(mode), Night: night}, f.err
}

func (f *fakeRecomputer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRecomputeWorkerBurstYieldsSingleRun(t *testing.T) {
	rec := &fakeRecomputer{}
	q := NewRecomputeQueue(8)
	w := NewRecomputeWorker(q, rec, 50*time.Millisecond, time.Second, nil)

	stop := w.Start(context.Background())
	defer stop()

	ev := services.ChangeEvent{Mode: models.VoteModeNightlife, Night: "20261016"}
	for i := 0; i < 10; i++ {
		w.HandleChange(ev)
	}

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 0, q.Pending())

	// a write after the run triggers another recompute
	w.HandleChange(ev)
	require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestRecomputeWorkerKeepsRunningAfterErrors(t *testing.T) {
	rec := &fakeRecomputer{err: errors.New("storage down")}
	q := NewRecomputeQueue(8)
	w := NewRecomputeWorker(q, rec, 0, time.Second, nil)

	stop := w.Start(context.Background())
	defer stop()

	w.HandleChange(services.ChangeEvent{Mode: models.VoteModeFood, Night: "20261016"})
	w.HandleChange(services.ChangeEvent{Mode: models.VoteModeNightlife, Night: "20261016"})
	require.Eventually(t, func() bool { return rec.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

type fakeSummaries struct {
	last *dto.GenerateSummaryRequest
	err  error
}

func (f *fakeSummaries) GenerateAll(_ context.Context, req *dto.GenerateSummaryRequest) (*dto.GenerateSummaryResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.GenerateSummaryResponse{Summaries: []dto.PredictionResponse{{Mode: "nightlife", Night: req.Night}}}, nil
}

type fakeSweeper struct{ runs int }

func (f *fakeSweeper) Sweep(context.Context) (*dto.SweepReportsResponse, error) {
	f.runs++
	return &dto.SweepReportsResponse{TargetsEvaluated: 1, Hidden: []string{"venue:styles-bar"}}, nil
}

func newTestScheduler(t *testing.T, cfg config.SchedulerConfig, summaries SummaryGenerator, reports ReportSweeper) *JobScheduler {
	t.Helper()
	nights, err := utils.NewNightKeyResolver("Europe/London", 5)
	require.NoError(t, err)
	// 22:00 BST on 16 Oct 2026
	clock := utils.FixedClock(time.Date(2026, 10, 16, 21, 0, 0, 0, time.UTC))
	s, err := NewJobScheduler(summaries, reports, nights, nil, config.CacheConfig{}, cfg, clock, nil)
	require.NoError(t, err)
	return s
}

func TestJobSchedulerRegistersJobs(t *testing.T) {
	s := newTestScheduler(t, config.DefaultSchedulerConfig(), &fakeSummaries{}, &fakeSweeper{})
	assert.Equal(t, 2, s.Entries())

	cfg := config.DefaultSchedulerConfig()
	cfg.SweepSpec = ""
	s = newTestScheduler(t, cfg, &fakeSummaries{}, &fakeSweeper{})
	assert.Equal(t, 1, s.Entries())

	nights, err := utils.NewNightKeyResolver("Europe/London", 5)
	require.NoError(t, err)
	cfg.GenerateSpec = "every evening"
	_, err = NewJobScheduler(&fakeSummaries{}, &fakeSweeper{}, nights, nil, config.CacheConfig{}, cfg, nil, nil)
	assert.Error(t, err)

	cfg = config.DefaultSchedulerConfig()
	cfg.Timezone = "Mars/Olympus"
	_, err = NewJobScheduler(&fakeSummaries{}, &fakeSweeper{}, nights, nil, config.CacheConfig{}, cfg, nil, nil)
	assert.Error(t, err)
}

func TestJobSchedulerRunsWithoutRedis(t *testing.T) {
	summaries := &fakeSummaries{}
	sweeper := &fakeSweeper{}
	s := newTestScheduler(t, config.DefaultSchedulerConfig(), summaries, sweeper)

	require.NoError(t, s.RunGenerate(context.Background()))
	require.NotNil(t, summaries.last)
	assert.Equal(t, "20261016", summaries.last.Night)
	assert.Empty(t, summaries.last.Mode, "both modes")
	assert.True(t, summaries.last.Force, "scheduled runs replace summaries written by reads")
	assert.False(t, summaries.last.DryRun)

	require.NoError(t, s.RunSweep(context.Background()))
	assert.Equal(t, 1, sweeper.runs)

	summaries.err = errors.New("boom")
	assert.Error(t, s.RunGenerate(context.Background()))
}
