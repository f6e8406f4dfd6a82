package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/app/services"
	"github.com/amirphl/nightpulse/models"
)

// LiveRecomputer rebuilds and caches a live tally
type LiveRecomputer interface {
	RecomputeLive(ctx context.Context, mode models.VoteMode, nightKey string) (*dto.LiveTallyResponse, error)
}

// RecomputeWorker drains the recompute queue. Each key waits out the
// debounce window before it is released and recomputed, so writes landing
// during the wait are folded into the same run.
type RecomputeWorker struct {
	queue      *RecomputeQueue
	recomputer LiveRecomputer
	debounce   time.Duration
	timeout    time.Duration
	logger     *log.Logger
}

// NewRecomputeWorker creates a worker
func NewRecomputeWorker(queue *RecomputeQueue, recomputer LiveRecomputer, debounce, timeout time.Duration, logger *log.Logger) *RecomputeWorker {
	if logger == nil {
		logger = log.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &RecomputeWorker{
		queue:      queue,
		recomputer: recomputer,
		debounce:   debounce,
		timeout:    timeout,
		logger:     logger,
	}
}

// HandleChange is a services.ChangeHandler. It never blocks.
func (w *RecomputeWorker) HandleChange(ev services.ChangeEvent) {
	key := RecomputeKey{Mode: ev.Mode, Night: ev.Night}
	if !w.queue.Enqueue(key) {
		w.logger.Printf("recompute: queue full, dropped %s/%s", key.Mode, key.Night)
	}
}

// Run processes keys until ctx is done
func (w *RecomputeWorker) Run(ctx context.Context) {
	for {
		key, ok := w.queue.Next(ctx)
		if !ok {
			return
		}
		if w.debounce > 0 {
			select {
			case <-ctx.Done():
				w.queue.Release(key)
				return
			case <-time.After(w.debounce):
			}
		}
		w.queue.Release(key)
		w.process(ctx, key)
	}
}

func (w *RecomputeWorker) process(parent context.Context, key RecomputeKey) {
	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()

	start := time.Now()
	_, err := w.recomputer.RecomputeLive(ctx, key.Mode, key.Night)
	recomputeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		recomputeRuns.WithLabelValues(string(key.Mode), "error").Inc()
		w.logger.Printf("recompute: %s/%s failed: %v", key.Mode, key.Night, err)
		return
	}
	recomputeRuns.WithLabelValues(string(key.Mode), "ok").Inc()
}

// Start runs the worker in the background and returns a stop function
func (w *RecomputeWorker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
