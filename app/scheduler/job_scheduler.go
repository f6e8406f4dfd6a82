// Package scheduler runs the background work of the service: nightly summary
// generation, report sweeps and the live tally recompute pipeline
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/utils"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// SummaryGenerator writes prediction summaries
type SummaryGenerator interface {
	GenerateAll(ctx context.Context, req *dto.GenerateSummaryRequest) (*dto.GenerateSummaryResponse, error)
}

// ReportSweeper hides over-reported targets
type ReportSweeper interface {
	Sweep(ctx context.Context) (*dto.SweepReportsResponse, error)
}

const (
	jobGenerate = "generate"
	jobSweep    = "sweep_reports"
)

// JobScheduler triggers jobs on cron specs. With Redis configured each run
// takes a SETNX lock so only one replica executes it.
type JobScheduler struct {
	cron      *cron.Cron
	summaries SummaryGenerator
	reports   ReportSweeper
	nights    *utils.NightKeyResolver
	rc        *redis.Client
	cacheCfg  config.CacheConfig
	cfg       config.SchedulerConfig
	clock     utils.Clock
	logger    *log.Logger
}

// NewJobScheduler registers the configured jobs. An empty spec disables its job.
func NewJobScheduler(
	summaries SummaryGenerator,
	reports ReportSweeper,
	nights *utils.NightKeyResolver,
	rc *redis.Client,
	cacheCfg config.CacheConfig,
	cfg config.SchedulerConfig,
	clock utils.Clock,
	logger *log.Logger,
) (*JobScheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading scheduler timezone %q: %w", cfg.Timezone, err)
	}
	if logger == nil {
		logger = log.Default()
	}
	if clock == nil {
		clock = utils.UTCNow
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = utils.JobTimeout
	}

	s := &JobScheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		summaries: summaries,
		reports:   reports,
		nights:    nights,
		rc:        rc,
		cacheCfg:  cacheCfg,
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
	}

	if cfg.GenerateSpec != "" {
		if _, err := s.cron.AddFunc(cfg.GenerateSpec, s.runJob(jobGenerate, s.RunGenerate)); err != nil {
			return nil, fmt.Errorf("adding generate job %q: %w", cfg.GenerateSpec, err)
		}
	}
	if cfg.SweepSpec != "" {
		if _, err := s.cron.AddFunc(cfg.SweepSpec, s.runJob(jobSweep, s.RunSweep)); err != nil {
			return nil, fmt.Errorf("adding sweep job %q: %w", cfg.SweepSpec, err)
		}
	}
	return s, nil
}

// Entries returns the number of registered jobs
func (s *JobScheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start launches the cron loop and returns a stop function that waits for
// running jobs to finish
func (s *JobScheduler) Start() func() {
	s.cron.Start()
	s.logger.Printf("scheduler: started with %d jobs", s.Entries())
	return func() {
		<-s.cron.Stop().Done()
		s.logger.Printf("scheduler: stopped")
	}
}

func (s *JobScheduler) runJob(name string, fn func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()
		ctx = context.WithValue(ctx, utils.EndpointKey, "scheduler:"+name)
		if err := fn(ctx); err != nil {
			s.logger.Printf("scheduler: %s failed: %v", name, err)
		}
	}
}

// RunGenerate regenerates tonight's summaries for every mode, replacing existing ones
func (s *JobScheduler) RunGenerate(ctx context.Context) error {
	night := s.nights.Resolve(s.clock())
	lockKey := fmt.Sprintf(utils.GenerateLockKeyFormat, "all", night)
	return s.withLock(ctx, jobGenerate, lockKey, func(ctx context.Context) error {
		resp, err := s.summaries.GenerateAll(ctx, &dto.GenerateSummaryRequest{Night: night, Force: true})
		if err != nil {
			return err
		}
		for _, summary := range resp.Summaries {
			s.logger.Printf("scheduler: %s summary for %s written=%t top=%v", summary.Mode, summary.Night, summary.Written, summary.Top)
		}
		return nil
	})
}

// RunSweep hides every target over the report threshold
func (s *JobScheduler) RunSweep(ctx context.Context) error {
	return s.withLock(ctx, jobSweep, utils.SweepLockKey, func(ctx context.Context) error {
		resp, err := s.reports.Sweep(ctx)
		if err != nil {
			return err
		}
		if len(resp.Hidden) > 0 {
			s.logger.Printf("scheduler: sweep evaluated %d targets, hid %v", resp.TargetsEvaluated, resp.Hidden)
		}
		return nil
	})
}

// withLock runs fn under a SETNX lock when Redis is available. A busy lock
// skips the run.
func (s *JobScheduler) withLock(ctx context.Context, job, key string, fn func(context.Context) error) error {
	if s.rc != nil {
		lockKey := s.cacheCfg.RedisPrefix + key
		ok, err := s.rc.SetNX(ctx, lockKey, "1", s.cfg.JobTimeout).Result()
		if err != nil {
			jobRuns.WithLabelValues(job, "error").Inc()
			return fmt.Errorf("acquire lock %s: %w", lockKey, err)
		}
		if !ok {
			jobRuns.WithLabelValues(job, "skipped").Inc()
			s.logger.Printf("scheduler: %s already running elsewhere", job)
			return nil
		}
		defer func() {
			_ = s.rc.Del(context.Background(), lockKey).Err()
		}()
	}

	if err := fn(ctx); err != nil {
		jobRuns.WithLabelValues(job, "error").Inc()
		return err
	}
	jobRuns.WithLabelValues(job, "ok").Inc()
	return nil
}
