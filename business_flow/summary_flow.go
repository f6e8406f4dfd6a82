package businessflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/repository"
	"github.com/amirphl/nightpulse/utils"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
)

// GenerateOptions controls the explicit generation path
type GenerateOptions struct {
	Force  bool
	DryRun bool
}

// SummaryFlow stores one prediction summary per (mode, night)
type SummaryFlow interface {
	GenerateIfAbsent(ctx context.Context, mode models.VoteMode, night string) (*dto.PredictionResponse, error)
	Generate(ctx context.Context, mode models.VoteMode, night string, opts GenerateOptions) (*dto.PredictionResponse, error)
	Backfill(ctx context.Context, mode models.VoteMode, end string, nights int, dryRun bool) (*dto.BackfillResponse, error)
	Predictions(ctx context.Context, req *dto.NightQuery) (*dto.PredictionResponse, error)
	GenerateAll(ctx context.Context, req *dto.GenerateSummaryRequest) (*dto.GenerateSummaryResponse, error)
}

// SummaryFlowImpl implements SummaryFlow
type SummaryFlowImpl struct {
	summaryRepo repository.PredictionSummaryRepository
	venueFlags  repository.VenueFlagRepository
	auditRepo   repository.AuditLogRepository
	blender     *PredictionBlender
	nights      *utils.NightKeyResolver
	venues      VenueLookup
	cache       jsonCache
	cacheConfig config.CacheConfig
	backfillMax int
	now         utils.Clock
}

// NewSummaryFlow creates a new summary flow. rc may be nil.
func NewSummaryFlow(
	summaryRepo repository.PredictionSummaryRepository,
	venueFlags repository.VenueFlagRepository,
	auditRepo repository.AuditLogRepository,
	blender *PredictionBlender,
	nights *utils.NightKeyResolver,
	venues VenueLookup,
	rc *redis.Client,
	cacheConfig config.CacheConfig,
	backfillMax int,
	clock utils.Clock,
) SummaryFlow {
	if clock == nil {
		clock = utils.UTCNow
	}
	if backfillMax <= 0 {
		backfillMax = 60
	}
	return &SummaryFlowImpl{
		summaryRepo: summaryRepo,
		venueFlags:  venueFlags,
		auditRepo:   auditRepo,
		blender:     blender,
		nights:      nights,
		venues:      venues,
		cache:       jsonCache{rc: rc, cfg: cacheConfig},
		cacheConfig: cacheConfig,
		backfillMax: backfillMax,
		now:         clock,
	}
}

func summaryCacheKey(mode models.VoteMode, night string) string {
	return fmt.Sprintf(utils.SummaryCacheKeyFormat, mode, night)
}

// GenerateIfAbsent returns the stored summary, computing and writing it only
// when none exists. Two concurrent callers may both compute; the later upsert wins.
func (s *SummaryFlowImpl) GenerateIfAbsent(ctx context.Context, mode models.VoteMode, night string) (*dto.PredictionResponse, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	if _, err := s.nights.Parse(night); err != nil {
		return nil, ErrInvalidNightKey
	}

	var cached models.PredictionSummary
	if s.cache.get(ctx, summaryCacheKey(mode, night), &cached) {
		summaryCacheLookups.WithLabelValues("hit").Inc()
		resp, err := s.toResponse(ctx, &cached)
		if err != nil {
			return nil, err
		}
		resp.Cached = true
		return resp, nil
	}
	if s.cache.enabled() {
		summaryCacheLookups.WithLabelValues("miss").Inc()
	}

	existing, err := s.summaryRepo.ByModeAndNight(ctx, mode, night)
	if err != nil {
		return nil, storageError(err)
	}
	if existing != nil {
		s.cache.set(ctx, summaryCacheKey(mode, night), existing, s.cacheConfig.SummaryTTL)
		return s.toResponse(ctx, existing)
	}

	return s.compute(ctx, mode, night, false)
}

// Generate recomputes a summary. Without Force an existing summary is
// returned as-is; DryRun computes without writing.
func (s *SummaryFlowImpl) Generate(ctx context.Context, mode models.VoteMode, night string, opts GenerateOptions) (*dto.PredictionResponse, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	if _, err := s.nights.Parse(night); err != nil {
		return nil, ErrInvalidNightKey
	}

	if !opts.Force && !opts.DryRun {
		existing, err := s.summaryRepo.ByModeAndNight(ctx, mode, night)
		if err != nil {
			return nil, storageError(err)
		}
		if existing != nil {
			summariesGenerated.WithLabelValues(string(mode), "kept").Inc()
			return s.toResponse(ctx, existing)
		}
	}

	return s.compute(ctx, mode, night, opts.DryRun)
}

// Backfill regenerates the nights before end, most recent first
func (s *SummaryFlowImpl) Backfill(ctx context.Context, mode models.VoteMode, end string, nights int, dryRun bool) (*dto.BackfillResponse, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}
	if nights < 1 || nights > s.backfillMax {
		return nil, ErrBackfillRange
	}
	end, err := resolveNight(s.nights, end, s.now)
	if err != nil {
		return nil, err
	}

	done := make([]string, 0, nights)
	for d := 1; d <= nights; d++ {
		night, err := s.nights.Shift(end, -d)
		if err != nil {
			return nil, ErrInvalidNightKey
		}
		if _, err := s.compute(ctx, mode, night, dryRun); err != nil {
			return nil, fmt.Errorf("backfill %s: %w", night, err)
		}
		done = append(done, night)
	}

	if !dryRun {
		writeAudit(ctx, s.auditRepo, auditEntry{
			action:      models.AuditActionSummaryBackfilled,
			targetKind:  "summary",
			targetID:    string(mode),
			description: fmt.Sprintf("Backfilled %d nights before %s", nights, end),
			success:     true,
			metadata:    map[string]any{"end": end, "nights": done},
		}, nil)
	}

	return &dto.BackfillResponse{
		Message: "Backfill completed",
		Mode:    string(mode),
		Nights:  done,
		DryRun:  dryRun,
	}, nil
}

// Predictions serves the read path for one mode
func (s *SummaryFlowImpl) Predictions(ctx context.Context, req *dto.NightQuery) (*dto.PredictionResponse, error) {
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	night, err := resolveNight(s.nights, req.Night, s.now)
	if err != nil {
		return nil, err
	}
	return s.GenerateIfAbsent(ctx, mode, night)
}

// GenerateAll runs Generate for the requested mode, or for every mode
func (s *SummaryFlowImpl) GenerateAll(ctx context.Context, req *dto.GenerateSummaryRequest) (*dto.GenerateSummaryResponse, error) {
	modes := []models.VoteMode{models.VoteModeNightlife, models.VoteModeFood}
	if req.Mode != "" {
		mode, err := ParseMode(req.Mode)
		if err != nil {
			return nil, err
		}
		modes = []models.VoteMode{mode}
	}
	night, err := resolveNight(s.nights, req.Night, s.now)
	if err != nil {
		return nil, err
	}

	out := &dto.GenerateSummaryResponse{Message: "Summaries generated"}
	for _, mode := range modes {
		resp, err := s.Generate(ctx, mode, night, GenerateOptions{Force: req.Force, DryRun: req.DryRun})
		if err != nil {
			return nil, err
		}
		out.Summaries = append(out.Summaries, *resp)
	}
	return out, nil
}

func (s *SummaryFlowImpl) compute(ctx context.Context, mode models.VoteMode, night string, dryRun bool) (*dto.PredictionResponse, error) {
	prediction, err := s.blender.Predict(ctx, mode, night)
	if err != nil {
		summariesGenerated.WithLabelValues(string(mode), "failed").Inc()
		return nil, err
	}

	summary := &models.PredictionSummary{
		Mode:         mode,
		NightKey:     night,
		GeneratedAt:  prediction.GeneratedAt,
		Items:        datatypes.NewJSONType(prediction.Items),
		Top:          pq.StringArray(prediction.Top),
		SourceNights: pq.StringArray(prediction.SourceNights),
	}

	if dryRun {
		summariesGenerated.WithLabelValues(string(mode), "dry_run").Inc()
		return s.toResponse(ctx, summary)
	}

	if err := s.summaryRepo.Upsert(ctx, summary); err != nil {
		summariesGenerated.WithLabelValues(string(mode), "failed").Inc()
		return nil, storageError(err)
	}
	summariesGenerated.WithLabelValues(string(mode), "written").Inc()

	key := summaryCacheKey(mode, night)
	s.cache.del(ctx, key)
	s.cache.set(ctx, key, summary, s.cacheConfig.SummaryTTL)

	writeAudit(ctx, s.auditRepo, auditEntry{
		action:      models.AuditActionSummaryGenerated,
		targetKind:  "summary",
		targetID:    string(mode) + ":" + night,
		description: fmt.Sprintf("Generated %s summary with %d venues", mode, len(prediction.Items)),
		success:     true,
	}, nil)

	resp, err := s.toResponse(ctx, summary)
	if err != nil {
		return nil, err
	}
	resp.Written = true
	return resp, nil
}

// toResponse drops hidden venues and orders items by score
func (s *SummaryFlowImpl) toResponse(ctx context.Context, summary *models.PredictionSummary) (*dto.PredictionResponse, error) {
	hidden, err := s.venueFlags.HiddenVenueIDs(ctx)
	if err != nil {
		return nil, storageError(err)
	}

	items := make([]dto.PredictionItem, 0, len(summary.ItemMap()))
	for id, item := range summary.ItemMap() {
		if hidden[id] {
			continue
		}
		p := dto.PredictionItem{
			VenueID:     id,
			Score:       item.Score,
			TypicalPeak: item.TypicalPeak,
			AvgPrice:    item.AvgPrice,
		}
		if v, ok := s.venues.Venue(id); ok {
			p.Name = v.Name
		}
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].VenueID < items[j].VenueID
	})

	top := make([]string, 0, len(summary.Top))
	for _, id := range summary.Top {
		if !hidden[id] {
			top = append(top, id)
		}
	}

	return &dto.PredictionResponse{
		Mode:         string(summary.Mode),
		Night:        summary.NightKey,
		GeneratedAt:  summary.GeneratedAt.UTC(),
		Top:          top,
		Items:        items,
		SourceNights: []string(summary.SourceNights),
	}, nil
}
