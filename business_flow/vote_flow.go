package businessflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/repository"
	"github.com/amirphl/nightpulse/utils"
	"github.com/redis/go-redis/v9"
)

const (
	maxNightlifeSelections = 5
	maxFoodSelections      = 1
)

// ChangeNotifier is told about every vote write
type ChangeNotifier interface {
	NotifyVote(ctx context.Context, mode models.VoteMode, nightKey string)
}

// VoteFlow records votes and serves live aggregates
type VoteFlow interface {
	SubmitVote(ctx context.Context, req *dto.SubmitVoteRequest, metadata *ClientMetadata) (*dto.VoteResponse, error)
	MyVote(ctx context.Context, uid string, req *dto.NightQuery) (*dto.VoteResponse, error)
	LiveTally(ctx context.Context, req *dto.NightQuery) (*dto.LiveTallyResponse, error)
	Leaderboard(ctx context.Context, req *dto.NightQuery) (*dto.LeaderboardResponse, error)
	RecomputeLive(ctx context.Context, mode models.VoteMode, nightKey string) (*dto.LiveTallyResponse, error)
}

// VoteFlowImpl implements VoteFlow
type VoteFlowImpl struct {
	voteRepo    repository.VoteRepository
	venueFlags  repository.VenueFlagRepository
	auditRepo   repository.AuditLogRepository
	tally       *TallyAggregator
	nights      *utils.NightKeyResolver
	venues      VenueLookup
	notifier    ChangeNotifier
	cache       jsonCache
	cacheConfig config.CacheConfig
	engine      config.EngineConfig
	now         utils.Clock
}

// NewVoteFlow creates a new vote flow. rc and notifier may be nil.
func NewVoteFlow(
	voteRepo repository.VoteRepository,
	venueFlags repository.VenueFlagRepository,
	auditRepo repository.AuditLogRepository,
	tally *TallyAggregator,
	nights *utils.NightKeyResolver,
	venues VenueLookup,
	notifier ChangeNotifier,
	rc *redis.Client,
	cacheConfig config.CacheConfig,
	engine config.EngineConfig,
	clock utils.Clock,
) VoteFlow {
	if clock == nil {
		clock = utils.UTCNow
	}
	return &VoteFlowImpl{
		voteRepo:    voteRepo,
		venueFlags:  venueFlags,
		auditRepo:   auditRepo,
		tally:       tally,
		nights:      nights,
		venues:      venues,
		notifier:    notifier,
		cache:       jsonCache{rc: rc, cfg: cacheConfig},
		cacheConfig: cacheConfig,
		engine:      engine,
		now:         clock,
	}
}

func liveCacheKey(mode models.VoteMode, night string) string {
	return fmt.Sprintf(utils.LiveTallyCacheKeyFormat, mode, night)
}

// SubmitVote stores the caller's vote for the current night, replacing any earlier one
func (v *VoteFlowImpl) SubmitVote(ctx context.Context, req *dto.SubmitVoteRequest, metadata *ClientMetadata) (*dto.VoteResponse, error) {
	if strings.TrimSpace(req.UID) == "" {
		return nil, ErrAuth
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	intent := models.VoteIntent(strings.ToLower(req.Intent))
	if !intent.Valid() {
		return nil, fmt.Errorf("%w: unknown intent %q", ErrValidation, req.Intent)
	}

	selections, err := v.buildSelections(mode, intent, req.Selections)
	if err != nil {
		return nil, err
	}

	if (req.Lat == nil) != (req.Lng == nil) {
		return nil, ErrInvalidLocation
	}
	if req.Lat != nil {
		if !(utils.LatLng{Lat: *req.Lat, Lng: *req.Lng}).Valid() {
			return nil, ErrInvalidLocation
		}
	}

	now := v.now()
	night := v.nights.Resolve(now)
	vote := &models.Vote{
		Mode:         mode,
		NightKey:     night,
		UID:          req.UID,
		Intent:       intent,
		Selections:   selections,
		Lat:          req.Lat,
		Lng:          req.Lng,
		LastEditedAt: now,
	}
	if err := v.voteRepo.Upsert(ctx, vote); err != nil {
		return nil, storageError(err)
	}

	votesSubmitted.WithLabelValues(string(mode), string(intent)).Inc()
	v.cache.del(ctx, liveCacheKey(mode, night))
	if v.notifier != nil {
		v.notifier.NotifyVote(ctx, mode, night)
	}

	writeAudit(ctx, v.auditRepo, auditEntry{
		actorUID:    req.UID,
		action:      models.AuditActionVoteSubmitted,
		targetKind:  "vote",
		targetID:    string(mode) + ":" + night,
		description: fmt.Sprintf("Vote %s with %d selections", intent, len(selections)),
		success:     true,
	}, metadata)

	return toVoteResponse(vote), nil
}

// buildSelections validates the picked venues. A "no" vote carries none.
func (v *VoteFlowImpl) buildSelections(mode models.VoteMode, intent models.VoteIntent, reqs []dto.SelectionRequest) ([]models.Selection, error) {
	if intent == models.VoteIntentNo {
		return []models.Selection{}, nil
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: at least one venue is required", ErrInvalidSelection)
	}
	limit := maxNightlifeSelections
	if mode == models.VoteModeFood {
		limit = maxFoodSelections
	}
	if len(reqs) > limit {
		return nil, fmt.Errorf("%w: at most %d venues", ErrInvalidSelection, limit)
	}

	seen := map[string]bool{}
	out := make([]models.Selection, 0, len(reqs))
	for _, r := range reqs {
		id := strings.TrimSpace(r.VenueID)
		if seen[id] {
			return nil, fmt.Errorf("%w: venue %s selected twice", ErrInvalidSelection, id)
		}
		seen[id] = true
		if _, ok := v.venues.Venue(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVenue, id)
		}

		var sel models.Selection
		switch mode {
		case models.VoteModeNightlife:
			sel = models.NewNightlifeSelection(id, r.ArrivalWindow)
		case models.VoteModeFood:
			sel = models.NewFoodSelection(id, r.Price)
		}
		if err := sel.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
		}
		out = append(out, sel)
	}
	return out, nil
}

// MyVote returns the caller's vote for a night
func (v *VoteFlowImpl) MyVote(ctx context.Context, uid string, req *dto.NightQuery) (*dto.VoteResponse, error) {
	if uid == "" {
		return nil, ErrAuth
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	night, err := resolveNight(v.nights, req.Night, v.now)
	if err != nil {
		return nil, err
	}

	vote, err := v.voteRepo.ByKey(ctx, mode, night, uid)
	if err != nil {
		return nil, storageError(err)
	}
	if vote == nil {
		return nil, ErrVoteNotFound
	}
	return toVoteResponse(vote), nil
}

// LiveTally serves the cached tally of a night, computing it on a miss
func (v *VoteFlowImpl) LiveTally(ctx context.Context, req *dto.NightQuery) (*dto.LiveTallyResponse, error) {
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	night, err := resolveNight(v.nights, req.Night, v.now)
	if err != nil {
		return nil, err
	}

	var cached dto.LiveTallyResponse
	if v.cache.get(ctx, liveCacheKey(mode, night), &cached) {
		return v.withoutHidden(ctx, &cached)
	}
	resp, err := v.RecomputeLive(ctx, mode, night)
	if err != nil {
		return nil, err
	}
	return v.withoutHidden(ctx, resp)
}

// RecomputeLive aggregates one night bucket and refreshes the cache
func (v *VoteFlowImpl) RecomputeLive(ctx context.Context, mode models.VoteMode, nightKey string) (*dto.LiveTallyResponse, error) {
	set, err := v.tally.Tally(ctx, mode, []string{nightKey})
	if err != nil {
		return nil, err
	}

	resp := &dto.LiveTallyResponse{
		Mode:        string(mode),
		Night:       nightKey,
		GeneratedAt: v.now(),
		StayIn:      set.StayIn,
		Venues:      make([]dto.LiveVenueItem, 0, len(set.Venues)),
	}
	for _, t := range set.Sorted() {
		item := dto.LiveVenueItem{
			VenueID:          t.VenueID,
			Voters:           t.Voters,
			Weighted:         t.Weighted,
			Yes:              t.Yes,
			Maybe:            t.Maybe,
			Score:            LiveScore(t.Weighted, v.engine.LiveScoreMultiplier),
			ArrivalHistogram: t.ArrivalHistogram,
		}
		if venue, ok := v.venues.Venue(t.VenueID); ok {
			item.Name = venue.Name
			item.City = venue.City
		}
		if avg, ok := t.AvgPrice(); ok {
			item.AvgPrice = &avg
		}
		resp.Voters += t.Voters
		resp.Venues = append(resp.Venues, item)
	}
	sort.SliceStable(resp.Venues, func(i, j int) bool {
		a, b := resp.Venues[i], resp.Venues[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Voters > b.Voters
	})

	v.cache.set(ctx, liveCacheKey(mode, nightKey), resp, v.cacheConfig.LiveTallyTTL)
	return resp, nil
}

func (v *VoteFlowImpl) withoutHidden(ctx context.Context, resp *dto.LiveTallyResponse) (*dto.LiveTallyResponse, error) {
	hidden, err := v.venueFlags.HiddenVenueIDs(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	if len(hidden) == 0 {
		return resp, nil
	}
	kept := resp.Venues[:0:0]
	voters := 0
	for _, item := range resp.Venues {
		if hidden[item.VenueID] {
			continue
		}
		kept = append(kept, item)
		voters += item.Voters
	}
	resp.Venues = kept
	resp.Voters = voters
	return resp, nil
}

// Leaderboard ranks tonight's venues, optionally within one city
func (v *VoteFlowImpl) Leaderboard(ctx context.Context, req *dto.NightQuery) (*dto.LeaderboardResponse, error) {
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	night, err := resolveNight(v.nights, req.Night, v.now)
	if err != nil {
		return nil, err
	}

	set, err := v.tally.Tally(ctx, mode, []string{night})
	if err != nil {
		return nil, err
	}
	hidden, err := v.venueFlags.HiddenVenueIDs(ctx)
	if err != nil {
		return nil, storageError(err)
	}

	city := strings.TrimSpace(req.City)
	filter := func(id string) bool {
		if hidden[id] {
			return false
		}
		if city == "" {
			return true
		}
		venue, ok := v.venues.Venue(id)
		return ok && strings.EqualFold(venue.City, city)
	}
	result := AssignRanks(set.Sorted(), filter)

	resp := &dto.LeaderboardResponse{
		Mode:          string(mode),
		Night:         night,
		City:          city,
		Entries:       make([]dto.LeaderboardEntry, 0, len(result.Ranks)),
		Ranks:         result.Ranks,
		Gold:          result.Gold,
		Silver:        result.Silver,
		Bronze:        result.Bronze,
		StoppedForTie: result.StoppedForTie,
		LeadersCount:  result.LeadersCount,
	}
	for id, rank := range result.Ranks {
		t := set.Get(id)
		entry := dto.LeaderboardEntry{Rank: rank, VenueID: id, Voters: t.Voters, Weighted: t.Weighted}
		if venue, ok := v.venues.Venue(id); ok {
			entry.Name = venue.Name
		}
		resp.Entries = append(resp.Entries, entry)
	}
	sort.Slice(resp.Entries, func(i, j int) bool { return resp.Entries[i].Rank < resp.Entries[j].Rank })
	return resp, nil
}

func toVoteResponse(vote *models.Vote) *dto.VoteResponse {
	resp := &dto.VoteResponse{
		Mode:         string(vote.Mode),
		Night:        vote.NightKey,
		Intent:       string(vote.Intent),
		Selections:   make([]dto.SelectionRequest, 0, len(vote.Selections)),
		LastEditedAt: vote.LastEditedAt,
	}
	for _, sel := range vote.Selections {
		item := dto.SelectionRequest{VenueID: sel.VenueID()}
		switch {
		case sel.Nightlife != nil:
			item.ArrivalWindow = sel.Nightlife.ArrivalWindow
		case sel.Food != nil:
			item.Price = sel.Food.Price
		}
		resp.Selections = append(resp.Selections, item)
	}
	return resp
}
