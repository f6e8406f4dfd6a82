package businessflow

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/utils"
	"golang.org/x/sync/errgroup"
)

// VenueLookup resolves directory venues by id
type VenueLookup interface {
	Venue(id string) (models.Venue, bool)
	All() []models.Venue
}

// VoteReader loads one night bucket of votes
type VoteReader interface {
	ListByNight(ctx context.Context, mode models.VoteMode, nightKey string) ([]*models.Vote, error)
}

// VenueTally accumulates the signal one venue received
type VenueTally struct {
	VenueID          string         `json:"venue_id"`
	Voters           int            `json:"voters"`
	Weighted         float64        `json:"weighted"`
	Yes              int            `json:"yes"`
	Maybe            int            `json:"maybe"`
	ArrivalHistogram map[string]int `json:"arrival_histogram,omitempty"`
	PriceSum         float64        `json:"price_sum,omitempty"`
	PriceCount       int            `json:"price_count,omitempty"`
}

// AvgPrice returns the rounded mean price when any price was given
func (t *VenueTally) AvgPrice() (int, bool) {
	if t.PriceCount == 0 {
		return 0, false
	}
	return int(math.Round(t.PriceSum / float64(t.PriceCount))), true
}

// TallySet is the result of one aggregation pass
type TallySet struct {
	Mode   models.VoteMode        `json:"mode"`
	Nights []string               `json:"nights"`
	Venues map[string]*VenueTally `json:"venues"`
	StayIn int                    `json:"stay_in"`
}

func newTallySet(mode models.VoteMode, nights []string) *TallySet {
	return &TallySet{Mode: mode, Nights: nights, Venues: make(map[string]*VenueTally)}
}

func (s *TallySet) venue(id string) *VenueTally {
	t, ok := s.Venues[id]
	if !ok {
		t = &VenueTally{VenueID: id}
		s.Venues[id] = t
	}
	return t
}

// Get returns the tally of a venue, zero valued when it received no votes
func (s *TallySet) Get(id string) VenueTally {
	if t, ok := s.Venues[id]; ok {
		return *t
	}
	return VenueTally{VenueID: id}
}

// Sorted returns tallies ordered by venue id
func (s *TallySet) Sorted() []*VenueTally {
	out := make([]*VenueTally, 0, len(s.Venues))
	for _, t := range s.Venues {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VenueID < out[j].VenueID })
	return out
}

// MaxVoters returns the largest voter count in the set
func (s *TallySet) MaxVoters() int {
	m := 0
	for _, t := range s.Venues {
		if t.Voters > m {
			m = t.Voters
		}
	}
	return m
}

// LiveScore maps a weighted total onto 0..100
func LiveScore(weighted, multiplier float64) int {
	return int(math.Min(100, math.Round(weighted*multiplier)))
}

// AggregateVotes folds votes into per-venue tallies. Votes are processed in
// (night_key, uid) order so repeated calls produce identical float sums.
func AggregateVotes(votes []*models.Vote, venues VenueLookup, mode models.VoteMode, calc *VoteWeightCalculator, now time.Time) *TallySet {
	ordered := make([]*models.Vote, 0, len(votes))
	nightSet := map[string]bool{}
	for _, v := range votes {
		if v == nil || v.Mode != mode {
			continue
		}
		ordered = append(ordered, v)
		nightSet[v.NightKey] = true
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].NightKey != ordered[j].NightKey {
			return ordered[i].NightKey < ordered[j].NightKey
		}
		return ordered[i].UID < ordered[j].UID
	})

	nights := make([]string, 0, len(nightSet))
	for k := range nightSet {
		nights = append(nights, k)
	}
	sort.Strings(nights)

	set := newTallySet(mode, nights)
	for _, vote := range ordered {
		if vote.Intent == models.VoteIntentNo {
			set.StayIn++
			continue
		}
		if vote.Intent != models.VoteIntentYes && vote.Intent != models.VoteIntentMaybe {
			continue
		}

		minutes := utils.MinutesSince(now, vote.LastEditedAt)
		loc, hasLoc := vote.Location()

		for _, sel := range vote.Selections {
			if sel.Kind != mode || sel.Validate() != nil {
				continue
			}
			venue, ok := venues.Venue(sel.VenueID())
			if !ok {
				continue
			}

			meters := calc.DefaultDistance()
			if hasLoc {
				meters = utils.HaversineMeters(loc, venue.Location())
			}
			w := calc.Weight(WeightInput{
				Intent:            vote.Intent,
				MetersFromVenue:   meters,
				UpdatedAgoMinutes: minutes,
			})

			t := set.venue(venue.ID)
			t.Voters++
			t.Weighted += w
			if vote.Intent == models.VoteIntentYes {
				t.Yes++
			} else {
				t.Maybe++
			}

			switch sel.Kind {
			case models.VoteModeNightlife:
				if win := sel.Nightlife.ArrivalWindow; win != "" {
					if t.ArrivalHistogram == nil {
						t.ArrivalHistogram = make(map[string]int)
					}
					t.ArrivalHistogram[win]++
				}
			case models.VoteModeFood:
				if sel.Food.Price != nil {
					t.PriceSum += *sel.Food.Price
					t.PriceCount++
				}
			}
		}
	}
	return set
}

// TallyAggregator loads night buckets and aggregates them
type TallyAggregator struct {
	votes   VoteReader
	venues  VenueLookup
	calc    *VoteWeightCalculator
	fanOut  int
	nowFunc utils.Clock
}

// NewTallyAggregator builds an aggregator. fanOut bounds concurrent bucket reads.
func NewTallyAggregator(votes VoteReader, venues VenueLookup, calc *VoteWeightCalculator, fanOut int, clock utils.Clock) *TallyAggregator {
	if fanOut < 1 {
		fanOut = 1
	}
	if clock == nil {
		clock = utils.UTCNow
	}
	return &TallyAggregator{votes: votes, venues: venues, calc: calc, fanOut: fanOut, nowFunc: clock}
}

// Load reads every bucket concurrently. Nothing is returned unless all reads
// succeed; the first failure cancels the rest.
func (a *TallyAggregator) Load(ctx context.Context, mode models.VoteMode, keys []string) ([]*models.Vote, error) {
	buckets := make([][]*models.Vote, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.fanOut)
	for i, key := range keys {
		g.Go(func() error {
			votes, err := a.votes.ListByNight(gctx, mode, key)
			if err != nil {
				return fmt.Errorf("load night %s: %w", key, err)
			}
			buckets[i] = votes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storageError(err)
	}

	var all []*models.Vote
	for _, b := range buckets {
		all = append(all, b...)
	}
	return all, nil
}

// Tally loads the buckets and aggregates them in one pass
func (a *TallyAggregator) Tally(ctx context.Context, mode models.VoteMode, keys []string) (*TallySet, error) {
	votes, err := a.Load(ctx, mode, keys)
	if err != nil {
		return nil, err
	}
	set := AggregateVotes(votes, a.venues, mode, a.calc, a.nowFunc())
	set.Nights = append([]string(nil), keys...)
	return set, nil
}
