package businessflow

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/utils"
	"golang.org/x/sync/errgroup"
)

// Prediction is the blended outlook for one night
type Prediction struct {
	GeneratedAt  time.Time                     `json:"generated_at"`
	Night        string                        `json:"night"`
	Mode         models.VoteMode               `json:"mode"`
	Items        map[string]models.SummaryItem `json:"items"`
	Top          []string                      `json:"top"`
	SourceNights []string                      `json:"source_nights"`
}

// PredictionBlender turns past night buckets into a score per venue
type PredictionBlender struct {
	cfg    config.EngineConfig
	nights *utils.NightKeyResolver
	tally  *TallyAggregator
}

// NewPredictionBlender builds a blender
func NewPredictionBlender(cfg config.EngineConfig, nights *utils.NightKeyResolver, tally *TallyAggregator) *PredictionBlender {
	return &PredictionBlender{cfg: cfg, nights: nights, tally: tally}
}

// HistoryKeys returns the same-weekday keys (target − 7w) and the recent keys
// (target − d), all strictly before the target, most recent first
func (b *PredictionBlender) HistoryKeys(target string) (same, recent []string, err error) {
	if _, err := b.nights.Parse(target); err != nil {
		return nil, nil, ErrInvalidNightKey
	}
	for w := 1; w <= b.cfg.SameWeekdayWeeks; w++ {
		k, err := b.nights.Shift(target, -7*w)
		if err != nil {
			return nil, nil, err
		}
		same = append(same, k)
	}
	for d := 1; d <= b.cfg.RecentDays; d++ {
		k, err := b.nights.Shift(target, -d)
		if err != nil {
			return nil, nil, err
		}
		recent = append(recent, k)
	}
	return same, recent, nil
}

// Predict loads both history vectors and blends them
func (b *PredictionBlender) Predict(ctx context.Context, mode models.VoteMode, target string) (*Prediction, error) {
	sameKeys, recentKeys, err := b.HistoryKeys(target)
	if err != nil {
		return nil, err
	}

	var same, recent *TallySet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		same, err = b.tally.Tally(gctx, mode, sameKeys)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = b.tally.Tally(gctx, mode, recentKeys)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := b.Blend(mode, target, same, recent, b.tally.nowFunc())
	p.SourceNights = mergeKeys(sameKeys, recentKeys)
	return p, nil
}

// Blend combines normalised voter counts of the two vectors
func (b *PredictionBlender) Blend(mode models.VoteMode, target string, same, recent *TallySet, now time.Time) *Prediction {
	sameMax := float64(max(1, same.MaxVoters()))
	recentMax := float64(max(1, recent.MaxVoters()))

	ids := map[string]bool{}
	for id := range same.Venues {
		ids[id] = true
	}
	for id := range recent.Venues {
		ids[id] = true
	}

	blended := make(map[string]float64, len(ids))
	maxBlend := 0.0
	for id := range ids {
		s := float64(same.Get(id).Voters) / sameMax
		r := float64(recent.Get(id).Voters) / recentMax
		v := b.cfg.SameWeekdayWeight*s + b.cfg.RecentWeight*r
		if v <= 0 {
			continue
		}
		blended[id] = v
		maxBlend = math.Max(maxBlend, v)
	}

	items := make(map[string]models.SummaryItem, len(blended))
	for id, v := range blended {
		item := models.SummaryItem{
			Score: int(math.Round(100 * v / math.Max(0.001, maxBlend))),
		}
		sameT, recentT := same.Get(id), recent.Get(id)
		switch mode {
		case models.VoteModeNightlife:
			item.TypicalPeak = typicalPeak(sameT.ArrivalHistogram, recentT.ArrivalHistogram)
		case models.VoteModeFood:
			combined := VenueTally{
				PriceSum:   sameT.PriceSum + recentT.PriceSum,
				PriceCount: sameT.PriceCount + recentT.PriceCount,
			}
			if avg, ok := combined.AvgPrice(); ok {
				item.AvgPrice = &avg
			}
		}
		items[id] = item
	}

	return &Prediction{
		GeneratedAt: now,
		Night:       target,
		Mode:        mode,
		Items:       items,
		Top:         topVenues(items, b.cfg.TopLimit),
	}
}

// typicalPeak scans windows in display order; the first maximum wins
func typicalPeak(histograms ...map[string]int) string {
	peak, best := "", 0
	for _, win := range models.ArrivalWindows {
		n := 0
		for _, h := range histograms {
			n += h[win]
		}
		if n > best {
			peak, best = win, n
		}
	}
	return peak
}

func topVenues(items map[string]models.SummaryItem, limit int) []string {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := items[ids[i]].Score, items[ids[j]].Score
		if si != sj {
			return si > sj
		}
		return ids[i] < ids[j]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

func mergeKeys(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range lists {
		for _, k := range l {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}
