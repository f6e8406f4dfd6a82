package businessflow

import (
	"fmt"
	"math"
	"sort"
)

// RankResult is a tie-safe podium
type RankResult struct {
	Ranks         map[string]int `json:"ranks"`
	Gold          string         `json:"gold,omitempty"`
	Silver        string         `json:"silver,omitempty"`
	Bronze        string         `json:"bronze,omitempty"`
	StoppedForTie bool           `json:"stopped_for_tie"`
	LeadersCount  int            `json:"leaders_count"`
}

// CityFilter reports whether a venue takes part in the ranking
type CityFilter func(venueID string) bool

func tieKey(t *VenueTally) string {
	return fmt.Sprintf("%d|%d", t.Voters, int64(math.Round(t.Weighted*1000)))
}

// AssignRanks hands out ranks 1..3 in order of voters then weighted score.
// A place is only awarded when it is strictly ahead of the next venue: as
// soon as two consecutive candidates share a tie key the earlier one loses
// its rank and assignment stops.
func AssignRanks(tallies []*VenueTally, filter CityFilter) RankResult {
	candidates := make([]*VenueTally, 0, len(tallies))
	for _, t := range tallies {
		if t == nil || t.Voters <= 0 {
			continue
		}
		if filter != nil && !filter(t.VenueID) {
			continue
		}
		candidates = append(candidates, t)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Voters != b.Voters {
			return a.Voters > b.Voters
		}
		if a.Weighted != b.Weighted {
			return a.Weighted > b.Weighted
		}
		return a.VenueID < b.VenueID
	})

	result := RankResult{Ranks: map[string]int{}}
	var prev *VenueTally
	for _, t := range candidates {
		if prev != nil && tieKey(t) == tieKey(prev) {
			delete(result.Ranks, prev.VenueID)
			result.StoppedForTie = true
			break
		}
		if len(result.Ranks) == 3 {
			break
		}
		result.Ranks[t.VenueID] = len(result.Ranks) + 1
		prev = t
	}

	for id, rank := range result.Ranks {
		switch rank {
		case 1:
			result.Gold = id
		case 2:
			result.Silver = id
		case 3:
			result.Bronze = id
		}
	}
	result.LeadersCount = len(result.Ranks)
	return result
}
