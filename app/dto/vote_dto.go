package dto

import "time"

// SelectionRequest is one picked venue. ArrivalWindow applies to nightlife
// votes and Price to food votes.
type SelectionRequest struct {
	VenueID       string   `json:"venue_id" validate:"required,max=128"`
	ArrivalWindow string   `json:"arrival_window,omitempty" validate:"omitempty,oneof=20-21 21-22 22-23 23-24"`
	Price         *float64 `json:"price,omitempty" validate:"omitempty,gte=0,lte=1000"`
}

// SubmitVoteRequest records tonight's intent. Mode and UID are filled by the handler.
type SubmitVoteRequest struct {
	Mode       string             `json:"-"`
	UID        string             `json:"-"`
	Intent     string             `json:"intent" validate:"required,oneof=yes maybe no"`
	Selections []SelectionRequest `json:"selections" validate:"max=5,dive"`
	Lat        *float64           `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng        *float64           `json:"lng,omitempty" validate:"omitempty,longitude"`
}

// VoteResponse echoes a stored vote
type VoteResponse struct {
	Mode         string             `json:"mode"`
	Night        string             `json:"night"`
	Intent       string             `json:"intent"`
	Selections   []SelectionRequest `json:"selections"`
	LastEditedAt time.Time          `json:"last_edited_at"`
}

// NightQuery selects a night bucket; empty means the current night
type NightQuery struct {
	Mode  string `json:"-"`
	Night string `query:"night" json:"night,omitempty" validate:"omitempty,night_key"`
	City  string `query:"city" json:"city,omitempty" validate:"omitempty,max=64"`
}

// LiveVenueItem is one venue in a live tally
type LiveVenueItem struct {
	VenueID          string         `json:"venue_id"`
	Name             string         `json:"name"`
	City             string         `json:"city,omitempty"`
	Voters           int            `json:"voters"`
	Weighted         float64        `json:"weighted"`
	Yes              int            `json:"yes"`
	Maybe            int            `json:"maybe"`
	Score            int            `json:"score"`
	ArrivalHistogram map[string]int `json:"arrival_histogram,omitempty"`
	AvgPrice         *int           `json:"avg_price,omitempty"`
}

// LiveTallyResponse is the current night's aggregate
type LiveTallyResponse struct {
	Mode        string          `json:"mode"`
	Night       string          `json:"night"`
	GeneratedAt time.Time       `json:"generated_at"`
	StayIn      int             `json:"stay_in"`
	Voters      int             `json:"voters"`
	Venues      []LiveVenueItem `json:"venues"`
}

// LeaderboardEntry is one podium place
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	VenueID  string  `json:"venue_id"`
	Name     string  `json:"name"`
	Voters   int     `json:"voters"`
	Weighted float64 `json:"weighted"`
}

// LeaderboardResponse is the tie-safe top three
type LeaderboardResponse struct {
	Mode          string             `json:"mode"`
	Night         string             `json:"night"`
	City          string             `json:"city,omitempty"`
	Entries       []LeaderboardEntry `json:"entries"`
	Ranks         map[string]int     `json:"ranks"`
	Gold          string             `json:"gold,omitempty"`
	Silver        string             `json:"silver,omitempty"`
	Bronze        string             `json:"bronze,omitempty"`
	StoppedForTie bool               `json:"stopped_for_tie"`
	LeadersCount  int                `json:"leaders_count"`
}
