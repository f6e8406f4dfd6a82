// Package models contains domain entities persisted by the engine
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/nightpulse/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VoteMode partitions votes into independent collections
type VoteMode string

const (
	VoteModeNightlife VoteMode = "nightlife"
	VoteModeFood      VoteMode = "food"
)

// Valid reports whether m is a known mode
func (m VoteMode) Valid() bool {
	return m == VoteModeNightlife || m == VoteModeFood
}

// VoteIntent is a vote's stated disposition for the night
type VoteIntent string

const (
	VoteIntentYes   VoteIntent = "yes"
	VoteIntentMaybe VoteIntent = "maybe"
	VoteIntentNo    VoteIntent = "no"
)

// Valid reports whether i is a known intent
func (i VoteIntent) Valid() bool {
	return i == VoteIntentYes || i == VoteIntentMaybe || i == VoteIntentNo
}

// ArrivalWindows lists nightlife arrival windows in display order
var ArrivalWindows = []string{"20-21", "21-22", "22-23", "23-24"}

// IsArrivalWindow reports whether w is one of ArrivalWindows
func IsArrivalWindow(w string) bool {
	for _, known := range ArrivalWindows {
		if w == known {
			return true
		}
	}
	return false
}

var (
	ErrSelectionKindMismatch = errors.New("selection payload does not match its kind")
	ErrSelectionVenueMissing = errors.New("selection venue id is required")
)

// NightlifeSelection picks a venue and, optionally, when the voter expects to arrive
type NightlifeSelection struct {
	VenueID       string `json:"venue_id"`
	ArrivalWindow string `json:"arrival_window,omitempty"`
}

// FoodSelection picks a venue and, optionally, what the voter expects to spend
type FoodSelection struct {
	VenueID string   `json:"venue_id"`
	Price   *float64 `json:"price,omitempty"`
}

// Selection is a tagged variant. Kind names the mode and exactly the matching
// payload is set; the other one is nil.
type Selection struct {
	Kind      VoteMode            `json:"kind"`
	Nightlife *NightlifeSelection `json:"nightlife,omitempty"`
	Food      *FoodSelection      `json:"food,omitempty"`
}

// NewNightlifeSelection builds a nightlife selection
func NewNightlifeSelection(venueID, arrivalWindow string) Selection {
	return Selection{
		Kind:      VoteModeNightlife,
		Nightlife: &NightlifeSelection{VenueID: venueID, ArrivalWindow: arrivalWindow},
	}
}

// NewFoodSelection builds a food selection
func NewFoodSelection(venueID string, price *float64) Selection {
	return Selection{
		Kind: VoteModeFood,
		Food: &FoodSelection{VenueID: venueID, Price: price},
	}
}

// VenueID returns the selected venue regardless of kind
func (s Selection) VenueID() string {
	switch s.Kind {
	case VoteModeNightlife:
		if s.Nightlife != nil {
			return s.Nightlife.VenueID
		}
	case VoteModeFood:
		if s.Food != nil {
			return s.Food.VenueID
		}
	}
	return ""
}

// Validate checks the variant is well formed
func (s Selection) Validate() error {
	switch s.Kind {
	case VoteModeNightlife:
		if s.Nightlife == nil || s.Food != nil {
			return ErrSelectionKindMismatch
		}
		if s.Nightlife.ArrivalWindow != "" && !IsArrivalWindow(s.Nightlife.ArrivalWindow) {
			return fmt.Errorf("unknown arrival window %q", s.Nightlife.ArrivalWindow)
		}
	case VoteModeFood:
		if s.Food == nil || s.Nightlife != nil {
			return ErrSelectionKindMismatch
		}
		if s.Food.Price != nil && *s.Food.Price < 0 {
			return fmt.Errorf("price must not be negative")
		}
	default:
		return fmt.Errorf("unknown selection kind %q", s.Kind)
	}
	if s.VenueID() == "" {
		return ErrSelectionVenueMissing
	}
	return nil
}

// Vote is one user's intent for one night in one mode
// Table: votes
// Unique: (mode, night_key, uid); later writes overwrite the row
type Vote struct {
	ID           uint                           `gorm:"primaryKey;autoIncrement" json:"id"`
	Mode         VoteMode                       `gorm:"type:varchar(16);not null;uniqueIndex:idx_votes_mode_night_uid,priority:1" json:"mode"`
	NightKey     string                         `gorm:"type:varchar(8);not null;uniqueIndex:idx_votes_mode_night_uid,priority:2;index:idx_votes_night_key" json:"night_key"`
	UID          string                         `gorm:"type:varchar(128);not null;uniqueIndex:idx_votes_mode_night_uid,priority:3" json:"uid"`
	Intent       VoteIntent                     `gorm:"type:varchar(8);not null" json:"intent"`
	Selections   datatypes.JSONSlice[Selection] `json:"selections"`
	Lat          *float64                       `json:"lat,omitempty"`
	Lng          *float64                       `json:"lng,omitempty"`
	LastEditedAt time.Time                      `gorm:"not null" json:"last_edited_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Vote) TableName() string { return "votes" }

// BeforeCreate normalizes timestamps
func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	now := utils.UTCNow()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = now
	}
	if v.LastEditedAt.IsZero() {
		v.LastEditedAt = now
	}
	return nil
}

// Location returns the voter's position when one was shared
func (v *Vote) Location() (utils.LatLng, bool) {
	if v.Lat == nil || v.Lng == nil {
		return utils.LatLng{}, false
	}
	return utils.LatLng{Lat: *v.Lat, Lng: *v.Lng}, true
}

// VoteFilter represents filter criteria for vote queries
type VoteFilter struct {
	ID        *uint
	Mode      *VoteMode
	NightKey  *string
	NightKeys []string
	UID       *string
	Intent    *VoteIntent
}
