package models

import (
	"time"

	"github.com/amirphl/nightpulse/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HousepartyKind classifies a listing
type HousepartyKind string

const (
	HousepartyKindPres     HousepartyKind = "pres"
	HousepartyKindAfters   HousepartyKind = "afters"
	HousepartyKindAllNight HousepartyKind = "all-night"
)

// Valid reports whether k is a known kind
func (k HousepartyKind) Valid() bool {
	switch k {
	case HousepartyKindPres, HousepartyKindAfters, HousepartyKindAllNight:
		return true
	}
	return false
}

// HousepartyStatus is the moderation state of a listing
type HousepartyStatus string

const (
	HousepartyStatusPending  HousepartyStatus = "pending"
	HousepartyStatusActive   HousepartyStatus = "active"
	HousepartyStatusRejected HousepartyStatus = "rejected"
	HousepartyStatusHidden   HousepartyStatus = "hidden"
)

var housepartyTransitions = map[HousepartyStatus][]HousepartyStatus{
	HousepartyStatusPending: {HousepartyStatusActive, HousepartyStatusRejected},
	HousepartyStatusActive:  {HousepartyStatusHidden},
}

// Valid reports whether s is a known status
func (s HousepartyStatus) Valid() bool {
	switch s {
	case HousepartyStatusPending, HousepartyStatusActive, HousepartyStatusRejected, HousepartyStatusHidden:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s
func (s HousepartyStatus) IsTerminal() bool {
	return len(housepartyTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s HousepartyStatus) CanTransitionTo(next HousepartyStatus) bool {
	for _, allowed := range housepartyTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HousepartySubmission is a user-submitted listing for one night
// Table: houseparties
type HousepartySubmission struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorUID string           `gorm:"type:varchar(128);not null;index:idx_houseparties_author" json:"author_uid"`
	Title     string           `gorm:"type:varchar(64);not null" json:"title"`
	Address   string           `gorm:"type:varchar(160)" json:"address,omitempty"`
	Notes     string           `gorm:"type:text" json:"notes,omitempty"`
	Kind      HousepartyKind   `gorm:"type:varchar(16);not null;default:'all-night'" json:"kind"`
	Lat       float64          `gorm:"not null" json:"lat"`
	Lng       float64          `gorm:"not null" json:"lng"`
	StartsAt  time.Time        `gorm:"not null" json:"starts_at"`
	EndsAt    time.Time        `gorm:"not null" json:"ends_at"`
	NightKey  string           `gorm:"type:varchar(8);not null;index:idx_houseparties_night_status,priority:1" json:"night_key"`
	Status    HousepartyStatus `gorm:"type:varchar(16);not null;index:idx_houseparties_night_status,priority:2" json:"status"`
	UAHash    string           `gorm:"type:varchar(64)" json:"-"`
	IPHint    string           `gorm:"type:varchar(64)" json:"-"`

	HiddenAt         *time.Time `json:"hidden_at,omitempty"`
	ModeratedAt      *time.Time `json:"moderated_at,omitempty"`
	ModeratedByUID   *string    `gorm:"type:varchar(128)" json:"moderated_by_uid,omitempty"`
	ModeratedByEmail *string    `gorm:"type:varchar(255)" json:"moderated_by_email,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (HousepartySubmission) TableName() string { return "houseparties" }

// BeforeCreate assigns the id and timestamps
func (h *HousepartySubmission) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	now := utils.UTCNow()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	if h.UpdatedAt.IsZero() {
		h.UpdatedAt = now
	}
	if h.Status == "" {
		h.Status = HousepartyStatusPending
	}
	return nil
}

// Location returns the listing coordinate
func (h *HousepartySubmission) Location() utils.LatLng {
	return utils.LatLng{Lat: h.Lat, Lng: h.Lng}
}

// Overlaps reports whether the two listings' time windows intersect
func (h *HousepartySubmission) Overlaps(startsAt, endsAt time.Time) bool {
	return h.StartsAt.Before(endsAt) && startsAt.Before(h.EndsAt)
}

// HousepartyFilter represents filter criteria for houseparty queries
type HousepartyFilter struct {
	ID        *uuid.UUID
	AuthorUID *string
	NightKey  *string
	NightKeys []string
	Status    *HousepartyStatus
	Statuses  []HousepartyStatus
	Kind      *HousepartyKind
}
