package models

import (
	"time"

	"github.com/amirphl/nightpulse/utils"
	"gorm.io/gorm"
)

// VenueFlag records moderation of a directory venue. A venue without a
// flag is visible.
// Table: venue_flags
type VenueFlag struct {
	VenueID   string      `gorm:"type:varchar(128);primaryKey" json:"venue_id"`
	Status    VenueStatus `gorm:"type:varchar(16);not null" json:"status"`
	HiddenAt  *time.Time  `json:"hidden_at,omitempty"`
	UpdatedAt time.Time   `gorm:"not null" json:"updated_at"`
}

func (VenueFlag) TableName() string { return "venue_flags" }

func (f *VenueFlag) BeforeCreate(tx *gorm.DB) error {
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = utils.UTCNow()
	}
	return nil
}
