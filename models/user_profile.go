package models

import (
	"time"

	"github.com/amirphl/nightpulse/utils"
	"gorm.io/gorm"
)

// UserProfile carries per-user trust used to gate submissions
// Table: user_profiles
type UserProfile struct {
	UID        string    `gorm:"type:varchar(128);primaryKey" json:"uid"`
	TrustScore int       `gorm:"not null;default:0" json:"trust_score"`
	Email      *string   `gorm:"type:varchar(255)" json:"email,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profiles" }

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	now := utils.UTCNow()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return nil
}
