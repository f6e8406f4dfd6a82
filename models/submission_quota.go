package models

import "time"

// SubmissionQuota counts accepted houseparty submissions per user and night
// Table: submission_quotas
type SubmissionQuota struct {
	UID       string    `gorm:"type:varchar(128);primaryKey" json:"uid"`
	NightKey  string    `gorm:"type:varchar(8);primaryKey" json:"night_key"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (SubmissionQuota) TableName() string { return "submission_quotas" }
