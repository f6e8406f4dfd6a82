package models

import "time"

// NightLock is a per-night row that writers touch inside a transaction to
// serialize submission checks for that night
// Table: night_locks
type NightLock struct {
	NightKey  string    `gorm:"type:varchar(8);primaryKey" json:"night_key"`
	TouchedAt time.Time `gorm:"not null" json:"touched_at"`
}

func (NightLock) TableName() string { return "night_locks" }
