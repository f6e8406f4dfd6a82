package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// SummaryItem is the prediction for one venue. TypicalPeak is set in
// nightlife mode and AvgPrice in food mode, each only when data exists.
type SummaryItem struct {
	Score       int    `json:"score"`
	TypicalPeak string `json:"typical_peak,omitempty"`
	AvgPrice    *int   `json:"avg_price,omitempty"`
}

// PredictionSummary is the persisted next-night prediction for a mode
// Table: prediction_summaries
// Unique: (mode, night_key); writes replace the whole row
type PredictionSummary struct {
	ID           uint                                       `gorm:"primaryKey;autoIncrement" json:"-"`
	Mode         VoteMode                                   `gorm:"type:varchar(16);not null;uniqueIndex:idx_summaries_mode_night,priority:1" json:"mode"`
	NightKey     string                                     `gorm:"type:varchar(8);not null;uniqueIndex:idx_summaries_mode_night,priority:2" json:"night"`
	GeneratedAt  time.Time                                  `gorm:"not null" json:"generated_at"`
	Items        datatypes.JSONType[map[string]SummaryItem] `json:"items"`
	Top          pq.StringArray                             `gorm:"type:text[]" json:"top"`
	SourceNights pq.StringArray                             `gorm:"type:text[]" json:"source_nights,omitempty"`
}

func (PredictionSummary) TableName() string { return "prediction_summaries" }

// ItemMap returns the decoded items, never nil
func (s *PredictionSummary) ItemMap() map[string]SummaryItem {
	items := s.Items.Data()
	if items == nil {
		return map[string]SummaryItem{}
	}
	return items
}
