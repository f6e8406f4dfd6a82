package models

import (
	"time"

	"github.com/amirphl/nightpulse/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportTargetKind names what a report points at
type ReportTargetKind string

const (
	ReportTargetHouseparty ReportTargetKind = "houseparty"
	ReportTargetVenue      ReportTargetKind = "venue"
)

// Valid reports whether k is a known target kind
func (k ReportTargetKind) Valid() bool {
	return k == ReportTargetHouseparty || k == ReportTargetVenue
}

const ReportReasonMaxLength = 140

// Report is an append-only abuse report
// Table: reports
type Report struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TargetKind  ReportTargetKind `gorm:"type:varchar(16);not null;index:idx_reports_target,priority:1" json:"target_kind"`
	TargetID    string           `gorm:"type:varchar(128);not null;index:idx_reports_target,priority:2" json:"target_id"`
	Reason      string           `gorm:"type:varchar(140)" json:"reason,omitempty"`
	ReporterUID *string          `gorm:"type:varchar(128)" json:"reporter_uid,omitempty"`
	NightKey    string           `gorm:"type:varchar(8);not null;index:idx_reports_night_key" json:"night_key"`
	CreatedAt   time.Time        `gorm:"not null;index:idx_reports_created_at" json:"created_at"`
}

func (Report) TableName() string { return "reports" }

// BeforeCreate assigns the id and creation time
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ReporterKey identifies the reporter for distinct counting. Anonymous
// reports count as their own reporter.
func (r *Report) ReporterKey() string {
	if r.ReporterUID != nil && *r.ReporterUID != "" {
		return "uid:" + *r.ReporterUID
	}
	return "report:" + r.ID.String()
}

// ReportFilter represents filter criteria for report queries
type ReportFilter struct {
	TargetKind    *ReportTargetKind
	TargetID      *string
	NightKey      *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// ReportTarget groups reports that point at the same entity
type ReportTarget struct {
	Kind ReportTargetKind
	ID   string
}
