package dto

import "time"

// ReportRequest flags a listing or venue. ReporterUID is filled when the caller is signed in.
type ReportRequest struct {
	TargetKind  string `json:"target_kind" validate:"required,oneof=houseparty venue"`
	TargetID    string `json:"target_id" validate:"required,max=128"`
	Reason      string `json:"reason,omitempty" validate:"max=140"`
	ReporterUID string `json:"-"`
}

// ReportResponse acknowledges a report
type ReportResponse struct {
	Message      string `json:"message"`
	ID           string `json:"id"`
	TargetHidden bool   `json:"target_hidden"`
}

// AdminReportsRequest selects the aggregation window
type AdminReportsRequest struct {
	WindowHours int    `query:"windowHours" json:"window_hours" validate:"omitempty,min=1,max=720"`
	Kind        string `query:"kind" json:"kind" validate:"omitempty,oneof=houseparty venue"`
	Night       string `query:"night" json:"night" validate:"omitempty,night_key"`
}

// ReportAggregate is one target's report count
type ReportAggregate struct {
	TargetKind        string    `json:"target_kind"`
	TargetID          string    `json:"target_id"`
	TargetName        string    `json:"target_name,omitempty"`
	Reports           int       `json:"reports"`
	DistinctReporters int       `json:"distinct_reporters"`
	LatestReason      string    `json:"latest_reason,omitempty"`
	FirstReportedAt   time.Time `json:"first_reported_at"`
	LastReportedAt    time.Time `json:"last_reported_at"`
	Hidden            bool      `json:"hidden"`
}

// AdminReportsResponse lists aggregates, most reported first
type AdminReportsResponse struct {
	WindowHours int               `json:"window_hours"`
	Since       time.Time         `json:"since"`
	Targets     []ReportAggregate `json:"targets"`
}
