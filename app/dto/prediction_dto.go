package dto

import "time"

// PredictionItem is one venue's outlook
type PredictionItem struct {
	VenueID     string `json:"venue_id"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	TypicalPeak string `json:"typical_peak,omitempty"`
	AvgPrice    *int   `json:"avg_price,omitempty"`
}

// PredictionResponse is a stored or freshly computed summary
type PredictionResponse struct {
	Mode         string           `json:"mode"`
	Night        string           `json:"night"`
	GeneratedAt  time.Time        `json:"generated_at"`
	Top          []string         `json:"top"`
	Items        []PredictionItem `json:"items"`
	SourceNights []string         `json:"source_nights,omitempty"`
	Cached       bool             `json:"cached"`
	Written      bool             `json:"written"`
}

// GenerateSummaryRequest drives the scheduled generation path
type GenerateSummaryRequest struct {
	Mode   string `json:"mode" query:"mode" validate:"omitempty,oneof=nightlife food"`
	Night  string `json:"night,omitempty" query:"night" validate:"omitempty,night_key"`
	Force  bool   `json:"force" query:"force"`
	DryRun bool   `json:"dry_run" query:"dryRun"`
}

// GenerateSummaryResponse reports every generated mode
type GenerateSummaryResponse struct {
	Message   string               `json:"message"`
	Summaries []PredictionResponse `json:"summaries"`
}

// BackfillRequest regenerates prior nights
type BackfillRequest struct {
	Mode   string `json:"mode" query:"mode" validate:"omitempty,oneof=nightlife food"`
	End    string `json:"end,omitempty" query:"end" validate:"omitempty,night_key"`
	Nights int    `json:"nights" query:"nights" validate:"required,min=1,max=60"`
	DryRun bool   `json:"dry_run" query:"dryRun"`
}

// BackfillResponse lists regenerated nights
type BackfillResponse struct {
	Message string   `json:"message"`
	Mode    string   `json:"mode"`
	Nights  []string `json:"nights"`
	DryRun  bool     `json:"dry_run"`
}

// SweepReportsResponse summarises a report sweep
type SweepReportsResponse struct {
	Message          string   `json:"message"`
	TargetsEvaluated int      `json:"targets_evaluated"`
	Hidden           []string `json:"hidden"`
}
