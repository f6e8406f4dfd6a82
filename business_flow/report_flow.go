package businessflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/repository"
	"github.com/amirphl/nightpulse/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ReportFlow records abuse reports and hides targets that cross the threshold
type ReportFlow interface {
	Report(ctx context.Context, req *dto.ReportRequest, metadata *ClientMetadata) (*dto.ReportResponse, error)
	Sweep(ctx context.Context) (*dto.SweepReportsResponse, error)
	SweepTarget(ctx context.Context, target models.ReportTarget) (bool, error)
	AdminReports(ctx context.Context, req *dto.AdminReportsRequest) (*dto.AdminReportsResponse, error)
	ExportReports(ctx context.Context, req *dto.AdminReportsRequest) (string, []byte, error)
}

// ReportFlowImpl implements ReportFlow
type ReportFlowImpl struct {
	reportRepo     repository.ReportRepository
	housepartyRepo repository.HousepartyRepository
	venueFlags     repository.VenueFlagRepository
	auditRepo      repository.AuditLogRepository
	venues         VenueLookup
	nights         *utils.NightKeyResolver
	cfg            config.ReportsConfig
	now            utils.Clock
}

// NewReportFlow creates a new report flow
func NewReportFlow(
	reportRepo repository.ReportRepository,
	housepartyRepo repository.HousepartyRepository,
	venueFlags repository.VenueFlagRepository,
	auditRepo repository.AuditLogRepository,
	venues VenueLookup,
	nights *utils.NightKeyResolver,
	cfg config.ReportsConfig,
	clock utils.Clock,
) ReportFlow {
	if clock == nil {
		clock = utils.UTCNow
	}
	return &ReportFlowImpl{
		reportRepo:     reportRepo,
		housepartyRepo: housepartyRepo,
		venueFlags:     venueFlags,
		auditRepo:      auditRepo,
		venues:         venues,
		nights:         nights,
		cfg:            cfg,
		now:            clock,
	}
}

// Report stores a report and, when configured, re-evaluates its target at once
func (r *ReportFlowImpl) Report(ctx context.Context, req *dto.ReportRequest, metadata *ClientMetadata) (*dto.ReportResponse, error) {
	kind := models.ReportTargetKind(req.TargetKind)
	if !kind.Valid() {
		return nil, ErrInvalidReportTarget
	}
	targetID := strings.TrimSpace(req.TargetID)
	if targetID == "" {
		return nil, ErrInvalidReportTarget
	}

	maxLen := r.cfg.ReasonMaxLength
	if maxLen <= 0 {
		maxLen = models.ReportReasonMaxLength
	}
	reason := strings.TrimSpace(stripPictographs(req.Reason))
	if len([]rune(reason)) > maxLen {
		return nil, ErrReasonTooLong
	}

	if err := r.ensureTarget(ctx, kind, targetID); err != nil {
		return nil, err
	}

	now := r.now()
	report := &models.Report{
		TargetKind: kind,
		TargetID:   targetID,
		Reason:     reason,
		NightKey:   r.nights.Resolve(now),
		CreatedAt:  now,
	}
	if req.ReporterUID != "" {
		report.ReporterUID = utils.ToPtr(req.ReporterUID)
	}
	if err := r.reportRepo.Save(ctx, report); err != nil {
		return nil, storageError(err)
	}
	reportsReceived.WithLabelValues(string(kind)).Inc()

	writeAudit(ctx, r.auditRepo, auditEntry{
		actorUID:    req.ReporterUID,
		action:      models.AuditActionReportCreated,
		targetKind:  string(kind),
		targetID:    targetID,
		description: "Report received",
		success:     true,
	}, metadata)

	resp := &dto.ReportResponse{Message: "Report received", ID: report.ID.String()}
	if r.cfg.SweepOnEveryReport {
		hidden, err := r.SweepTarget(ctx, models.ReportTarget{Kind: kind, ID: targetID})
		if err != nil {
			return nil, err
		}
		resp.TargetHidden = hidden
	}
	return resp, nil
}

func (r *ReportFlowImpl) ensureTarget(ctx context.Context, kind models.ReportTargetKind, id string) error {
	switch kind {
	case models.ReportTargetVenue:
		if _, ok := r.venues.Venue(id); !ok {
			return ErrUnknownVenue
		}
	case models.ReportTargetHouseparty:
		hid, err := uuid.Parse(id)
		if err != nil {
			return ErrInvalidReportTarget
		}
		h, err := r.housepartyRepo.ByUUID(ctx, hid)
		if err != nil {
			return storageError(err)
		}
		if h == nil {
			return ErrHousepartyNotFound
		}
	}
	return nil
}

// Sweep re-evaluates every target reported within the review window
func (r *ReportFlowImpl) Sweep(ctx context.Context) (*dto.SweepReportsResponse, error) {
	reports, err := r.reportRepo.ListSince(ctx, r.now().Add(-r.cfg.ReviewWindow))
	if err != nil {
		return nil, storageError(err)
	}

	groups := groupReports(reports)
	resp := &dto.SweepReportsResponse{Message: "Reports swept", Hidden: []string{}}
	for _, g := range groups {
		resp.TargetsEvaluated++
		if g.reporters < r.cfg.Threshold {
			continue
		}
		hidden, err := r.hide(ctx, g.target, g.reporters)
		if err != nil {
			return nil, err
		}
		if hidden {
			resp.Hidden = append(resp.Hidden, string(g.target.Kind)+":"+g.target.ID)
		}
	}
	return resp, nil
}

// SweepTarget applies the threshold rule to one target. It reports whether
// the target was hidden by this call.
func (r *ReportFlowImpl) SweepTarget(ctx context.Context, target models.ReportTarget) (bool, error) {
	reports, err := r.reportRepo.ListForTarget(ctx, target, r.now().Add(-r.cfg.ReviewWindow))
	if err != nil {
		return false, storageError(err)
	}
	groups := groupReports(reports)
	if len(groups) == 0 || groups[0].reporters < r.cfg.Threshold {
		return false, nil
	}
	return r.hide(ctx, target, groups[0].reporters)
}

// hide moves active houseparties to hidden and flags venues. Targets in any
// other state are left alone.
func (r *ReportFlowImpl) hide(ctx context.Context, target models.ReportTarget, reporters int) (bool, error) {
	now := r.now()
	var hidden bool

	switch target.Kind {
	case models.ReportTargetHouseparty:
		id, err := uuid.Parse(target.ID)
		if err != nil {
			return false, nil
		}
		hidden, err = r.housepartyRepo.TransitionStatus(ctx, id,
			models.HousepartyStatusActive, models.HousepartyStatusHidden,
			map[string]any{"hidden_at": now})
		if err != nil {
			return false, storageError(err)
		}
	case models.ReportTargetVenue:
		var err error
		hidden, err = r.venueFlags.MarkHidden(ctx, target.ID, now)
		if err != nil {
			return false, storageError(err)
		}
	default:
		return false, nil
	}

	if hidden {
		targetsHidden.WithLabelValues(string(target.Kind)).Inc()
		writeAudit(ctx, r.auditRepo, auditEntry{
			action:      models.AuditActionTargetAutoHidden,
			targetKind:  string(target.Kind),
			targetID:    target.ID,
			description: fmt.Sprintf("Hidden after %d distinct reports", reporters),
			success:     true,
			metadata:    map[string]any{"reporters": reporters, "threshold": r.cfg.Threshold},
		}, nil)
	}
	return hidden, nil
}

type reportGroup struct {
	target       models.ReportTarget
	reports      int
	reporters    int
	latestReason string
	first        time.Time
	last         time.Time
}

// groupReports folds reports by target, counting distinct reporters. The
// result is ordered by target for stable sweeps.
func groupReports(reports []*models.Report) []*reportGroup {
	byTarget := map[models.ReportTarget]*reportGroup{}
	seen := map[models.ReportTarget]map[string]bool{}

	for _, rep := range reports {
		key := models.ReportTarget{Kind: rep.TargetKind, ID: rep.TargetID}
		g, ok := byTarget[key]
		if !ok {
			g = &reportGroup{target: key, first: rep.CreatedAt, last: rep.CreatedAt}
			byTarget[key] = g
			seen[key] = map[string]bool{}
		}
		g.reports++
		if reporter := rep.ReporterKey(); !seen[key][reporter] {
			seen[key][reporter] = true
			g.reporters++
		}
		if rep.CreatedAt.Before(g.first) {
			g.first = rep.CreatedAt
		}
		if !rep.CreatedAt.Before(g.last) {
			g.last = rep.CreatedAt
			if rep.Reason != "" {
				g.latestReason = rep.Reason
			}
		}
	}

	out := make([]*reportGroup, 0, len(byTarget))
	for _, g := range byTarget {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].target.Kind != out[j].target.Kind {
			return out[i].target.Kind < out[j].target.Kind
		}
		return out[i].target.ID < out[j].target.ID
	})
	return out
}

// AdminReports aggregates reports per target, most reported first
func (r *ReportFlowImpl) AdminReports(ctx context.Context, req *dto.AdminReportsRequest) (*dto.AdminReportsResponse, error) {
	windowHours := req.WindowHours
	if windowHours <= 0 {
		windowHours = r.cfg.AdminWindowHours
	}
	since := r.now().Add(-time.Duration(windowHours) * time.Hour)

	filter := models.ReportFilter{CreatedAfter: &since}
	if req.Kind != "" {
		kind := models.ReportTargetKind(req.Kind)
		if !kind.Valid() {
			return nil, ErrInvalidReportTarget
		}
		filter.TargetKind = &kind
	}
	if req.Night != "" {
		if _, err := r.nights.Parse(req.Night); err != nil {
			return nil, ErrInvalidNightKey
		}
		filter.NightKey = &req.Night
	}

	reports, err := r.reportRepo.ByFilter(ctx, filter, "created_at ASC", 0, 0)
	if err != nil {
		return nil, storageError(err)
	}
	hiddenVenues, err := r.venueFlags.HiddenVenueIDs(ctx)
	if err != nil {
		return nil, storageError(err)
	}

	groups := groupReports(reports)
	targets := make([]dto.ReportAggregate, 0, len(groups))
	for _, g := range groups {
		agg := dto.ReportAggregate{
			TargetKind:        string(g.target.Kind),
			TargetID:          g.target.ID,
			Reports:           g.reports,
			DistinctReporters: g.reporters,
			LatestReason:      g.latestReason,
			FirstReportedAt:   g.first,
			LastReportedAt:    g.last,
		}
		switch g.target.Kind {
		case models.ReportTargetVenue:
			if v, ok := r.venues.Venue(g.target.ID); ok {
				agg.TargetName = v.Name
			}
			agg.Hidden = hiddenVenues[g.target.ID]
		case models.ReportTargetHouseparty:
			if id, err := uuid.Parse(g.target.ID); err == nil {
				h, err := r.housepartyRepo.ByUUID(ctx, id)
				if err != nil {
					return nil, storageError(err)
				}
				if h != nil {
					agg.TargetName = h.Title
					agg.Hidden = h.Status == models.HousepartyStatusHidden
				}
			}
		}
		targets = append(targets, agg)
	}
	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].DistinctReporters != targets[j].DistinctReporters {
			return targets[i].DistinctReporters > targets[j].DistinctReporters
		}
		return targets[i].LastReportedAt.After(targets[j].LastReportedAt)
	})

	return &dto.AdminReportsResponse{WindowHours: windowHours, Since: since, Targets: targets}, nil
}

// ExportReports renders the admin aggregation as an xlsx workbook
func (r *ReportFlowImpl) ExportReports(ctx context.Context, req *dto.AdminReportsRequest) (string, []byte, error) {
	agg, err := r.AdminReports(ctx, req)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "reports"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []any{"target_kind", "target_id", "target_name", "reports", "distinct_reporters", "hidden", "latest_reason", "first_reported_at", "last_reported_at"}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel header", err)
	}
	for i, t := range agg.Targets {
		row := []any{
			t.TargetKind,
			t.TargetID,
			t.TargetName,
			t.Reports,
			t.DistinctReporters,
			t.Hidden,
			t.LatestReason,
			t.FirstReportedAt.UTC().Format(time.RFC3339),
			t.LastReportedAt.UTC().Format(time.RFC3339),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(sheet, cell, &row); err != nil {
			return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("reports_%s_%dh.xlsx", r.nights.Resolve(r.now()), agg.WindowHours)
	return filename, buf.Bytes(), nil
}
