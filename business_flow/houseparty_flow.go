package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/amirphl/nightpulse/app/dto"
	"github.com/amirphl/nightpulse/config"
	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/repository"
	"github.com/amirphl/nightpulse/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	HousepartyRangeTonight = "tonight"
	HousepartyRangeRecent  = "recent"
)

// HousepartyFlow gates, lists and moderates houseparty submissions
type HousepartyFlow interface {
	Submit(ctx context.Context, req *dto.SubmitHousepartyRequest, metadata *ClientMetadata) (*dto.SubmitHousepartyResponse, error)
	List(ctx context.Context, req *dto.ListHousepartiesRequest) (*dto.ListHousepartiesResponse, error)
	AdminList(ctx context.Context, req *dto.AdminListHousepartiesRequest) (*dto.ListHousepartiesResponse, error)
	Moderate(ctx context.Context, req *dto.ModerateHousepartyRequest, metadata *ClientMetadata) (*dto.ModerateHousepartyResponse, error)
}

// HousepartyFlowImpl implements HousepartyFlow
type HousepartyFlowImpl struct {
	housepartyRepo repository.HousepartyRepository
	nightLockRepo  repository.NightLockRepository
	quotaRepo      repository.SubmissionQuotaRepository
	profileRepo    repository.UserProfileRepository
	auditRepo      repository.AuditLogRepository
	nights         *utils.NightKeyResolver
	cfg            config.HousepartyConfig
	db             *gorm.DB
	now            utils.Clock
}

// NewHousepartyFlow creates a new houseparty flow
func NewHousepartyFlow(
	housepartyRepo repository.HousepartyRepository,
	nightLockRepo repository.NightLockRepository,
	quotaRepo repository.SubmissionQuotaRepository,
	profileRepo repository.UserProfileRepository,
	auditRepo repository.AuditLogRepository,
	nights *utils.NightKeyResolver,
	cfg config.HousepartyConfig,
	db *gorm.DB,
	clock utils.Clock,
) HousepartyFlow {
	if clock == nil {
		clock = utils.UTCNow
	}
	return &HousepartyFlowImpl{
		housepartyRepo: housepartyRepo,
		nightLockRepo:  nightLockRepo,
		quotaRepo:      quotaRepo,
		profileRepo:    profileRepo,
		auditRepo:      auditRepo,
		nights:         nights,
		cfg:            cfg,
		db:             db,
		now:            clock,
	}
}

// Submit runs the submission gate. Quota, duplicate scan, trust lookup and
// insert share one transaction serialized on the night's lock row.
func (h *HousepartyFlowImpl) Submit(ctx context.Context, req *dto.SubmitHousepartyRequest, metadata *ClientMetadata) (*dto.SubmitHousepartyResponse, error) {
	submission, err := h.prepare(req)
	if err != nil {
		h.recordRejection(ctx, req.AuthorUID, err, metadata)
		return nil, err
	}
	if metadata != nil {
		submission.UAHash = metadata.UAHash()
		submission.IPHint = metadata.IPHint()
	}

	err = repository.WithTransaction(ctx, h.db, func(txCtx context.Context) error {
		return h.admit(txCtx, submission)
	})
	if err != nil {
		if !isRejection(err) {
			err = storageError(err)
		}
		h.recordRejection(ctx, req.AuthorUID, err, metadata)
		return nil, err
	}

	housepartyDecisions.WithLabelValues(string(submission.Status)).Inc()
	writeAudit(ctx, h.auditRepo, auditEntry{
		actorUID:    submission.AuthorUID,
		action:      models.AuditActionHousepartySubmitted,
		targetKind:  string(models.ReportTargetHouseparty),
		targetID:    submission.ID.String(),
		description: fmt.Sprintf("Houseparty submitted as %s", submission.Status),
		success:     true,
		metadata:    map[string]any{"night": submission.NightKey, "status": submission.Status},
	}, metadata)

	msg := "Houseparty submitted for review"
	if submission.Status == models.HousepartyStatusActive {
		msg = "Houseparty published"
	}
	return &dto.SubmitHousepartyResponse{
		Message:    msg,
		Houseparty: ToHousepartyItem(submission, false),
	}, nil
}

// prepare sanitises the request and checks the time window and geofence
func (h *HousepartyFlowImpl) prepare(req *dto.SubmitHousepartyRequest) (*models.HousepartySubmission, error) {
	if strings.TrimSpace(req.AuthorUID) == "" {
		return nil, ErrAuth
	}

	if containsBlocked(req.Title, req.Address, req.Notes) {
		return nil, ErrBlockedContent
	}
	title := cleanText(req.Title, h.cfg.TitleMaxLength)
	if title == "" {
		return nil, ErrTitleRequired
	}
	address := cleanText(req.Address, h.cfg.AddressMaxLength)
	notes := cleanText(req.Notes, h.cfg.NotesMaxLength)

	kind := models.HousepartyKindAllNight
	if req.Kind != "" {
		kind = models.HousepartyKind(req.Kind)
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: unknown kind %q", ErrValidation, req.Kind)
		}
	}

	startsAt, endsAt := req.StartsAt.UTC(), req.EndsAt.UTC()
	if !endsAt.After(startsAt) {
		return nil, ErrInvalidTimeWindow
	}
	tonight := h.nights.Resolve(h.now())
	if h.nights.Resolve(startsAt) != tonight || h.nights.Resolve(endsAt) != tonight {
		return nil, ErrNotCurrentNight
	}

	loc := utils.LatLng{Lat: req.Lat, Lng: req.Lng}
	if !loc.Valid() {
		return nil, ErrInvalidLocation
	}
	center := utils.LatLng{Lat: h.cfg.CenterLat, Lng: h.cfg.CenterLng}
	if utils.HaversineMeters(center, loc) > h.cfg.RadiusMeters {
		return nil, ErrGeofence
	}

	return &models.HousepartySubmission{
		AuthorUID: req.AuthorUID,
		Title:     title,
		Address:   address,
		Notes:     notes,
		Kind:      kind,
		Lat:       req.Lat,
		Lng:       req.Lng,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		NightKey:  tonight,
	}, nil
}

func (h *HousepartyFlowImpl) admit(txCtx context.Context, submission *models.HousepartySubmission) error {
	now := h.now()

	if err := h.nightLockRepo.Acquire(txCtx, submission.NightKey, now); err != nil {
		return storageError(err)
	}

	ok, err := h.quotaRepo.TryIncrement(txCtx, submission.AuthorUID, submission.NightKey, h.cfg.QuotaPerNight, now)
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return ErrQuotaExceeded
	}

	existing, err := h.housepartyRepo.ListForDedup(txCtx, submission.NightKey)
	if err != nil {
		return storageError(err)
	}
	for _, other := range existing {
		if utils.HaversineMeters(other.Location(), submission.Location()) < h.cfg.DedupMeters &&
			other.Overlaps(submission.StartsAt, submission.EndsAt) {
			return ErrDuplicate
		}
	}

	trust, err := h.profileRepo.TrustScore(txCtx, submission.AuthorUID)
	if err != nil {
		return storageError(err)
	}
	submission.Status = models.HousepartyStatusPending
	if trust >= h.cfg.TrustThreshold {
		submission.Status = models.HousepartyStatusActive
	}
	submission.CreatedAt = now
	submission.UpdatedAt = now

	if err := h.housepartyRepo.Save(txCtx, submission); err != nil {
		return storageError(err)
	}
	return nil
}

func isRejection(err error) bool {
	return IsValidation(err) || IsGeofence(err) || IsDuplicate(err) || IsQuotaExceeded(err) || IsAuth(err)
}

func rejectionOutcome(err error) string {
	switch {
	case IsGeofence(err):
		return "geofence"
	case IsDuplicate(err):
		return "duplicate"
	case IsQuotaExceeded(err):
		return "quota"
	case IsValidation(err):
		return "validation"
	case IsAuth(err):
		return "auth"
	default:
		return "error"
	}
}

func (h *HousepartyFlowImpl) recordRejection(ctx context.Context, uid string, err error, metadata *ClientMetadata) {
	outcome := rejectionOutcome(err)
	housepartyDecisions.WithLabelValues(outcome).Inc()
	if outcome == "auth" {
		return
	}
	writeAudit(ctx, h.auditRepo, auditEntry{
		actorUID:    uid,
		action:      models.AuditActionHousepartyRejected,
		targetKind:  string(models.ReportTargetHouseparty),
		description: "Houseparty submission rejected: " + outcome,
		success:     false,
		errorMsg:    err.Error(),
	}, metadata)
}

// List returns active listings of tonight or of the recent nights
func (h *HousepartyFlowImpl) List(ctx context.Context, req *dto.ListHousepartiesRequest) (*dto.ListHousepartiesResponse, error) {
	rng := req.Range
	if rng == "" {
		rng = HousepartyRangeTonight
	}

	var nights []string
	switch rng {
	case HousepartyRangeTonight:
		nights = h.nights.LastNights(h.now(), 1)
	case HousepartyRangeRecent:
		nights = h.nights.LastNights(h.now(), max(1, h.cfg.RecentNights))
	default:
		return nil, fmt.Errorf("%w: unknown range %q", ErrValidation, rng)
	}

	active := models.HousepartyStatusActive
	rows, err := h.housepartyRepo.ByFilter(ctx, models.HousepartyFilter{
		NightKeys: nights,
		Status:    &active,
	}, "starts_at ASC", 0, 0)
	if err != nil {
		return nil, storageError(err)
	}

	items := make([]dto.HousepartyItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToHousepartyItem(row, false))
	}
	return &dto.ListHousepartiesResponse{Range: rng, Nights: nights, Houseparties: items}, nil
}

// AdminList returns the moderation queue, pending by default
func (h *HousepartyFlowImpl) AdminList(ctx context.Context, req *dto.AdminListHousepartiesRequest) (*dto.ListHousepartiesResponse, error) {
	status := models.HousepartyStatusPending
	if req.Status != "" {
		status = models.HousepartyStatus(req.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
		}
	}
	filter := models.HousepartyFilter{Status: &status}

	var nights []string
	if req.Night != "" {
		if _, err := h.nights.Parse(req.Night); err != nil {
			return nil, ErrInvalidNightKey
		}
		filter.NightKey = &req.Night
		nights = []string{req.Night}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := h.housepartyRepo.ByFilter(ctx, filter, "created_at ASC", limit, 0)
	if err != nil {
		return nil, storageError(err)
	}

	items := make([]dto.HousepartyItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToHousepartyItem(row, true))
	}
	return &dto.ListHousepartiesResponse{Range: string(status), Nights: nights, Houseparties: items}, nil
}

var moderationTargets = map[string]struct {
	from models.HousepartyStatus
	to   models.HousepartyStatus
}{
	"approve": {models.HousepartyStatusPending, models.HousepartyStatusActive},
	"reject":  {models.HousepartyStatusPending, models.HousepartyStatusRejected},
	"hide":    {models.HousepartyStatusActive, models.HousepartyStatusHidden},
}

// Moderate applies an admin action and stamps who took it
func (h *HousepartyFlowImpl) Moderate(ctx context.Context, req *dto.ModerateHousepartyRequest, metadata *ClientMetadata) (*dto.ModerateHousepartyResponse, error) {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	move, ok := moderationTargets[req.Action]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, req.Action)
	}

	current, err := h.housepartyRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	if current == nil {
		return nil, ErrHousepartyNotFound
	}
	if current.Status != move.from || !current.Status.CanTransitionTo(move.to) {
		return nil, NewBusinessErrorf("INVALID_TRANSITION", "cannot %s a %s houseparty", ErrInvalidTransition, req.Action, current.Status)
	}

	now := h.now()
	fields := map[string]any{"moderated_at": now}
	if req.AdminUID != "" {
		fields["moderated_by_uid"] = req.AdminUID
	}
	if req.AdminEmail != "" {
		fields["moderated_by_email"] = req.AdminEmail
	}
	if move.to == models.HousepartyStatusHidden {
		fields["hidden_at"] = now
	}

	moved, err := h.housepartyRepo.TransitionStatus(ctx, id, move.from, move.to, fields)
	if err != nil {
		return nil, storageError(err)
	}
	if !moved {
		return nil, NewBusinessErrorf("INVALID_TRANSITION", "houseparty %s changed status concurrently", ErrInvalidTransition, id)
	}

	updated, err := h.housepartyRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	if updated == nil {
		return nil, ErrHousepartyNotFound
	}

	writeAudit(ctx, h.auditRepo, auditEntry{
		actorUID:    req.AdminUID,
		action:      models.AuditActionHousepartyModerated,
		targetKind:  string(models.ReportTargetHouseparty),
		targetID:    id.String(),
		description: fmt.Sprintf("Houseparty %s: %s -> %s", req.Action, move.from, move.to),
		success:     true,
		metadata:    map[string]any{"action": req.Action, "admin_email": req.AdminEmail},
	}, metadata)
	log.Printf("houseparty %s moderated: %s by %s", id, req.Action, firstNonEmpty(req.AdminEmail, req.AdminUID))

	return &dto.ModerateHousepartyResponse{
		Message:    "Houseparty " + string(move.to),
		Houseparty: ToHousepartyItem(updated, true),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
