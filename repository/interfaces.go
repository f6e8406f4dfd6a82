// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/nightpulse/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// VoteRepository defines operations for votes
type VoteRepository interface {
	Repository[models.Vote, models.VoteFilter]
	ByID(ctx context.Context, id uint) (*models.Vote, error)
	ByKey(ctx context.Context, mode models.VoteMode, nightKey, uid string) (*models.Vote, error)
	// ListByNight returns every vote of one night bucket ordered by uid
	ListByNight(ctx context.Context, mode models.VoteMode, nightKey string) ([]*models.Vote, error)
	Upsert(ctx context.Context, vote *models.Vote) error
}

// HousepartyRepository defines operations for houseparty submissions
type HousepartyRepository interface {
	Repository[models.HousepartySubmission, models.HousepartyFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.HousepartySubmission, error)
	// ListForDedup returns all of the night's submissions, in any status
	ListForDedup(ctx context.Context, nightKey string) ([]*models.HousepartySubmission, error)
	// TransitionStatus moves a submission from one status to another. It reports
	// false when the submission was not in the expected status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.HousepartyStatus, fields map[string]any) (bool, error)
}

// NightLockRepository serializes writers of one night inside a transaction
type NightLockRepository interface {
	Acquire(ctx context.Context, nightKey string, at time.Time) error
}

// SubmissionQuotaRepository defines operations for per-night submission quotas
type SubmissionQuotaRepository interface {
	ByKey(ctx context.Context, uid, nightKey string) (*models.SubmissionQuota, error)
	// TryIncrement adds one accepted submission unless the limit is reached
	TryIncrement(ctx context.Context, uid, nightKey string, limit int, at time.Time) (bool, error)
}

// ReportRepository defines operations for abuse reports
type ReportRepository interface {
	Repository[models.Report, models.ReportFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListSince(ctx context.Context, since time.Time) ([]*models.Report, error)
	ListForTarget(ctx context.Context, target models.ReportTarget, since time.Time) ([]*models.Report, error)
}

// VenueFlagRepository defines operations for venue moderation flags
type VenueFlagRepository interface {
	ByVenueID(ctx context.Context, venueID string) (*models.VenueFlag, error)
	HiddenVenueIDs(ctx context.Context) (map[string]bool, error)
	// MarkHidden hides a venue. It reports false when the venue was already hidden.
	MarkHidden(ctx context.Context, venueID string, at time.Time) (bool, error)
}

// PredictionSummaryRepository defines operations for prediction summaries
type PredictionSummaryRepository interface {
	ByModeAndNight(ctx context.Context, mode models.VoteMode, nightKey string) (*models.PredictionSummary, error)
	Upsert(ctx context.Context, summary *models.PredictionSummary) error
}

// UserProfileRepository defines operations for user profiles
type UserProfileRepository interface {
	ByUID(ctx context.Context, uid string) (*models.UserProfile, error)
	// TrustScore returns zero for unknown users
	TrustScore(ctx context.Context, uid string) (int, error)
	Upsert(ctx context.Context, profile *models.UserProfile) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByTarget(ctx context.Context, targetID string, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
}
