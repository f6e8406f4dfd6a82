package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/nightpulse/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRepositoryImpl implements ReportRepository interface
type ReportRepositoryImpl struct {
	*BaseRepository[models.Report, models.ReportFilter]
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &ReportRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Report, models.ReportFilter](db),
	}
}

// ByUUID retrieves a report by id
func (r *ReportRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	db := r.getDB(ctx)

	var row models.Report
	err := db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find report %s: %w", id, err)
	}
	return &row, nil
}

// ListSince retrieves every report created at or after since
func (r *ReportRepositoryImpl) ListSince(ctx context.Context, since time.Time) ([]*models.Report, error) {
	return r.ByFilter(ctx, models.ReportFilter{CreatedAfter: &since}, "created_at ASC", 0, 0)
}

// ListForTarget retrieves reports of one target created at or after since
func (r *ReportRepositoryImpl) ListForTarget(ctx context.Context, target models.ReportTarget, since time.Time) ([]*models.Report, error) {
	return r.ByFilter(ctx, models.ReportFilter{
		TargetKind:   &target.Kind,
		TargetID:     &target.ID,
		CreatedAfter: &since,
	}, "created_at ASC", 0, 0)
}

// applyFilter applies filter criteria to a GORM query
func (r *ReportRepositoryImpl) applyFilter(query *gorm.DB, filter models.ReportFilter) *gorm.DB {
	if filter.TargetKind != nil {
		query = query.Where("target_kind = ?", *filter.TargetKind)
	}
	if filter.TargetID != nil {
		query = query.Where("target_id = ?", *filter.TargetID)
	}
	if filter.NightKey != nil {
		query = query.Where("night_key = ?", *filter.NightKey)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves reports based on filter criteria
func (r *ReportRepositoryImpl) ByFilter(ctx context.Context, filter models.ReportFilter, orderBy string, limit, offset int) ([]*models.Report, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Report{}), filter)

	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Report
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return rows, nil
}

// Count returns number of reports matching filter
func (r *ReportRepositoryImpl) Count(ctx context.Context, filter models.ReportFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Report{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// Exists checks if any report matches the filter
func (r *ReportRepositoryImpl) Exists(ctx context.Context, filter models.ReportFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
