package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HousepartyRepositoryImpl implements HousepartyRepository interface
type HousepartyRepositoryImpl struct {
	*BaseRepository[models.HousepartySubmission, models.HousepartyFilter]
}

// NewHousepartyRepository creates a new houseparty repository
func NewHousepartyRepository(db *gorm.DB) HousepartyRepository {
	return &HousepartyRepositoryImpl{
		BaseRepository: NewBaseRepository[models.HousepartySubmission, models.HousepartyFilter](db),
	}
}

// ByUUID retrieves a submission by id
func (r *HousepartyRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.HousepartySubmission, error) {
	db := r.getDB(ctx)

	var row models.HousepartySubmission
	err := db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find houseparty %s: %w", id, err)
	}
	return &row, nil
}

// ListForDedup retrieves every submission of a night, whatever its status
func (r *HousepartyRepositoryImpl) ListForDedup(ctx context.Context, nightKey string) ([]*models.HousepartySubmission, error) {
	db := r.getDB(ctx)

	var rows []*models.HousepartySubmission
	err := db.Where("night_key = ?", nightKey).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list houseparties for dedup: %w", err)
	}
	return rows, nil
}

// TransitionStatus updates the status only when the row is still in the expected one
func (r *HousepartyRepositoryImpl) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.HousepartyStatus, fields map[string]any) (bool, error) {
	db := r.getDB(ctx)

	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = utils.UTCNow()
	}

	res := db.Model(&models.HousepartySubmission{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update houseparty status: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *HousepartyRepositoryImpl) applyFilter(query *gorm.DB, filter models.HousepartyFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.AuthorUID != nil {
		query = query.Where("author_uid = ?", *filter.AuthorUID)
	}
	if filter.NightKey != nil {
		query = query.Where("night_key = ?", *filter.NightKey)
	}
	if len(filter.NightKeys) > 0 {
		query = query.Where("night_key IN ?", filter.NightKeys)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	return query
}

// ByFilter retrieves submissions based on filter criteria
func (r *HousepartyRepositoryImpl) ByFilter(ctx context.Context, filter models.HousepartyFilter, orderBy string, limit, offset int) ([]*models.HousepartySubmission, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.HousepartySubmission{}), filter)

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

	var rows []*models.HousepartySubmission
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list houseparties: %w", err)
	}
	return rows, nil
}

// Count returns number of submissions matching filter
func (r *HousepartyRepositoryImpl) Count(ctx context.Context, filter models.HousepartyFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.HousepartySubmission{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count houseparties: %w", err)
	}
	return count, nil
}

// Exists checks if any submission matches the filter
func (r *HousepartyRepositoryImpl) Exists(ctx context.Context, filter models.HousepartyFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
