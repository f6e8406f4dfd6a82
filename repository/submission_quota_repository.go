package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/nightpulse/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmissionQuotaRepositoryImpl implements SubmissionQuotaRepository interface
type SubmissionQuotaRepositoryImpl struct {
	*BaseRepository[models.SubmissionQuota, struct{}]
}

// NewSubmissionQuotaRepository creates a new submission quota repository
func NewSubmissionQuotaRepository(db *gorm.DB) SubmissionQuotaRepository {
	return &SubmissionQuotaRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SubmissionQuota, struct{}](db),
	}
}

// ByKey retrieves the quota row for a user and night
func (r *SubmissionQuotaRepositoryImpl) ByKey(ctx context.Context, uid, nightKey string) (*models.SubmissionQuota, error) {
	db := r.getDB(ctx)

	var row models.SubmissionQuota
	err := db.Where("uid = ? AND night_key = ?", uid, nightKey).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find submission quota: %w", err)
	}
	return &row, nil
}

// TryIncrement bumps the counter with a conditional update and creates the
// row on first use
func (r *SubmissionQuotaRepositoryImpl) TryIncrement(ctx context.Context, uid, nightKey string, limit int, at time.Time) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	db := r.getDB(ctx)

	for attempt := 0; attempt < 2; attempt++ {
		res := db.Model(&models.SubmissionQuota{}).
			Where("uid = ? AND night_key = ? AND count < ?", uid, nightKey, limit).
			Updates(map[string]any{"count": gorm.Expr("count + 1"), "updated_at": at})
		if res.Error != nil {
			return false, fmt.Errorf("failed to increment submission quota: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return true, nil
		}

		existing, err := r.ByKey(ctx, uid, nightKey)
		if err != nil {
			return false, err
		}
		if existing != nil {
			return false, nil
		}

		res = db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.SubmissionQuota{UID: uid, NightKey: nightKey, Count: 1, UpdatedAt: at})
		if res.Error != nil {
			return false, fmt.Errorf("failed to create submission quota: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return true, nil
		}
		// a concurrent writer created the row first; retry the conditional update
	}
	return false, nil
}
