package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/nightpulse/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NightLockRepositoryImpl implements NightLockRepository interface
type NightLockRepositoryImpl struct {
	*BaseRepository[models.NightLock, struct{}]
}

// NewNightLockRepository creates a new night lock repository
func NewNightLockRepository(db *gorm.DB) NightLockRepository {
	return &NightLockRepositoryImpl{
		BaseRepository: NewBaseRepository[models.NightLock, struct{}](db),
	}
}

// Acquire makes sure the night's lock row exists and writes to it. Inside a
// transaction the write holds the row lock until commit or rollback, so
// concurrent callers for the same night run one after another.
func (r *NightLockRepositoryImpl) Acquire(ctx context.Context, nightKey string, at time.Time) error {
	if _, ok := ctx.Value(TxContextKey).(*gorm.DB); !ok {
		return fmt.Errorf("night lock for %s requires a transaction", nightKey)
	}
	db := r.getDB(ctx)

	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.NightLock{NightKey: nightKey, TouchedAt: at}).Error
	if err != nil {
		return fmt.Errorf("failed to create night lock %s: %w", nightKey, err)
	}

	err = db.Model(&models.NightLock{}).
		Where("night_key = ?", nightKey).
		Update("touched_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to lock night %s: %w", nightKey, err)
	}
	return nil
}
