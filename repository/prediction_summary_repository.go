package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/nightpulse/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PredictionSummaryRepositoryImpl implements PredictionSummaryRepository interface
type PredictionSummaryRepositoryImpl struct {
	*BaseRepository[models.PredictionSummary, struct{}]
}

// NewPredictionSummaryRepository creates a new prediction summary repository
func NewPredictionSummaryRepository(db *gorm.DB) PredictionSummaryRepository {
	return &PredictionSummaryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PredictionSummary, struct{}](db),
	}
}

// ByModeAndNight retrieves a stored summary, nil when absent
func (r *PredictionSummaryRepositoryImpl) ByModeAndNight(ctx context.Context, mode models.VoteMode, nightKey string) (*models.PredictionSummary, error) {
	db := r.getDB(ctx)

	var row models.PredictionSummary
	err := db.Where("mode = ? AND night_key = ?", mode, nightKey).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find prediction summary: %w", err)
	}
	return &row, nil
}

// Upsert writes the whole summary row in one statement
func (r *PredictionSummaryRepositoryImpl) Upsert(ctx context.Context, summary *models.PredictionSummary) error {
	db := r.getDB(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mode"}, {Name: "night_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"generated_at", "items", "top", "source_nights"}),
	}).Create(summary).Error
	if err != nil {
		return fmt.Errorf("failed to upsert prediction summary: %w", err)
	}
	return nil
}
