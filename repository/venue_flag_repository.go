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

// VenueFlagRepositoryImpl implements VenueFlagRepository interface
type VenueFlagRepositoryImpl struct {
	*BaseRepository[models.VenueFlag, struct{}]
}

// NewVenueFlagRepository creates a new venue flag repository
func NewVenueFlagRepository(db *gorm.DB) VenueFlagRepository {
	return &VenueFlagRepositoryImpl{
		BaseRepository: NewBaseRepository[models.VenueFlag, struct{}](db),
	}
}

// ByVenueID retrieves the flag of a venue, nil when the venue was never flagged
func (r *VenueFlagRepositoryImpl) ByVenueID(ctx context.Context, venueID string) (*models.VenueFlag, error) {
	db := r.getDB(ctx)

	var row models.VenueFlag
	err := db.Where("venue_id = ?", venueID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find venue flag: %w", err)
	}
	return &row, nil
}

// HiddenVenueIDs returns the set of hidden venues
func (r *VenueFlagRepositoryImpl) HiddenVenueIDs(ctx context.Context) (map[string]bool, error) {
	db := r.getDB(ctx)

	var ids []string
	err := db.Model(&models.VenueFlag{}).
		Where("status = ?", models.VenueStatusHidden).
		Pluck("venue_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list hidden venues: %w", err)
	}

	hidden := make(map[string]bool, len(ids))
	for _, id := range ids {
		hidden[id] = true
	}
	return hidden, nil
}

// MarkHidden inserts or flips the flag to hidden
func (r *VenueFlagRepositoryImpl) MarkHidden(ctx context.Context, venueID string, at time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.VenueFlag{
		VenueID:   venueID,
		Status:    models.VenueStatusHidden,
		HiddenAt:  &at,
		UpdatedAt: at,
	})
	if res.Error != nil {
		return false, fmt.Errorf("failed to hide venue %s: %w", venueID, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	res = db.Model(&models.VenueFlag{}).
		Where("venue_id = ? AND status <> ?", venueID, models.VenueStatusHidden).
		Updates(map[string]any{"status": models.VenueStatusHidden, "hidden_at": at, "updated_at": at})
	if res.Error != nil {
		return false, fmt.Errorf("failed to hide venue %s: %w", venueID, res.Error)
	}
	return res.RowsAffected == 1, nil
}
