package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/nightpulse/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserProfileRepositoryImpl implements UserProfileRepository interface
type UserProfileRepositoryImpl struct {
	*BaseRepository[models.UserProfile, struct{}]
}

// NewUserProfileRepository creates a new user profile repository
func NewUserProfileRepository(db *gorm.DB) UserProfileRepository {
	return &UserProfileRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UserProfile, struct{}](db),
	}
}

// ByUID retrieves a profile, nil when the user has none
func (r *UserProfileRepositoryImpl) ByUID(ctx context.Context, uid string) (*models.UserProfile, error) {
	db := r.getDB(ctx)

	var row models.UserProfile
	err := db.Where("uid = ?", uid).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}
	return &row, nil
}

// TrustScore returns the user's trust score
func (r *UserProfileRepositoryImpl) TrustScore(ctx context.Context, uid string) (int, error) {
	profile, err := r.ByUID(ctx, uid)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, nil
	}
	return profile.TrustScore, nil
}

// Upsert creates or replaces a profile
func (r *UserProfileRepositoryImpl) Upsert(ctx context.Context, profile *models.UserProfile) error {
	db := r.getDB(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"trust_score", "email", "updated_at"}),
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user profile: %w", err)
	}
	return nil
}
