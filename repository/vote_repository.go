package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/nightpulse/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepositoryImpl implements VoteRepository interface
type VoteRepositoryImpl struct {
	*BaseRepository[models.Vote, models.VoteFilter]
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &VoteRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Vote, models.VoteFilter](db),
	}
}

// ByKey retrieves the live vote of one user for one night and mode
func (r *VoteRepositoryImpl) ByKey(ctx context.Context, mode models.VoteMode, nightKey, uid string) (*models.Vote, error) {
	db := r.getDB(ctx)

	var vote models.Vote
	err := db.Where("mode = ? AND night_key = ? AND uid = ?", mode, nightKey, uid).First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find vote: %w", err)
	}
	return &vote, nil
}

// ListByNight retrieves one night bucket ordered by uid
func (r *VoteRepositoryImpl) ListByNight(ctx context.Context, mode models.VoteMode, nightKey string) ([]*models.Vote, error) {
	return r.ByFilter(ctx, models.VoteFilter{Mode: &mode, NightKey: &nightKey}, "uid ASC", 0, 0)
}

// Upsert inserts the vote or overwrites the existing one with the same key
func (r *VoteRepositoryImpl) Upsert(ctx context.Context, vote *models.Vote) error {
	db := r.getDB(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mode"}, {Name: "night_key"}, {Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"intent", "selections", "lat", "lng", "last_edited_at", "updated_at",
		}),
	}).Create(vote).Error
	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", err)
	}
	return nil
}

// applyFilter applies filter criteria to a GORM query
func (r *VoteRepositoryImpl) applyFilter(query *gorm.DB, filter models.VoteFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Mode != nil {
		query = query.Where("mode = ?", *filter.Mode)
	}
	if filter.NightKey != nil {
		query = query.Where("night_key = ?", *filter.NightKey)
	}
	if len(filter.NightKeys) > 0 {
		query = query.Where("night_key IN ?", filter.NightKeys)
	}
	if filter.UID != nil {
		query = query.Where("uid = ?", *filter.UID)
	}
	if filter.Intent != nil {
		query = query.Where("intent = ?", *filter.Intent)
	}
	return query
}

// ByFilter retrieves votes based on filter criteria
func (r *VoteRepositoryImpl) ByFilter(ctx context.Context, filter models.VoteFilter, orderBy string, limit, offset int) ([]*models.Vote, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Vote{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Vote
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	return rows, nil
}

// Count returns number of votes matching filter
func (r *VoteRepositoryImpl) Count(ctx context.Context, filter models.VoteFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Vote{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}

// Exists checks if any vote matches the filter
func (r *VoteRepositoryImpl) Exists(ctx context.Context, filter models.VoteFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
