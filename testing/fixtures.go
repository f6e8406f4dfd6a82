package testing

import (
	"fmt"
	"time"

	"github.com/amirphl/nightpulse/models"
	"github.com/amirphl/nightpulse/utils"
	"gorm.io/datatypes"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// TestVenues is a small directory around the default geofence centre
func TestVenues() []models.Venue {
	return []models.Venue{
		{ID: "alpha", Name: "Alpha Bar", Lat: 53.5690, Lng: -2.8810, Baseline: 40, City: "ormskirk"},
		{ID: "bravo", Name: "Bravo Club", Lat: 53.5700, Lng: -2.8850, Baseline: 30, City: "ormskirk"},
		{ID: "charlie", Name: "Charlie Pub", Lat: 53.5650, Lng: -2.8900, Baseline: 20, City: "ormskirk"},
		{ID: "delta", Name: "Delta Lounge", Lat: 53.4084, Lng: -2.9916, Baseline: 50, City: "liverpool"},
		{ID: "echo", Name: "Echo Diner", Lat: 53.5680, Lng: -2.8800, Baseline: 10, City: "ormskirk"},
	}
}

// CreateVote stores a vote with the given selections
func (tf *TestFixtures) CreateVote(mode models.VoteMode, nightKey, uid string, intent models.VoteIntent, editedAt time.Time, selections ...models.Selection) (*models.Vote, error) {
	vote := &models.Vote{
		Mode:         mode,
		NightKey:     nightKey,
		UID:          uid,
		Intent:       intent,
		Selections:   datatypes.JSONSlice[models.Selection](selections),
		LastEditedAt: editedAt,
		CreatedAt:    editedAt,
		UpdatedAt:    editedAt,
	}
	if err := tf.DB.DB.Create(vote).Error; err != nil {
		return nil, fmt.Errorf("failed to create vote: %w", err)
	}
	return vote, nil
}

// CreateNightlifeVotes stores one yes vote per uid for a venue
func (tf *TestFixtures) CreateNightlifeVotes(nightKey, venueID, window string, editedAt time.Time, uids ...string) error {
	for _, uid := range uids {
		_, err := tf.CreateVote(models.VoteModeNightlife, nightKey, uid, models.VoteIntentYes, editedAt,
			models.NewNightlifeSelection(venueID, window))
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateHouseparty stores a submission directly, bypassing the guard
func (tf *TestFixtures) CreateHouseparty(nightKey, authorUID string, status models.HousepartyStatus, at utils.LatLng, startsAt, endsAt time.Time) (*models.HousepartySubmission, error) {
	hp := &models.HousepartySubmission{
		AuthorUID: authorUID,
		Title:     "Fixture party",
		Kind:      models.HousepartyKindAllNight,
		Lat:       at.Lat,
		Lng:       at.Lng,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		NightKey:  nightKey,
		Status:    status,
	}
	if err := tf.DB.DB.Create(hp).Error; err != nil {
		return nil, fmt.Errorf("failed to create houseparty: %w", err)
	}
	return hp, nil
}

// CreateReport stores a report created at the given time
func (tf *TestFixtures) CreateReport(kind models.ReportTargetKind, targetID string, reporterUID *string, nightKey string, createdAt time.Time) (*models.Report, error) {
	report := &models.Report{
		TargetKind:  kind,
		TargetID:    targetID,
		ReporterUID: reporterUID,
		NightKey:    nightKey,
		CreatedAt:   createdAt,
	}
	if err := tf.DB.DB.Create(report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return report, nil
}

// SetTrust stores a profile with the given trust score
func (tf *TestFixtures) SetTrust(uid string, score int) error {
	profile := &models.UserProfile{UID: uid, TrustScore: score}
	if err := tf.DB.DB.Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create user profile: %w", err)
	}
	return nil
}

// StaticVenues is an in-memory venue directory
type StaticVenues struct {
	venues []models.Venue
}

// NewStaticVenues indexes venues, defaulting to TestVenues
func NewStaticVenues(venues ...models.Venue) *StaticVenues {
	if len(venues) == 0 {
		venues = TestVenues()
	}
	return &StaticVenues{venues: venues}
}

// Venue looks a venue up by id
func (s *StaticVenues) Venue(id string) (models.Venue, bool) {
	for _, v := range s.venues {
		if v.ID == id {
			return v, true
		}
	}
	return models.Venue{}, false
}

// All returns every venue
func (s *StaticVenues) All() []models.Venue {
	return append([]models.Venue(nil), s.venues...)
}
