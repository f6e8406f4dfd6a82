package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLondonResolver(t *testing.T) *NightKeyResolver {
	t.Helper()
	r, err := NewNightKeyResolver("Europe/London", 5)
	require.NoError(t, err)
	return r
}

func TestNewNightKeyResolver(t *testing.T) {
	_, err := NewNightKeyResolver("Invalid/Zone", 5)
	assert.Error(t, err)

	_, err = NewNightKeyResolver("UTC", 24)
	assert.Error(t, err)

	_, err = NewNightKeyResolver("UTC", 0)
	assert.NoError(t, err)
}

func TestNightKeyResolver_Resolve(t *testing.T) {
	r := newLondonResolver(t)
	london := r.Location()

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"evening belongs to same date", time.Date(2025, 3, 14, 22, 30, 0, 0, london), "20250314"},
		{"after midnight rolls back", time.Date(2025, 3, 15, 2, 10, 0, 0, london), "20250314"},
		{"just before rollover", time.Date(2025, 3, 15, 4, 59, 59, 0, london), "20250314"},
		{"at rollover starts new night", time.Date(2025, 3, 15, 5, 0, 0, 0, london), "20250315"},
		{"month boundary", time.Date(2025, 4, 1, 1, 0, 0, 0, london), "20250331"},
		{"year boundary", time.Date(2026, 1, 1, 3, 0, 0, 0, london), "20251231"},
		{"utc input converted to local", time.Date(2025, 7, 10, 3, 30, 0, 0, time.UTC), "20250709"},
		{"utc input after local rollover", time.Date(2025, 7, 10, 4, 30, 0, 0, time.UTC), "20250710"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.at))
		})
	}
}

func TestNightKeyResolver_ShiftAndWeekday(t *testing.T) {
	r := newLondonResolver(t)

	key, err := r.Shift("20250301", -1)
	require.NoError(t, err)
	assert.Equal(t, "20250228", key)

	key, err = r.Shift("20250330", 1) // DST change day
	require.NoError(t, err)
	assert.Equal(t, "20250331", key)

	key, err = r.Shift("20250314", -56)
	require.NoError(t, err)
	assert.Equal(t, "20250117", key)

	wd, err := r.Weekday("20250314")
	require.NoError(t, err)
	assert.Equal(t, time.Friday, wd)

	_, err = r.Shift("2025-03-14", 1)
	assert.Error(t, err)
	_, err = r.Parse("20250230")
	assert.Error(t, err)
}

func TestNightKeyResolver_LastNights(t *testing.T) {
	r := newLondonResolver(t)
	now := time.Date(2025, 3, 15, 1, 0, 0, 0, r.Location())

	keys := r.LastNights(now, 3)
	assert.Equal(t, []string{"20250314", "20250313", "20250312"}, keys)
	assert.Empty(t, r.LastNights(now, 0))
}

func TestIsNightKey(t *testing.T) {
	assert.True(t, IsNightKey("20250314"))
	assert.False(t, IsNightKey("2025031"))
	assert.False(t, IsNightKey("20251314"))
	assert.False(t, IsNightKey("abcdefgh"))
	assert.False(t, IsNightKey(""))
}

func TestMinutesSince(t *testing.T) {
	now := time.Date(2025, 3, 14, 22, 0, 0, 0, time.UTC)

	assert.Equal(t, 1.0, MinutesSince(now, now))
	assert.Equal(t, 1.0, MinutesSince(now, now.Add(5*time.Minute)))
	assert.Equal(t, 90.0, MinutesSince(now, now.Add(-90*time.Minute)))
	assert.Equal(t, 3.0, MinutesSince(now, now.Add(-150*time.Second)))
}
