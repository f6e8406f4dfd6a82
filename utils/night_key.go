package utils

import (
	"fmt"
	"time"
)

// NightKeyLayout is the YYYYMMDD format of a night bucket id
const NightKeyLayout = "20060102"

// NightKeyResolver maps timestamps to night buckets. A night runs from the
// rollover hour to just before the rollover hour of the next calendar day.
type NightKeyResolver struct {
	loc          *time.Location
	rolloverHour int
}

// NewNightKeyResolver builds a resolver for the given IANA timezone and rollover hour
func NewNightKeyResolver(timezone string, rolloverHour int) (*NightKeyResolver, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	if rolloverHour < 0 || rolloverHour > 23 {
		return nil, fmt.Errorf("rollover hour %d out of range 0-23", rolloverHour)
	}
	return &NightKeyResolver{loc: loc, rolloverHour: rolloverHour}, nil
}

// Location returns the resolver's timezone
func (r *NightKeyResolver) Location() *time.Location {
	return r.loc
}

// Resolve returns the night key t belongs to
func (r *NightKeyResolver) Resolve(t time.Time) string {
	local := t.In(r.loc)
	if local.Hour() < r.rolloverHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format(NightKeyLayout)
}

// Parse returns noon of the night's calendar date in the resolver's timezone
func (r *NightKeyResolver) Parse(key string) (time.Time, error) {
	day, err := time.ParseInLocation(NightKeyLayout, key, r.loc)
	if err != nil || day.Format(NightKeyLayout) != key {
		return time.Time{}, fmt.Errorf("invalid night key %q", key)
	}
	return day.Add(12 * time.Hour), nil
}

// Shift moves a night key by the given number of days
func (r *NightKeyResolver) Shift(key string, days int) (string, error) {
	t, err := r.Parse(key)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, days).Format(NightKeyLayout), nil
}

// Weekday returns the weekday of the night's calendar date
func (r *NightKeyResolver) Weekday(key string) (time.Weekday, error) {
	t, err := r.Parse(key)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// LastNights returns the current night key followed by the n-1 nights before it
func (r *NightKeyResolver) LastNights(now time.Time, n int) []string {
	tonight := r.Resolve(now)
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		key, err := r.Shift(tonight, -i)
		if err != nil {
			break
		}
		keys = append(keys, key)
	}
	return keys
}

// IsNightKey reports whether s is a well-formed YYYYMMDD key
func IsNightKey(s string) bool {
	if len(s) != len(NightKeyLayout) {
		return false
	}
	t, err := time.Parse(NightKeyLayout, s)
	return err == nil && t.Format(NightKeyLayout) == s
}
