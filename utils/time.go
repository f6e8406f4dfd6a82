// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// Clock returns the current time. Flows and schedulers take one so tests can pin "now".
type Clock func() time.Time

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// FixedClock returns a Clock that always reports t
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// MinutesSince returns whole minutes elapsed from t to now, never less than 1
func MinutesSince(now, t time.Time) float64 {
	minutes := now.Sub(t).Round(time.Minute).Minutes()
	if minutes < 1 {
		return 1
	}
	return minutes
}
