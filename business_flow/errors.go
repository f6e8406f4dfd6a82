// Package businessflow contains the aggregation, prediction and trust-gating logic of the engine
package businessflow

import (
	"errors"
	"fmt"
)

// Rejection classes. Every error returned by a flow wraps exactly one of them.
var (
	ErrValidation    = errors.New("validation failed")
	ErrGeofence      = errors.New("location is outside the service area")
	ErrDuplicate     = errors.New("a similar submission already exists")
	ErrQuotaExceeded = errors.New("submission quota exceeded")
	ErrAuth          = errors.New("authentication required")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrStorage       = errors.New("storage unavailable")
)

var (
	ErrInvalidMode         = fmt.Errorf("%w: unknown mode", ErrValidation)
	ErrInvalidNightKey     = fmt.Errorf("%w: invalid night key", ErrValidation)
	ErrUnknownVenue        = fmt.Errorf("%w: unknown venue", ErrValidation)
	ErrInvalidSelection    = fmt.Errorf("%w: invalid selection", ErrValidation)
	ErrTitleRequired       = fmt.Errorf("%w: title is required", ErrValidation)
	ErrBlockedContent      = fmt.Errorf("%w: content is not allowed", ErrValidation)
	ErrInvalidTimeWindow   = fmt.Errorf("%w: ends_at must be after starts_at", ErrValidation)
	ErrNotCurrentNight     = fmt.Errorf("%w: times must fall within the current night", ErrValidation)
	ErrInvalidLocation     = fmt.Errorf("%w: invalid coordinates", ErrValidation)
	ErrBackfillRange       = fmt.Errorf("%w: nights out of range", ErrValidation)
	ErrInvalidReportTarget = fmt.Errorf("%w: invalid report target", ErrValidation)
	ErrReasonTooLong       = fmt.Errorf("%w: reason is too long", ErrValidation)

	ErrHousepartyNotFound = fmt.Errorf("houseparty %w", ErrNotFound)
	ErrVoteNotFound       = fmt.Errorf("vote %w", ErrNotFound)
	ErrSummaryNotFound    = fmt.Errorf("summary %w", ErrNotFound)

	// ErrInvalidTransition is returned when a moderation action does not apply
	// to the submission's current status
	ErrInvalidTransition = errors.New("status transition not allowed")

	ErrCacheNotAvailable = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// storageError marks err as a storage failure. Storage failures are not retried.
func storageError(err error) error {
	if err == nil || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsGeofence(err error) bool {
	return errors.Is(err, ErrGeofence)
}

func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}
