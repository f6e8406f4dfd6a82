package utils

import "time"

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Request handling constants
const (
	// RequestTimeout bounds every flow call made from an HTTP handler
	RequestTimeout = 15 * time.Second

	// JobTimeout bounds a single scheduled job run
	JobTimeout = 2 * time.Minute
)

// Context keys shared between handlers and flows
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	EndpointKey  contextKey = "endpoint"
	TimeoutKey   contextKey = "timeout"
)

// Redis key formats, relative to the configured prefix
const (
	SummaryCacheKeyFormat   = "summary:%s:%s" // mode, night
	LiveTallyCacheKeyFormat = "live:%s:%s"    // mode, night
	GenerateLockKeyFormat   = "lock:generate:%s:%s"
	SweepLockKey            = "lock:sweep-reports"
)
