package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Assignment constants
const (
	// LeastLoadedWindowDays is the default trailing window for counting a
	// manager's active leads under the least_loaded strategy.
	LeastLoadedWindowDays = 7

	// AssignDetailsLimit caps the number of per-lead detail entries returned
	// by bulk range assignment responses.
	AssignDetailsLimit = 50

	// ImportPreviewLimit caps the number of preview rows returned by a
	// dry-run lead import.
	ImportPreviewLimit = 20
)
