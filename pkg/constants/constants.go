// Package constants provides shared constants used throughout orgsync.
// This includes timeouts, limits, file permissions, and the GitHub
// permission ladder that several components need to agree on.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for one HTTP round trip
	DefaultHTTPTimeout = 30 * time.Second

	// OperationTimeout bounds a single remote read or write including retries
	OperationTimeout = 2 * time.Minute

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 30 * time.Minute

	// RetryBackoff is the base backoff duration for retries
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff is the maximum backoff duration for retries
	MaxRetryBackoff = 30 * time.Second

	// RateLimitCooldown is the shared pause when the remote signals a rate limit without a Retry-After
	RateLimitCooldown = 60 * time.Second

	// ReadCacheTTL is how long a successful read is reused within one client
	ReadCacheTTL = 5 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// MaxRetries is the maximum number of retry attempts for transient failures
	MaxRetries = 3

	// DefaultConcurrency is the default worker pool size for fetch and apply
	DefaultConcurrency = 8

	// DefaultPageSize is the per_page value sent on list requests
	DefaultPageSize = 100

	// MaxPages caps pagination so a misbehaving Link header cannot loop forever
	MaxPages = 1000
)

// Rate limiting constants
const (
	// DefaultRequestsPerSecond is the shared limiter rate
	DefaultRequestsPerSecond = 10

	// BurstSize is the token bucket burst size for rate limiting
	BurstSize = 10
)

// Document defaults
const (
	// DefaultsFileName is looked up next to the main document when --defaults is not given
	DefaultsFileName = "defaults.config.yaml"

	// GeneratedFileName is the default output of sync-from-org
	GeneratedFileName = "org.config.yaml"
)

// Team permission levels ordered from weakest to strongest.
const (
	PermissionPull     = "pull"
	PermissionTriage   = "triage"
	PermissionPush     = "push"
	PermissionMaintain = "maintain"
	PermissionAdmin    = "admin"
)

// PermissionLadder lists permission levels from strongest to weakest.
var PermissionLadder = []string{
	PermissionAdmin,
	PermissionMaintain,
	PermissionPush,
	PermissionTriage,
	PermissionPull,
}

// Exit codes of the orgsync CLI.
const (
	ExitOK      = 0
	ExitChanges = 1
	ExitFailure = 2
)
