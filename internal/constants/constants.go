package constants

import "time"

// Session and context keys
const (
	SessionCookieName   = "relief_session"
	ContextKeyUserID    = "user_id"
	ContextKeyIdentity  = "identity"
	ContextKeyRequestID = "request_id"
)

// Authentication
const (
	MinPasswordLength = 8
	SessionMaxAge     = 86400 * 7
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Listings
const (
	// PublicNeedsLimit caps the open-needs listing on the public home view.
	PublicNeedsLimit = 50
	// DashboardRecentNeeds is the number of needs shown on the admin dashboard.
	DashboardRecentNeeds = 10
)

// Backup
const (
	DumpContentType         = "application/sql"
	DumpFileExtension       = ".sql"
	ImportFormField         = "sql_file"
	DefaultMaxImportBytes   = 64 << 20
	DefaultImportLockTTL    = 10 * time.Minute
	SnapshotTimestampLayout = "20060102_150405"
)
