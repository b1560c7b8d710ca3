package types

import "time"

// Audit roles. The set is open ended; these are the values the system
// writes itself.
const (
	AuditRoleUser   = "USER"
	AuditRoleAdmin  = "ADMIN"
	AuditRoleSystem = "SYSTEM"
)

// AuditLog is one append-only record of a sensitive action. Entries are
// never mutated or deleted.
type AuditLog struct {
	ID          string         `db:"id" json:"id"`
	Action      string         `db:"action" json:"action"`
	Description string         `db:"description" json:"description"`
	User        string         `db:"actor" json:"user"`
	Role        string         `db:"role" json:"role"`
	IP          string         `db:"ip" json:"ip"`
	Metadata    map[string]any `db:"metadata" json:"metadata"`
	Timestamp   time.Time      `db:"logged_at" json:"timestamp"`
}

// AuditPage is the paginated listing returned by the audit endpoint.
type AuditPage struct {
	Logs        []*AuditLog `json:"logs"`
	CurrentPage int         `json:"currentPage"`
	TotalPages  int         `json:"totalPages"`
	TotalLogs   int64       `json:"totalLogs"`
}
