package models

import "time"

// Log actions written by the core.
const (
	LogActionLogin         = "login"
	LogActionAdminLogin    = "admin_login"
	LogActionRequestCreate = "request_created"
	// Transitions log "request_" followed by the target status.
	logActionRequestPrefix = "request_"

	GuestActor = "visitante"
)

// LogEntry is an append-only activity record of the logs table.
type LogEntry struct {
	ID        int64     `db:"id" json:"id"`
	Usuario   string    `db:"usuario" json:"usuario"`
	Action    string    `db:"action" json:"action"`
	CreatedAt time.Time `db:"created_at" json:"at"`
	LibroID   *int64    `db:"libro_id" json:"libroId"`
	RequestID *int64    `db:"request_id" json:"requestId"`
}

// TransitionAction names the log action for a status change.
func TransitionAction(status LoanStatus) string {
	return logActionRequestPrefix + string(status)
}
