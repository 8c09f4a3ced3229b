package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event types recorded in the audit log. The log is append-only: no code
// path updates or deletes an entry once written.
const (
	EventAttendingChanged = "ATTENDING_CHANGED"
	EventLoginSuccess     = "LOGIN_SUCCESS"
	EventLoginFailed      = "LOGIN_FAILED"
	EventLogout           = "LOGOUT"
)

// Entry is a single audit log record. Attending-change entries carry the
// patient and the old/new attending; auth entries carry the username and
// request metadata instead.
type Entry struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Event          string     `db:"event" json:"event"`
	PatientID      *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	ChangedBy      *uuid.UUID `db:"changed_by" json:"changed_by,omitempty"`
	OldAttendingID *uuid.UUID `db:"old_attending_id" json:"old_attending_id,omitempty"`
	NewAttendingID *uuid.UUID `db:"new_attending_id" json:"new_attending_id,omitempty"`
	Username       *string    `db:"username" json:"username,omitempty"`
	IPAddress      *string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent      *string    `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

var validEvents = map[string]bool{
	EventAttendingChanged: true,
	EventLoginSuccess:     true,
	EventLoginFailed:      true,
	EventLogout:           true,
}

// ValidEvent reports whether s is a known audit event type.
func ValidEvent(s string) bool {
	return validEvents[s]
}
