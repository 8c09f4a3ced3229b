package assignment

import (
	"time"

	"github.com/google/uuid"
)

// ReassignTarget is the requested destination for a bulk reassignment:
// either a concrete attending or an explicit clear to the placeholder.
// Neither set is a caller mistake, reported as a warning rather than applied.
type ReassignTarget struct {
	AttendingID *uuid.UUID `json:"attending_id,omitempty"`
	Clear       bool       `json:"clear,omitempty"`
}

// Assignment is a historical coverage record: which provider covered a
// patient in which role and when. It documents coverage after the fact;
// the census truth is the patient row's attending.
type Assignment struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID uuid.UUID  `db:"provider_id" json:"provider_id"`
	Role       string     `db:"role" json:"role"`
	StartDate  time.Time  `db:"start_date" json:"start_date"`
	EndDate    *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	RoleAttending  = "attending"
	RoleConsulting = "consulting"
	RoleCovering   = "covering"
)

var validRoles = map[string]bool{
	RoleAttending: true, RoleConsulting: true, RoleCovering: true,
}
