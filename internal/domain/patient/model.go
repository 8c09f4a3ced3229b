package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusDischarged Status = "DISCHARGED"
	StatusArchived   Status = "ARCHIVED"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusDischarged, StatusArchived:
		return true
	}
	return false
}

// Patient is a hospitalized patient on the census. The structured name
// fields are authoritative; Name is the legacy combined form kept in sync
// on every save for older report consumers.
type Patient struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	MRN                string     `db:"mrn" json:"mrn"`
	LastName           string     `db:"last_name" json:"last_name"`
	FirstName          string     `db:"first_name" json:"first_name"`
	MiddleName         string     `db:"middle_name" json:"middle_name,omitempty"`
	Suffix             string     `db:"suffix" json:"suffix,omitempty"`
	Name               string     `db:"name" json:"name"`
	DOB                *time.Time `db:"dob" json:"dob,omitempty"`
	Sex                string     `db:"sex" json:"sex"`
	Location           *string    `db:"location" json:"location,omitempty"`
	Diagnosis          *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	PatientInformation *string    `db:"patient_information" json:"patient_information,omitempty"`
	AdmissionDate      *time.Time `db:"admission_date" json:"admission_date,omitempty"`
	AdmissionTime      *time.Time `db:"admission_time" json:"admission_time,omitempty"`
	AttendingID        uuid.UUID  `db:"attending_id" json:"attending_id"`
	Status             Status     `db:"status" json:"status"`
	DischargedAt       *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
	ArchivedAt         *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// SyncName recomputes the legacy combined name: "Last, First Middle, Suffix".
func (p *Patient) SyncName() {
	given := strings.TrimSpace(p.FirstName + " " + p.MiddleName)
	name := p.LastName
	if given != "" {
		name += ", " + given
	}
	if p.Suffix != "" {
		name += ", " + p.Suffix
	}
	p.Name = name
}

// IsReadOnly reports whether edits are refused. Only Active patients accept
// field changes, child records, or deletion.
func (p *Patient) IsReadOnly() bool {
	return p.Status != StatusActive
}

// AgeYears computes whole years at now, or nil without a date of birth.
func (p *Patient) AgeYears(now time.Time) *int {
	if p.DOB == nil {
		return nil
	}
	dob := *p.DOB
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return &years
}

// Label renders the patient for notifications and logs.
func (p *Patient) Label() string {
	return p.Name + " (MRN " + p.MRN + ")"
}

// MarkActive returns the patient to the working census. Lifecycle stamps are
// cleared so a readmitted patient can be discharged again with fresh times.
func (p *Patient) MarkActive() {
	p.Status = StatusActive
	p.DischargedAt = nil
	p.ArchivedAt = nil
}

// Discharge stamps discharged_at exactly once; re-discharging keeps the
// original time.
func (p *Patient) Discharge(when time.Time) {
	p.Status = StatusDischarged
	if p.DischargedAt == nil {
		p.DischargedAt = &when
	}
}

// Archive moves the patient to long-term storage. An archive without a prior
// discharge stamps both times, so archived rows always carry a discharge time.
func (p *Patient) Archive(when time.Time) {
	p.Status = StatusArchived
	if p.DischargedAt == nil {
		p.DischargedAt = &when
	}
	if p.ArchivedAt == nil {
		p.ArchivedAt = &when
	}
}

// AutoArchiveEligible reports whether the sweep should archive this patient:
// discharged at least graceDays ago. The exact boundary is eligible.
func (p *Patient) AutoArchiveEligible(graceDays int, now time.Time) bool {
	if p.Status != StatusDischarged || p.DischargedAt == nil {
		return false
	}
	cutoff := now.Add(-time.Duration(graceDays) * 24 * time.Hour)
	return !p.DischargedAt.After(cutoff)
}

// Signout is one dated handoff note on a patient.
type Signout struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	EntryDate time.Time  `db:"entry_date" json:"entry_date"`
	Text      string     `db:"text" json:"text"`
	CreatedBy *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Todo is an action item on a patient.
type Todo struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	Text        string     `db:"text" json:"text"`
	IsCompleted bool       `db:"is_completed" json:"is_completed"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// SetCompleted flips completion, stamping completed_at when it first turns
// true and clearing it when unchecked.
func (t *Todo) SetCompleted(done bool, now time.Time) {
	t.IsCompleted = done
	if done {
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		return
	}
	t.CompletedAt = nil
}

// OvernightEvent records something that happened to the patient overnight.
type OvernightEvent struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Description string    `db:"description" json:"description"`
	Resolved    bool      `db:"resolved" json:"resolved"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
