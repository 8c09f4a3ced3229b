package watchlist

import (
	"time"

	"github.com/google/uuid"
)

// Watch marks a patient as followed by a user. Removal archives the row in
// place rather than deleting it, so a re-add reactivates the original watch
// and its history survives.
type Watch struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	Note       string     `db:"note" json:"note"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
}

func (w *Watch) IsActive() bool {
	return w.ArchivedAt == nil
}

// EnsureOutcome says what EnsureActiveWatch or Add actually did, so callers
// can word their response accordingly.
type EnsureOutcome string

const (
	OutcomeAlreadyActive EnsureOutcome = "already_active"
	OutcomeReactivated   EnsureOutcome = "reactivated"
	OutcomeCreated       EnsureOutcome = "created"
	OutcomeSkipped       EnsureOutcome = "skipped"
)
