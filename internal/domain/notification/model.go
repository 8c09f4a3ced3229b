package notification

import (
	"time"

	"github.com/google/uuid"
)

const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

const (
	KindGeneric    = "generic"
	KindAssignment = "assignment"
)

// Notification is an in-app message for one recipient. Read and acknowledged
// are independent axes: read_at tracks whether the list UI has shown it,
// acknowledged_at tracks whether the user dismissed it from the live feed.
type Notification struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	RecipientID    uuid.UUID  `db:"recipient_id" json:"recipient_id"`
	PatientID      *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Kind           string     `db:"kind" json:"kind"`
	Level          string     `db:"level" json:"level"`
	Message        string     `db:"message" json:"message"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	VisibleAt      time.Time  `db:"visible_at" json:"visible_at"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	AcknowledgedAt *time.Time `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
}

// IsVisible reports whether the notification has surfaced yet. Rows with
// visible_at in the future are pending, deferred by quiet hours.
func (n *Notification) IsVisible(now time.Time) bool {
	return !n.VisibleAt.After(now)
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

func (n *Notification) IsAcknowledged() bool {
	return n.AcknowledgedAt != nil
}

var validLevels = map[string]bool{
	LevelInfo: true, LevelWarning: true, LevelCritical: true,
}

var validKinds = map[string]bool{
	KindGeneric: true, KindAssignment: true,
}
