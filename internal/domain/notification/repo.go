package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Cursor is the feed position resolved from an "after" notification id.
// Notifications are ordered by (visible_at, created_at); everything strictly
// greater than the cursor is newer.
type Cursor struct {
	VisibleAt time.Time
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	Update(ctx context.Context, n *Notification) error

	// DeletePendingAssignments removes not-yet-visible assignment
	// notifications for a patient. Supersession dedup for rapid
	// reassignments during quiet hours.
	DeletePendingAssignments(ctx context.Context, patientID uuid.UUID, now time.Time) (int64, error)

	ListVisible(ctx context.Context, recipientID uuid.UUID, onlyUnread bool, now time.Time, limit, offset int) ([]*Notification, int, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID, now time.Time) (int, error)
	CountUnacknowledged(ctx context.Context, recipientID uuid.UUID, now time.Time) (int, error)
	LatestVisible(ctx context.Context, recipientID uuid.UUID, now time.Time) (*Notification, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error)

	// ListUnacknowledged returns visible unacknowledged notifications newer
	// than the cursor (all of them when cursor is nil), newest first.
	ListUnacknowledged(ctx context.Context, recipientID uuid.UUID, after *Cursor, now time.Time, limit int) ([]*Notification, error)
}
