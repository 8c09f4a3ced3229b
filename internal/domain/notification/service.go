package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wardtrack/wardtrack/internal/platform/db"
)

// ErrNotFound covers both a missing notification and one owned by another
// recipient. The two cases are deliberately indistinguishable to callers.
var ErrNotFound = errors.New("notification not found")

const feedCap = 20

type Service struct {
	notifs Repository
	window Window
}

func NewService(notifs Repository, window Window) *Service {
	return &Service{notifs: notifs, window: window}
}

// Push creates a plain notification, deferred past quiet hours. No dedup.
func (s *Service) Push(ctx context.Context, recipientID uuid.UUID, patientID *uuid.UUID, kind, level, message string, now time.Time) (*Notification, error) {
	if recipientID == uuid.Nil {
		return nil, fmt.Errorf("recipient_id is required")
	}
	if message == "" {
		return nil, fmt.Errorf("message is required")
	}
	if kind == "" {
		kind = KindGeneric
	}
	if !validKinds[kind] {
		return nil, fmt.Errorf("invalid kind: %s", kind)
	}
	if level == "" {
		level = LevelInfo
	}
	if !validLevels[level] {
		return nil, fmt.Errorf("invalid level: %s", level)
	}

	n := &Notification{
		RecipientID: recipientID,
		PatientID:   patientID,
		Kind:        kind,
		Level:       level,
		Message:     message,
		VisibleAt:   s.window.NextVisibleTime(now),
	}
	if err := s.notifs.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// NotifyAssignment tells the new attending about a patient handed to them.
// Pending assignment notifications for the same patient are superseded: a
// patient bounced between attendings during quiet hours produces exactly one
// notification, to whoever holds the patient when the window ends.
func (s *Service) NotifyAssignment(ctx context.Context, recipientID, patientID uuid.UUID, patientLabel string, now time.Time) error {
	if _, err := s.notifs.DeletePendingAssignments(ctx, patientID, now); err != nil {
		return fmt.Errorf("supersede pending: %w", err)
	}
	pid := patientID
	_, err := s.Push(ctx, recipientID, &pid, KindAssignment, LevelInfo,
		fmt.Sprintf("You are now the attending for %s", patientLabel), now)
	return err
}

// owned loads a notification and verifies the recipient. A mismatch reads
// the same as a missing row.
func (s *Service) owned(ctx context.Context, recipientID, id uuid.UUID) (*Notification, error) {
	n, err := s.notifs.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if n.RecipientID != recipientID {
		return nil, ErrNotFound
	}
	return n, nil
}

// MarkRead is idempotent: re-reading keeps the original timestamp.
func (s *Service) MarkRead(ctx context.Context, recipientID, id uuid.UUID, now time.Time) (*Notification, error) {
	n, err := s.owned(ctx, recipientID, id)
	if err != nil {
		return nil, err
	}
	if n.ReadAt == nil {
		n.ReadAt = &now
		if err := s.notifs.Update(ctx, n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// MarkUnread reverses MarkRead.
func (s *Service) MarkUnread(ctx context.Context, recipientID, id uuid.UUID) (*Notification, error) {
	n, err := s.owned(ctx, recipientID, id)
	if err != nil {
		return nil, err
	}
	if n.ReadAt != nil {
		n.ReadAt = nil
		if err := s.notifs.Update(ctx, n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Acknowledge is one-way: there is no un-acknowledge.
func (s *Service) Acknowledge(ctx context.Context, recipientID, id uuid.UUID, now time.Time) (*Notification, error) {
	n, err := s.owned(ctx, recipientID, id)
	if err != nil {
		return nil, err
	}
	if n.AcknowledgedAt == nil {
		n.AcknowledgedAt = &now
		if err := s.notifs.Update(ctx, n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	return s.notifs.MarkAllRead(ctx, recipientID, now)
}

// List returns visible notifications, unread first, newest within each group.
func (s *Service) List(ctx context.Context, recipientID uuid.UUID, onlyUnread bool, now time.Time, limit, offset int) ([]*Notification, int, error) {
	return s.notifs.ListVisible(ctx, recipientID, onlyUnread, now, limit, offset)
}

// Badge is the poll payload for the header indicator.
type Badge struct {
	Unread         int          `json:"unread"`
	Unacknowledged int          `json:"unacknowledged"`
	Latest         *BadgeLatest `json:"latest,omitempty"`
	ServerTime     time.Time    `json:"server_time"`
}

type BadgeLatest struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	VisibleAt time.Time `json:"visible_at"`
}

func (s *Service) Status(ctx context.Context, recipientID uuid.UUID, now time.Time) (*Badge, error) {
	unread, err := s.notifs.CountUnread(ctx, recipientID, now)
	if err != nil {
		return nil, err
	}
	unacked, err := s.notifs.CountUnacknowledged(ctx, recipientID, now)
	if err != nil {
		return nil, err
	}
	b := &Badge{Unread: unread, Unacknowledged: unacked, ServerTime: now}
	latest, err := s.notifs.LatestVisible(ctx, recipientID, now)
	switch {
	case err == nil:
		b.Latest = &BadgeLatest{ID: latest.ID, Message: latest.Message, VisibleAt: latest.VisibleAt}
	case db.IsNotFound(err):
		// no notifications yet
	default:
		return nil, err
	}
	return b, nil
}

// Feed returns unacknowledged visible notifications strictly newer than the
// afterID cursor, oldest first, capped at 20 per poll. A cursor that does
// not resolve to one of the recipient's notifications is ignored and the
// feed starts from the beginning.
func (s *Service) Feed(ctx context.Context, recipientID uuid.UUID, afterID *uuid.UUID, now time.Time) ([]*Notification, error) {
	var cursor *Cursor
	if afterID != nil {
		if ref, err := s.owned(ctx, recipientID, *afterID); err == nil {
			cursor = &Cursor{VisibleAt: ref.VisibleAt, CreatedAt: ref.CreatedAt}
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	items, err := s.notifs.ListUnacknowledged(ctx, recipientID, cursor, now, feedCap)
	if err != nil {
		return nil, err
	}
	// Selected newest-first to honor the cap, delivered oldest-first.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}
