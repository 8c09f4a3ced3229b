package watchlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wardtrack/wardtrack/internal/platform/db"
)

var ErrNotFound = errors.New("watch not found")

type Service struct {
	watches Repository

	// placeholderID is the unassigned-census user; it never accumulates
	// watches. Resolved once at startup after the placeholder is ensured.
	placeholderID uuid.UUID
}

func NewService(watches Repository, placeholderID uuid.UUID) *Service {
	return &Service{watches: watches, placeholderID: placeholderID}
}

// EnsureActiveWatch guarantees the user has an active watch on the patient.
// Called from the reassignment transaction and on patient creation, so it
// must be safe to call repeatedly for the same pair.
func (s *Service) EnsureActiveWatch(ctx context.Context, userID, patientID uuid.UUID) (EnsureOutcome, error) {
	return s.ensure(ctx, userID, patientID, nil)
}

// Add is the manual watchlist add. It behaves like EnsureActiveWatch but
// sets the note, including on reactivation.
func (s *Service) Add(ctx context.Context, userID, patientID uuid.UUID, note string) (EnsureOutcome, error) {
	return s.ensure(ctx, userID, patientID, &note)
}

func (s *Service) ensure(ctx context.Context, userID, patientID uuid.UUID, note *string) (EnsureOutcome, error) {
	if userID == uuid.Nil || userID == s.placeholderID {
		return OutcomeSkipped, nil
	}

	if active, err := s.watches.FindActive(ctx, userID, patientID); err == nil {
		if note != nil && *note != active.Note {
			active.Note = *note
			if err := s.watches.Update(ctx, active); err != nil {
				return "", err
			}
		}
		return OutcomeAlreadyActive, nil
	} else if !db.IsNotFound(err) {
		return "", err
	}

	latest, err := s.watches.FindLatest(ctx, userID, patientID)
	switch {
	case err == nil:
		latest.ArchivedAt = nil
		if note != nil {
			latest.Note = *note
		}
		if err := s.watches.Update(ctx, latest); err != nil {
			return "", err
		}
		return OutcomeReactivated, nil
	case db.IsNotFound(err):
		w := &Watch{UserID: userID, PatientID: patientID}
		if note != nil {
			w.Note = *note
		}
		if err := s.watches.Create(ctx, w); err != nil {
			return "", err
		}
		return OutcomeCreated, nil
	default:
		return "", err
	}
}

// Remove archives the active watch in place.
func (s *Service) Remove(ctx context.Context, userID, patientID uuid.UUID, now time.Time) error {
	n, err := s.watches.Archive(ctx, userID, patientID, now)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ListActive(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Watch, int, error) {
	return s.watches.ListActiveByUser(ctx, userID, limit, offset)
}
