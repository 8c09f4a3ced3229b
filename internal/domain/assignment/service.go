package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardtrack/wardtrack/internal/domain/patient"
	"github.com/wardtrack/wardtrack/internal/domain/user"
	"github.com/wardtrack/wardtrack/internal/domain/watchlist"
	"github.com/wardtrack/wardtrack/internal/platform/db"
)

var (
	// ErrNoTarget means the request named neither an attending nor a clear.
	// Treated as a no-op with a warning, not a failure.
	ErrNoTarget = errors.New("no reassignment target given")

	ErrUserNotFound = errors.New("target user not found")

	// errInvalid marks request validation failures so the handler keeps them
	// at 400 while unexpected errors map to 500.
	errInvalid = errors.New("invalid assignment")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{errInvalid}, args...)...)
}

type PatientStore interface {
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	Update(ctx context.Context, p *patient.Patient) error
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	Placeholder(ctx context.Context) (*user.User, error)
}

type AuditRecorder interface {
	RecordAttendingChange(ctx context.Context, patientID, oldAttendingID, newAttendingID, actorID uuid.UUID) error
}

type AssignmentNotifier interface {
	NotifyAssignment(ctx context.Context, recipientID, patientID uuid.UUID, patientLabel string, now time.Time) error
}

type WatchEnsurer interface {
	EnsureActiveWatch(ctx context.Context, userID, patientID uuid.UUID) (watchlist.EnsureOutcome, error)
}

type Service struct {
	history  Repository
	patients PatientStore
	users    UserStore
	audits   AuditRecorder
	notifier AssignmentNotifier
	watches  WatchEnsurer

	// runTx wraps the reassignment pipeline in one transaction. Replaced in
	// tests where no pool exists.
	runTx func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewService(
	pool *pgxpool.Pool,
	history Repository,
	patients PatientStore,
	users UserStore,
	audits AuditRecorder,
	notifier AssignmentNotifier,
	watches WatchEnsurer,
) *Service {
	return &Service{
		history:  history,
		patients: patients,
		users:    users,
		audits:   audits,
		notifier: notifier,
		watches:  watches,
		runTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
	}
}

// Reassign moves a set of patients to a new attending in one transaction.
// For each patient the pipeline is: lock the row, skip if the attending is
// already the target, update the attending, append the audit entry, notify
// the new attending (real users only), ensure their watch. Either every
// changed patient commits with its audit entry and notification, or nothing
// does.
func (s *Service) Reassign(ctx context.Context, patientIDs []uuid.UUID, target ReassignTarget, actorID uuid.UUID) (int, error) {
	if len(patientIDs) == 0 {
		return 0, nil
	}
	if target.AttendingID == nil && !target.Clear {
		return 0, ErrNoTarget
	}

	var targetUser *user.User
	var err error
	if target.Clear {
		targetUser, err = s.users.Placeholder(ctx)
		if err != nil {
			return 0, err
		}
	} else {
		targetUser, err = s.users.GetByID(ctx, *target.AttendingID)
		if err != nil {
			if db.IsNotFound(err) {
				return 0, ErrUserNotFound
			}
			return 0, err
		}
	}

	now := time.Now().UTC()
	changed := 0
	err = s.runTx(ctx, func(txCtx context.Context) error {
		for _, id := range patientIDs {
			p, err := s.patients.GetByIDForUpdate(txCtx, id)
			if err != nil {
				if db.IsNotFound(err) {
					continue
				}
				return err
			}
			if p.AttendingID == targetUser.ID {
				continue
			}

			old := p.AttendingID
			p.AttendingID = targetUser.ID
			if err := s.patients.Update(txCtx, p); err != nil {
				return err
			}
			if err := s.audits.RecordAttendingChange(txCtx, p.ID, old, targetUser.ID, actorID); err != nil {
				return err
			}
			if !targetUser.IsPlaceholder() {
				if err := s.notifier.NotifyAssignment(txCtx, targetUser.ID, p.ID, p.Label(), now); err != nil {
					return err
				}
			}
			if _, err := s.watches.EnsureActiveWatch(txCtx, targetUser.ID, p.ID); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// -- Coverage history --

func (s *Service) CreateAssignment(ctx context.Context, a *Assignment) error {
	if a.PatientID == uuid.Nil {
		return invalidf("patient_id is required")
	}
	if a.ProviderID == uuid.Nil {
		return invalidf("provider_id is required")
	}
	if a.Role == "" {
		a.Role = RoleAttending
	}
	if !validRoles[a.Role] {
		return invalidf("unknown role: %s", a.Role)
	}
	if a.StartDate.IsZero() {
		return invalidf("start_date is required")
	}
	if a.EndDate != nil && a.EndDate.Before(a.StartDate) {
		return invalidf("end_date precedes start_date")
	}
	if _, err := s.users.GetByID(ctx, a.ProviderID); err != nil {
		if db.IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	return s.history.Create(ctx, a)
}

func (s *Service) GetAssignment(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	return s.history.GetByID(ctx, id)
}

func (s *Service) UpdateAssignment(ctx context.Context, a *Assignment) error {
	existing, err := s.history.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if a.Role == "" {
		a.Role = existing.Role
	}
	if !validRoles[a.Role] {
		return invalidf("unknown role: %s", a.Role)
	}
	if a.StartDate.IsZero() {
		a.StartDate = existing.StartDate
	}
	if a.EndDate != nil && a.EndDate.Before(a.StartDate) {
		return invalidf("end_date precedes start_date")
	}
	return s.history.Update(ctx, a)
}

func (s *Service) DeleteAssignment(ctx context.Context, id uuid.UUID) error {
	return s.history.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Assignment, int, error) {
	return s.history.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*Assignment, int, error) {
	return s.history.ListByProvider(ctx, providerID, limit, offset)
}
