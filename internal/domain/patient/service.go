package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wardtrack/wardtrack/internal/domain/user"
	"github.com/wardtrack/wardtrack/internal/domain/watchlist"
)

// ErrPatientReadOnly refuses writes against discharged or archived patients.
// Lifecycle transitions and attending reassignment are the only operations
// exempt from it.
var ErrPatientReadOnly = errors.New("patient is read-only")

var validSexes = map[string]bool{"M": true, "F": true, "O": true, "U": true}

// Lifecycle actions accepted by the bulk endpoint.
const (
	ActionActivate  = "activate"
	ActionDischarge = "discharge"
	ActionArchive   = "archive"
)

type UserDirectory interface {
	Placeholder(ctx context.Context) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type WatchEnsurer interface {
	EnsureActiveWatch(ctx context.Context, userID, patientID uuid.UUID) (watchlist.EnsureOutcome, error)
}

type Service struct {
	patients  Repository
	signouts  SignoutRepository
	todos     TodoRepository
	events    OvernightEventRepository
	users     UserDirectory
	watches   WatchEnsurer
	graceDays int
}

func NewService(
	patients Repository,
	signouts SignoutRepository,
	todos TodoRepository,
	events OvernightEventRepository,
	users UserDirectory,
	watches WatchEnsurer,
	graceDays int,
) *Service {
	return &Service{
		patients:  patients,
		signouts:  signouts,
		todos:     todos,
		events:    events,
		users:     users,
		watches:   watches,
		graceDays: graceDays,
	}
}

// Create admits a patient. A missing attending falls back to the placeholder;
// a real attending gets an active watch on their new patient right away.
func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.MRN == "" {
		return fmt.Errorf("mrn is required")
	}
	if p.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	if p.Sex == "" {
		p.Sex = "U"
	}
	if !validSexes[p.Sex] {
		return fmt.Errorf("invalid sex: %s", p.Sex)
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if !ValidStatus(p.Status) {
		return fmt.Errorf("invalid status: %s", p.Status)
	}

	if p.AttendingID == uuid.Nil {
		placeholder, err := s.users.Placeholder(ctx)
		if err != nil {
			return err
		}
		p.AttendingID = placeholder.ID
	} else if _, err := s.users.GetByID(ctx, p.AttendingID); err != nil {
		return fmt.Errorf("attending not found")
	}

	p.SyncName()
	if err := s.patients.Create(ctx, p); err != nil {
		return err
	}

	if _, err := s.watches.EnsureActiveWatch(ctx, p.AttendingID, p.ID); err != nil {
		return fmt.Errorf("ensure attending watch: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	if f.Status != nil && !ValidStatus(*f.Status) {
		return nil, 0, fmt.Errorf("invalid status filter: %s", *f.Status)
	}
	return s.patients.List(ctx, f, limit, offset)
}

// Update applies demographic and clinical field edits. Lifecycle fields are
// preserved from the stored row: status moves only through Lifecycle, and
// the attending moves only through the reassignment engine.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	existing, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if existing.IsReadOnly() {
		return ErrPatientReadOnly
	}
	if p.MRN == "" {
		return fmt.Errorf("mrn is required")
	}
	if p.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	if p.Sex == "" {
		p.Sex = existing.Sex
	}
	if !validSexes[p.Sex] {
		return fmt.Errorf("invalid sex: %s", p.Sex)
	}

	p.AttendingID = existing.AttendingID
	p.Status = existing.Status
	p.DischargedAt = existing.DischargedAt
	p.ArchivedAt = existing.ArchivedAt
	p.CreatedAt = existing.CreatedAt

	p.SyncName()
	return s.patients.Update(ctx, p)
}

// Delete removes a patient outright. Discharged and archived patients are
// never deletable; they age out through the archive instead.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsReadOnly() {
		return ErrPatientReadOnly
	}
	return s.patients.Delete(ctx, id)
}

// Lifecycle applies one transition to a set of patients and reports how many
// rows were touched. Unknown ids are skipped, not errors.
func (s *Service) Lifecycle(ctx context.Context, ids []uuid.UUID, action string, now time.Time) (int, error) {
	var apply func(p *Patient)
	switch action {
	case ActionActivate:
		apply = func(p *Patient) { p.MarkActive() }
	case ActionDischarge:
		apply = func(p *Patient) { p.Discharge(now) }
	case ActionArchive:
		apply = func(p *Patient) { p.Archive(now) }
	default:
		return 0, fmt.Errorf("invalid lifecycle action: %s", action)
	}

	changed := 0
	for _, id := range ids {
		p, err := s.patients.GetByID(ctx, id)
		if err != nil {
			continue
		}
		apply(p)
		if err := s.patients.Update(ctx, p); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// Sweep archives every patient whose discharge is older than the grace
// period. Run from the archive-sweep command on a schedule.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-time.Duration(s.graceDays) * 24 * time.Hour)
	return s.patients.ArchiveEligible(ctx, cutoff, now)
}

// guardWritable is the shared read-only check for child records.
func (s *Service) guardWritable(ctx context.Context, patientID uuid.UUID) error {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return err
	}
	if p.IsReadOnly() {
		return ErrPatientReadOnly
	}
	return nil
}

// -- Signouts --

func (s *Service) AddSignout(ctx context.Context, so *Signout) error {
	if so.Text == "" {
		return fmt.Errorf("text is required")
	}
	if so.EntryDate.IsZero() {
		so.EntryDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if err := s.guardWritable(ctx, so.PatientID); err != nil {
		return err
	}
	return s.signouts.Create(ctx, so)
}

func (s *Service) UpdateSignout(ctx context.Context, so *Signout) error {
	existing, err := s.signouts.GetByID(ctx, so.ID)
	if err != nil {
		return err
	}
	if err := s.guardWritable(ctx, existing.PatientID); err != nil {
		return err
	}
	so.PatientID = existing.PatientID
	return s.signouts.Update(ctx, so)
}

func (s *Service) DeleteSignout(ctx context.Context, id uuid.UUID) error {
	existing, err := s.signouts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardWritable(ctx, existing.PatientID); err != nil {
		return err
	}
	return s.signouts.Delete(ctx, id)
}

func (s *Service) ListSignouts(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Signout, int, error) {
	return s.signouts.ListByPatient(ctx, patientID, limit, offset)
}

// -- Todos --

func (s *Service) AddTodo(ctx context.Context, t *Todo) error {
	if t.Text == "" {
		return fmt.Errorf("text is required")
	}
	if err := s.guardWritable(ctx, t.PatientID); err != nil {
		return err
	}
	if t.IsCompleted && t.CompletedAt == nil {
		now := time.Now().UTC()
		t.CompletedAt = &now
	}
	return s.todos.Create(ctx, t)
}

// UpdateTodo preserves the first completion timestamp across repeated saves.
func (s *Service) UpdateTodo(ctx context.Context, id uuid.UUID, text string, isCompleted bool, expiresAt *time.Time, now time.Time) (*Todo, error) {
	existing, err := s.todos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guardWritable(ctx, existing.PatientID); err != nil {
		return nil, err
	}
	if text != "" {
		existing.Text = text
	}
	existing.ExpiresAt = expiresAt
	existing.SetCompleted(isCompleted, now)
	if err := s.todos.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) DeleteTodo(ctx context.Context, id uuid.UUID) error {
	existing, err := s.todos.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardWritable(ctx, existing.PatientID); err != nil {
		return err
	}
	return s.todos.Delete(ctx, id)
}

func (s *Service) ListTodos(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Todo, int, error) {
	return s.todos.ListByPatient(ctx, patientID, limit, offset)
}

// -- Overnight events --

func (s *Service) AddOvernightEvent(ctx context.Context, e *OvernightEvent) error {
	if e.Description == "" {
		return fmt.Errorf("description is required")
	}
	if err := s.guardWritable(ctx, e.PatientID); err != nil {
		return err
	}
	return s.events.Create(ctx, e)
}

func (s *Service) UpdateOvernightEvent(ctx context.Context, e *OvernightEvent) error {
	existing, err := s.events.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	if err := s.guardWritable(ctx, existing.PatientID); err != nil {
		return err
	}
	e.PatientID = existing.PatientID
	return s.events.Update(ctx, e)
}

func (s *Service) DeleteOvernightEvent(ctx context.Context, id uuid.UUID) error {
	existing, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardWritable(ctx, existing.PatientID); err != nil {
		return err
	}
	return s.events.Delete(ctx, id)
}

func (s *Service) ListOvernightEvents(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*OvernightEvent, int, error) {
	return s.events.ListByPatient(ctx, patientID, limit, offset)
}
