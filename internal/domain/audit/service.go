package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	entries Repository
}

func NewService(entries Repository) *Service {
	return &Service{entries: entries}
}

// RecordAttendingChange appends one entry per patient whose attending moved.
// Called from inside the reassignment transaction so the entry commits or
// rolls back with the attending update itself.
func (s *Service) RecordAttendingChange(ctx context.Context, patientID, oldAttendingID, newAttendingID, actorID uuid.UUID) error {
	if patientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	e := &Entry{
		Event:          EventAttendingChanged,
		PatientID:      &patientID,
		OldAttendingID: &oldAttendingID,
		NewAttendingID: &newAttendingID,
	}
	if actorID != uuid.Nil {
		e.ChangedBy = &actorID
	}
	return s.entries.Create(ctx, e)
}

// RecordAuthEvent appends a login/logout entry. userID is nil for failed
// logins against unknown usernames.
func (s *Service) RecordAuthEvent(ctx context.Context, event, username, ip, userAgent string, userID *uuid.UUID) error {
	if !ValidEvent(event) || event == EventAttendingChanged {
		return fmt.Errorf("invalid auth event: %s", event)
	}
	e := &Entry{
		Event:     event,
		ChangedBy: userID,
	}
	if username != "" {
		e.Username = &username
	}
	if ip != "" {
		e.IPAddress = &ip
	}
	if userAgent != "" {
		e.UserAgent = &userAgent
	}
	return s.entries.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.entries.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, event string, limit, offset int) ([]*Entry, int, error) {
	if event != "" && !ValidEvent(event) {
		return nil, 0, fmt.Errorf("invalid event filter: %s", event)
	}
	return s.entries.List(ctx, event, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.entries.ListByPatient(ctx, patientID, limit, offset)
}
