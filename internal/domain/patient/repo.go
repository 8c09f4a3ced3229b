package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows the census list. Zero values match everything.
type ListFilter struct {
	Status      *Status
	AttendingID *uuid.UUID
	MRN         string
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// GetByIDForUpdate row-locks the patient for the duration of the
	// surrounding transaction. Only meaningful inside db.WithTx.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error)

	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error)

	// ArchiveEligible archives every patient discharged on or before cutoff
	// in one statement and returns the count. Zero rows is success.
	ArchiveEligible(ctx context.Context, cutoff, now time.Time) (int64, error)
}

type SignoutRepository interface {
	Create(ctx context.Context, s *Signout) error
	GetByID(ctx context.Context, id uuid.UUID) (*Signout, error)
	Update(ctx context.Context, s *Signout) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Signout, int, error)
}

type TodoRepository interface {
	Create(ctx context.Context, t *Todo) error
	GetByID(ctx context.Context, id uuid.UUID) (*Todo, error)
	Update(ctx context.Context, t *Todo) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Todo, int, error)
}

type OvernightEventRepository interface {
	Create(ctx context.Context, e *OvernightEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*OvernightEvent, error)
	Update(ctx context.Context, e *OvernightEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*OvernightEvent, int, error)
}
