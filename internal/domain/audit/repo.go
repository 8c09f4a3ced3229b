package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository is intentionally append-only: there are no update or delete
// methods, and none may be added.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	List(ctx context.Context, event string, limit, offset int) ([]*Entry, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error)
}
