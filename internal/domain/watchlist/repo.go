package watchlist

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, w *Watch) error
	Update(ctx context.Context, w *Watch) error

	// FindActive returns the active (non-archived) watch for the pair, or a
	// not-found error. At most one can exist; the partial unique index on
	// (user_id, patient_id) WHERE archived_at IS NULL enforces it.
	FindActive(ctx context.Context, userID, patientID uuid.UUID) (*Watch, error)

	// FindLatest returns the most recent watch for the pair regardless of
	// archive state. Used to decide between reactivation and creation.
	FindLatest(ctx context.Context, userID, patientID uuid.UUID) (*Watch, error)

	// Archive stamps archived_at on the active watch for the pair and
	// returns how many rows it touched (0 or 1).
	Archive(ctx context.Context, userID, patientID uuid.UUID, now time.Time) (int64, error)

	ListActiveByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Watch, int, error)
}
