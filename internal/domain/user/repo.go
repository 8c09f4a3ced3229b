package user

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error

	// ListActive returns active accounts for assignment pickers. The
	// placeholder is excluded; it is an implementation detail, not a choice.
	ListActive(ctx context.Context, limit, offset int) ([]*User, int, error)
}
