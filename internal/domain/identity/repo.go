package identity

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence surface for user accounts. Lookups by
// username only consider active accounts.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameAndRole(ctx context.Context, username string, role Role) (*User, error)
	Update(ctx context.Context, u *User) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListByRole(ctx context.Context, role Role, limit, offset int) ([]*User, int, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*User, int, error)
}
