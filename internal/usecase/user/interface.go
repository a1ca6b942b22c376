package user

import (
	"context"

	domain "user-crud-service/internal/domain/user"
)

// Usecase defines the data access operations the HTTP layer depends on.
type Usecase interface {
	CreateUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUsersByEmail(ctx context.Context, email string) ([]domain.User, error)
	UpdateUser(ctx context.Context, id string, patch domain.Patch) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) (*domain.User, error)
}

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (e.g., MongoDB, PostgreSQL) to be used interchangeably.
//
// Lookups by identifier return (nil, nil) when no record matches.
// Unique email violations are reported as ErrDuplicateEmail.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) ([]domain.User, error)
	Update(ctx context.Context, id string, patch domain.Patch) (*domain.User, error)
	// Delete removes the user and returns its prior state
	Delete(ctx context.Context, id string) (*domain.User, error)
}
