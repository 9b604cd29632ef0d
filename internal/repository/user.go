package repository

import (
	"context"
	"errors"

	"gatelog/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("record already exists")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByRFID(ctx context.Context, rfid string) (*domain.User, error)
	// ExistsAny reports whether a user already holds the username, rfid or fullname.
	ExistsAny(ctx context.Context, username, rfid, fullname string) (bool, error)
	HasRole(ctx context.Context, role domain.Role) (bool, error)
	ListExcludingRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	// Delete removes the user and every sensor event it owns in one transaction.
	Delete(ctx context.Context, id int64) error
}
