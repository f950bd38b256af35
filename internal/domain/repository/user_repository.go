package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/user-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned by lookups and deletes that match no row.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Save when the email is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Save inserts when u.ID is zero and overwrites every column otherwise.
	// Generated fields (ID, CreatedAt, UpdatedAt) are written back into u.
	Save(ctx context.Context, u *entity.User) error
	DeleteByID(ctx context.Context, id int64) error
	// WithinTx runs fn against a repository bound to one transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx UserRepository) error) error
}
