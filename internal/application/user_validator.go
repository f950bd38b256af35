package application

import (
	"context"
	"fmt"

	"github.com/oksasatya/user-service/internal/domain/apperror"
	repo "github.com/oksasatya/user-service/internal/domain/repository"
)

// UniquenessValidator guards the one-user-per-email invariant before inserts.
// The unique index in the store still catches races between check and insert.
type UniquenessValidator struct {
	Repo repo.UserRepository
}

func NewUniquenessValidator(r repo.UserRepository) *UniquenessValidator {
	return &UniquenessValidator{Repo: r}
}

func (v *UniquenessValidator) ValidateEmailIsFree(ctx context.Context, email string) error {
	exists, err := v.Repo.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return &apperror.AlreadyExistsError{Email: email}
	}
	return nil
}
