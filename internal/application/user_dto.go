package application

import "github.com/oksasatya/user-service/internal/domain/entity"

// UserDTO is the read model handed to transport and stored in the caches.
// It never carries the password hash.
type UserDTO struct {
	ID             int64       `json:"id"`
	FirstName      string      `json:"firstName"`
	LastName       string      `json:"lastName"`
	Email          string      `json:"email"`
	EmailConfirmed bool        `json:"emailConfirmed"`
	Role           entity.Role `json:"role"`
}

func ToDTO(u *entity.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmed,
		Role:           u.Role,
	}
}

type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string // plaintext, hashed before it is stored
	Role      entity.Role
}

// UpdateUserInput replaces the names of a user. Email may repeat the stored
// address (case-insensitively); any other value is an ImmutableFieldError. Password is stored
// verbatim, so callers send an already hashed value; empty keeps the current one.
type UpdateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}
