package entity

import (
	"time"
)

// User is the aggregate root for user domain
// Passwords are stored as bcrypt hashes in Password field
type User struct {
	ID             int64
	FirstName      string
	LastName       string
	Email          string
	Password       string
	EmailConfirmed bool
	Role           Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsNew reports whether the user has not been persisted yet.
func (u *User) IsNew() bool { return u.ID == 0 }

// Clone returns a shallow copy; all fields are values.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
