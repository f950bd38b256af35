package application

import (
	"context"
	"time"
)

type EventType string

const (
	EventUserCreated         EventType = "user.created"
	EventUserUpdated         EventType = "user.updated"
	EventUserDeleted         EventType = "user.deleted"
	EventUserEmailConfirmed  EventType = "user.email_confirmed"
	EventUserPasswordChanged EventType = "user.password_changed"
)

// Event describes a committed write. User is nil for deletions.
type Event struct {
	Type       EventType `json:"type"`
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	User       *UserDTO  `json:"user,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher receives events after the transaction that produced them
// has committed. Errors are logged by the service and never fail the write.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}
