// Package events combines the publishers that react to committed user writes.
package events

import (
	"context"
	"errors"

	"github.com/oksasatya/user-service/internal/application"
)

// Fanout delivers every event to each publisher in order. All publishers are
// tried; their errors are joined.
type Fanout []application.EventPublisher

func (f Fanout) Publish(ctx context.Context, ev application.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, application.Event) error { return nil }

// New returns Nop when no publisher is configured and a Fanout otherwise.
func New(publishers ...application.EventPublisher) application.EventPublisher {
	var live Fanout
	for _, p := range publishers {
		if p != nil {
			live = append(live, p)
		}
	}
	if len(live) == 0 {
		return Nop{}
	}
	return live
}
