// Package notify turns user events into queued email jobs.
package notify

import (
	"context"
	"fmt"

	"github.com/oksasatya/user-service/internal/application"
	"github.com/oksasatya/user-service/pkg/mailer"
	mailtpl "github.com/oksasatya/user-service/pkg/mailer/templates"
)

// JobQueue is satisfied by helpers.RabbitQueue.
type JobQueue interface {
	PublishJSON(ctx context.Context, body any) error
}

// EmailNotifier queues a templated email for the events users are told about.
type EmailNotifier struct {
	Queue      JobQueue
	AppName    string
	SupportURL string
}

func NewEmailNotifier(q JobQueue, appName, supportURL string) *EmailNotifier {
	return &EmailNotifier{Queue: q, AppName: appName, SupportURL: supportURL}
}

func templateFor(t application.EventType) string {
	switch t {
	case application.EventUserCreated:
		return mailtpl.Welcome
	case application.EventUserEmailConfirmed:
		return mailtpl.EmailConfirmed
	case application.EventUserPasswordChanged:
		return mailtpl.PasswordChanged
	}
	return ""
}

func (n *EmailNotifier) Publish(ctx context.Context, ev application.Event) error {
	tpl := templateFor(ev.Type)
	if tpl == "" || ev.Email == "" {
		return nil
	}
	var name string
	if ev.User != nil {
		name = ev.User.FirstName
	}
	data := mailtpl.NewEmailData(name, ev.Email,
		mailtpl.WithAppName(n.AppName),
		mailtpl.WithSupportURL(n.SupportURL),
		mailtpl.WithTime(ev.OccurredAt),
	)
	job := mailer.EmailJob{To: ev.Email, Template: tpl, Data: mailtpl.ToMap(data)}
	if err := n.Queue.PublishJSON(ctx, job); err != nil {
		return fmt.Errorf("queue %s email: %w", tpl, err)
	}
	return nil
}
