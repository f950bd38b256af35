package templates

import (
	"time"
)

// Option pattern
type Option func(*EmailData)

func WithAppName(name string) Option  { return func(d *EmailData) { d.AppName = name } }
func WithSupportURL(url string) Option { return func(d *EmailData) { d.SupportURL = url } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

// NewEmailData builds the template payload for one recipient.
func NewEmailData(name, email string, opts ...Option) EmailData {
	d := EmailData{Name: name, Email: email}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}
