package templates

import (
	"time"
)

type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04 MST")
	}
}

func WithChanges(ch map[string]string) Option {
	return func(d *EmailData) { d.Changes = ch }
}

func WithSupportURL(url string) Option {
	return func(d *EmailData) { d.SupportURL = url }
}

func WithCompany(name string) Option {
	return func(d *EmailData) { d.CompanyName = name }
}

// NewEmailData builds template data for a recipient.
func NewEmailData(appName, username, email string, opts ...Option) EmailData {
	d := EmailData{AppName: appName, Username: username, Email: email}
	for _, o := range opts {
		o(&d)
	}
	return d
}
