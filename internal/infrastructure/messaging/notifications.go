package messaging

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/identity-core/internal/application"
	"github.com/oksasatya/identity-core/pkg/helpers"
	"github.com/oksasatya/identity-core/pkg/mailer"
	"github.com/oksasatya/identity-core/pkg/mailer/templates"
)

// Disposition tells the consumer loop what to do with a delivery.
type Disposition int

const (
	Ack Disposition = iota
	Reject
	Requeue
)

const sendTimeout = 15 * time.Second

// Sender is satisfied by *mailer.Mailgun.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Notifier turns user events into emails.
type Notifier struct {
	Sender     Sender
	AppName    string
	Company    string
	SupportURL string
	Logger     *logrus.Logger
}

func (n *Notifier) log() *logrus.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return helpers.NewDiscardLogger()
}

// JobFor maps an event to an email. Events without a notification return
// false.
func (n *Notifier) JobFor(evt application.UserEvent) (mailer.EmailJob, bool) {
	opts := []templates.Option{
		templates.WithTime(evt.OccurredAt),
		templates.WithSupportURL(n.SupportURL),
		templates.WithCompany(n.Company),
	}
	var name string
	switch evt.Type {
	case application.EventUserRegistered:
		name = templates.Welcome
	case application.EventUserProfileUpdated:
		name = templates.ProfileUpdated
		opts = append(opts, templates.WithChanges(map[string]string{"username": evt.Username}))
	default:
		return mailer.EmailJob{}, false
	}
	data := templates.NewEmailData(n.AppName, evt.Username, evt.Email, opts...)
	return mailer.EmailJob{To: evt.Email, Template: name, Data: templates.ToMap(data)}, true
}

// Handle processes one delivery body. Malformed messages and render failures
// are rejected without requeue; send failures are requeued.
func (n *Notifier) Handle(ctx context.Context, body []byte) Disposition {
	evt, err := DecodeUserEvent(body)
	if err != nil {
		n.log().WithError(err).Warn("bad user event")
		return Reject
	}
	job, ok := n.JobFor(evt)
	if !ok {
		return Ack
	}
	subject, text, html, err := job.Render()
	if err != nil {
		n.log().WithError(err).WithField("template", job.Template).Error("render email failed")
		return Reject
	}

	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := n.Sender.Send(c, job.To, subject, text, html); err != nil {
		n.log().WithError(err).WithFields(logrus.Fields{"user_id": evt.UserID, "event": evt.Type}).Warn("send email failed")
		return Requeue
	}
	n.log().WithFields(logrus.Fields{"user_id": evt.UserID, "event": evt.Type}).Info("email sent")
	return Ack
}
