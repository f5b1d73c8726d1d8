// Package messaging carries user lifecycle events over RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oksasatya/identity-core/internal/application"
)

const publishTimeout = 3 * time.Second

// jsonPublisher is satisfied by *helpers.RabbitPublisher.
type jsonPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserEventPublisher publishes application.UserEvent as JSON on one queue.
type UserEventPublisher struct {
	pub jsonPublisher
}

func NewUserEventPublisher(pub jsonPublisher) *UserEventPublisher {
	return &UserEventPublisher{pub: pub}
}

func (p *UserEventPublisher) Publish(ctx context.Context, evt application.UserEvent) error {
	if p == nil || p.pub == nil {
		return errors.New("publisher not configured")
	}
	c, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.pub.PublishJSON(c, evt)
}

// DecodeUserEvent parses a message body produced by UserEventPublisher.
func DecodeUserEvent(body []byte) (application.UserEvent, error) {
	var evt application.UserEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return evt, err
	}
	if evt.Type == "" || evt.UserID == "" {
		return evt, errors.New("event missing type or user_id")
	}
	return evt, nil
}

var _ application.EventPublisher = (*UserEventPublisher)(nil)
