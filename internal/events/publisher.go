// Package events announces finished calls to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"ivr-gateway/internal/calls"
)

const DefaultSubject = "ivr.calls.completed"

// CallCompleted is published once per call, by the first completion callback.
type CallCompleted struct {
	SessionID       string           `json:"session_id"`
	CallID          string           `json:"call_id"`
	Forwarding      calls.Forwarding `json:"forwarding"`
	DurationSeconds int              `json:"duration"`
	RecordingURL    string           `json:"recording_url,omitempty"`
	CompletedAt     time.Time        `json:"completed_at"`
}

type Publisher interface {
	PublishCallCompleted(ctx context.Context, e CallCompleted) error
}

// Noop drops every event. Used when NATS_URL is not configured.
type Noop struct{}

func (Noop) PublishCallCompleted(ctx context.Context, e CallCompleted) error { return nil }

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	nc      conn
	subject string
}

func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	if nc == nil {
		return newNATSPublisher(nil, subject)
	}
	return newNATSPublisher(nc, subject)
}

func newNATSPublisher(nc conn, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{nc: nc, subject: subject}
}

func (p *NATSPublisher) PublishCallCompleted(ctx context.Context, e CallCompleted) error {
	if p.nc == nil {
		return errors.New("events: nats connection not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Connect dials NATS with a client name and unlimited reconnects.
func Connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
