package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/degrade"
	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/logging"
)

const (
	// DefaultSubjectPrefix is the subject prefix transitions are published under.
	DefaultSubjectPrefix = "availabletrade.availability"

	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

var (
	// ErrNilConn is returned when a publisher is created without a connection.
	ErrNilConn = errors.New("nats connection is nil")

	_ Conn = (*nats.Conn)(nil)
)

// Conn is the part of a NATS connection used to publish events.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
}

// Event is the payload published for an availability transition.
type Event struct {
	ID                  string         `json:"id"`
	Monitor             string         `json:"monitor"`
	From                degrade.Status `json:"from"`
	To                  degrade.Status `json:"to"`
	Available           bool           `json:"available"`
	ConsecutiveFailures uint           `json:"consecutive_failures"`
	LastError           string         `json:"last_error,omitempty"`
	At                  time.Time      `json:"at"`
}

// NewEvent creates the event for a transition.
func NewEvent(t degrade.Transition) *Event {
	return &Event{
		ID:                  uuid.NewString(),
		Monitor:             t.Name,
		From:                t.From,
		To:                  t.To,
		Available:           t.State.Available,
		ConsecutiveFailures: t.State.ConsecutiveFailures,
		LastError:           t.State.LastError,
		At:                  t.At,
	}
}

// Publisher publishes availability transitions to NATS.
type Publisher struct {
	l      *slog.Logger
	conn   Conn
	prefix string
}

// NewPublisher creates a publisher that sends transitions to subjects under prefix. An empty prefix uses
// DefaultSubjectPrefix.
func NewPublisher(l *slog.Logger, conn Conn, prefix string) (*Publisher, error) {
	switch {
	case l == nil:
		return nil, errors.New("logger is nil")
	case conn == nil:
		return nil, ErrNilConn
	}

	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return &Publisher{
		l:      l,
		conn:   conn,
		prefix: prefix,
	}, nil
}

// Subject returns the subject transitions of the named monitor are published to.
func (p *Publisher) Subject(monitor string) string {
	return p.prefix + "." + subjectToken(monitor)
}

// subjectToken makes a monitor name safe to use as a single subject token.
func subjectToken(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, name)
}

// Publish publishes a single transition.
func (p *Publisher) Publish(t degrade.Transition) error {
	evt := NewEvent(t)

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(p.Subject(t.Name))
	msg.Data = data
	msg.Header.Set(headerContentType, contentTypeJSON)
	msg.Header.Set(nats.MsgIdHdr, evt.ID)

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", msg.Subject, err)
	}

	p.l.Debug("published availability event",
		slog.String(logging.KeySubject, msg.Subject),
		slog.String(logging.KeyStatus, evt.To.String()),
	)
	return nil
}

// Run publishes every transition received on transitions until the channel is closed or ctx is done.
// Publish failures are logged and do not stop the loop.
func (p *Publisher) Run(ctx context.Context, transitions <-chan degrade.Transition) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-transitions:
			if !ok {
				return
			}

			if err := p.Publish(t); err != nil {
				p.l.Error("failed to publish availability event",
					slog.String(logging.KeyMonitor, t.Name),
					slog.Any(logging.KeyError, err),
				)
			}
		}
	}
}
