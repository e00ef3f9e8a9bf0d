package events

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/ziva-sdk/internal/metrics"
)

// Event types.
const (
	TypeCredentialsUpdated = "credentials.updated"
	TypeCredentialsCleared = "credentials.cleared"
)

// Event announces a change to the persisted credential state. It never
// carries credential values.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"event_type"`
	Operation string    `json:"operation"`
	Service   string    `json:"service,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New stamps an event of type typ for operation op.
func New(typ, op string) Event {
	return Event{
		ID:        uuid.New(),
		Type:      typ,
		Operation: op,
		Timestamp: time.Now().UTC(),
	}
}

// Notifier delivers credential lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// msgPublisher is the subset of *nats.Conn used here.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSNotifier publishes events as JSON on one subject.
type NATSNotifier struct {
	pub     msgPublisher
	subject string
	service string
	logger  *zap.Logger
}

// NewNATSNotifier wraps an open NATS connection.
func NewNATSNotifier(nc *nats.Conn, subject, service string, logger *zap.Logger) *NATSNotifier {
	return newNATSNotifier(nc, subject, service, logger)
}

func newNATSNotifier(pub msgPublisher, subject, service string, logger *zap.Logger) *NATSNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSNotifier{
		pub:     pub,
		subject: subject,
		service: service,
		logger:  logger,
	}
}

// Notify serializes and publishes ev.
func (n *NATSNotifier) Notify(_ context.Context, ev Event) error {
	if ev.Service == "" {
		ev.Service = n.service
	}
	data, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("events.marshal_failed", zap.String("event_type", ev.Type), zap.Error(err))
		metrics.IncEvent(n.subject, "error")
		return err
	}

	msg := &nats.Msg{
		Subject: n.subject,
		Data:    data,
		Header: nats.Header{
			"event_type":   []string{ev.Type},
			"event_id":     []string{ev.ID.String()},
			"service":      []string{n.service},
			"content_type": []string{"application/json"},
		},
	}
	if err := n.pub.PublishMsg(msg); err != nil {
		n.logger.Warn("events.publish_failed",
			zap.String("subject", n.subject),
			zap.String("event_type", ev.Type),
			zap.Error(err))
		metrics.IncEvent(n.subject, "error")
		return err
	}

	n.logger.Debug("events.published",
		zap.String("subject", n.subject),
		zap.String("event_type", ev.Type),
		zap.String("operation", ev.Operation))
	metrics.IncEvent(n.subject, "ok")
	return nil
}
