package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// MessagePublisher is satisfied by *nats.Conn.
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

func ConnectNATS(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

// NATSForwarder relays bus events to NATS subjects named <prefix>.<event type>.
type NATSForwarder struct {
	conn   MessagePublisher
	prefix string
	logger *slog.Logger
}

func NewNATSForwarder(conn MessagePublisher, prefix string, logger *slog.Logger) *NATSForwarder {
	return &NATSForwarder{conn: conn, prefix: prefix, logger: logger}
}

func (f *NATSForwarder) Subject(eventType string) string {
	if f.prefix == "" {
		return eventType
	}
	return f.prefix + "." + eventType
}

// Attach subscribes the forwarder to every given event type on bus.
func (f *NATSForwarder) Attach(bus *EventBus, eventTypes ...string) {
	for _, eventType := range eventTypes {
		bus.Subscribe(eventType, f.Forward)
	}
}

func (f *NATSForwarder) Forward(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventID(), err)
	}

	subject := f.Subject(event.EventType())
	if err := f.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	f.logger.Debug("event forwarded", "subject", subject, "event_id", event.EventID())
	return nil
}
