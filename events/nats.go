package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is the root of the event subject hierarchy.
// Events are published to {prefix}.{runID}.{type}.
const DefaultSubjectPrefix = "inkwell.workflow.events"

// NATSPublisher is a Sink that publishes workflow events to NATS subjects,
// letting out-of-process observers (UI backends, recorders) follow runs.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

// NATSPublisherOption configures a NATSPublisher.
type NATSPublisherOption func(*NATSPublisher)

// WithSubjectPrefix overrides the event subject prefix.
func WithSubjectPrefix(prefix string) NATSPublisherOption {
	return func(p *NATSPublisher) {
		p.prefix = strings.TrimSuffix(prefix, ".")
	}
}

// WithNATSLogger sets the logger for publish failures.
func WithNATSLogger(logger *slog.Logger) NATSPublisherOption {
	return func(p *NATSPublisher) {
		p.logger = logger
	}
}

// NewNATSPublisher creates a publisher over an established NATS connection.
// The caller owns the connection lifecycle.
func NewNATSPublisher(nc *nats.Conn, opts ...NATSPublisherOption) (*NATSPublisher, error) {
	if nc == nil {
		return nil, fmt.Errorf("NATS connection required")
	}

	p := &NATSPublisher{
		nc:     nc,
		prefix: DefaultSubjectPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish sends the event as JSON. Publish failures are logged, never
// propagated: event delivery is best-effort and must not fail a phase.
func (p *NATSPublisher) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("Failed to marshal event", "type", event.Type, "error", err)
		return
	}

	subject := fmt.Sprintf("%s.%s.%s", p.prefix, sanitizeToken(event.RunID), event.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event",
			"subject", subject,
			"type", event.Type,
			"error", err)
	}
}

// sanitizeToken makes a run id safe for use as a NATS subject token.
func sanitizeToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ':
			return '-'
		}
		return r
	}, s)
}
