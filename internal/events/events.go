// Package events publishes verification lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ppiankov/verity/internal/model"
)

// SubjectCompleted is appended to the configured prefix
const SubjectCompleted = "verification.completed"

// Completed is emitted once a deep verification has been persisted
type Completed struct {
	ThoughtID  string       `json:"thought_id,omitempty"`
	MemoryID   string       `json:"memory_id,omitempty"`
	SessionID  string       `json:"session_id,omitempty"`
	Status     model.Status `json:"status"`
	Confidence float64      `json:"confidence"`
	Sources    []string     `json:"sources,omitempty"`
	Tools      []string     `json:"tools,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Publisher delivers events. Publishing is best effort; callers log errors.
type Publisher interface {
	PublishCompleted(ctx context.Context, ev Completed) error
	Close() error
}

// Noop discards every event
type Noop struct{}

func (Noop) PublishCompleted(context.Context, Completed) error { return nil }
func (Noop) Close() error                                      { return nil }

// conn is the part of *nats.Conn the publisher uses
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes JSON events on a NATS subject
type NATSPublisher struct {
	nc      conn
	subject string
	logger  *slog.Logger
}

// ConnectNATS dials url and returns a publisher using prefix for subjects
func ConnectNATS(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("verity"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newNATSPublisher(nc, prefix, logger), nil
}

func newNATSPublisher(nc conn, prefix string, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{nc: nc, subject: Subject(prefix, SubjectCompleted), logger: logger}
}

// Subject joins prefix and name with a dot, skipping an empty prefix
func Subject(prefix, name string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// PublishCompleted encodes ev and publishes it
func (p *NATSPublisher) PublishCompleted(ctx context.Context, ev Completed) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	p.logger.Debug("published event", "subject", p.subject, "status", ev.Status)
	return nil
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

// New returns a NATS publisher when cfg is enabled, Noop otherwise
func New(cfg model.EventsConfig, logger *slog.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return ConnectNATS(cfg.URL, cfg.SubjectPrefix, logger)
}
