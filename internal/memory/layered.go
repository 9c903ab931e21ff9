package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/verity/internal/model"
)

// Layered fronts a durable store with a LocalStore. Lookups try the local
// layer first; durable hits are promoted into it.
type Layered struct {
	local   *LocalStore
	durable Store
	logger  *slog.Logger
}

// NewLayered creates a layered store
func NewLayered(local *LocalStore, durable Store, logger *slog.Logger) *Layered {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layered{local: local, durable: durable, logger: logger}
}

// AddVerification writes to the durable store, then mirrors the record locally
func (l *Layered) AddVerification(ctx context.Context, text string, status model.Status, confidence float64, sources []string, sessionID string) (string, error) {
	id, err := l.durable.AddVerification(ctx, text, status, confidence, sources, sessionID)
	if err != nil {
		return "", err
	}
	rec := NewRecord(text, status, confidence, sources, sessionID)
	rec.ID = id
	l.local.Put(rec)
	return id, nil
}

// FindVerification checks the local layer, then the durable one
func (l *Layered) FindVerification(ctx context.Context, text, sessionID string, threshold float64) (*Record, error) {
	if rec, err := l.local.FindVerification(ctx, text, sessionID, threshold); err == nil && rec != nil {
		return rec, nil
	}

	rec, err := l.durable.FindVerification(ctx, text, sessionID, threshold)
	if err != nil || rec == nil {
		return rec, err
	}
	promoted := *rec
	l.local.Put(promoted)
	l.logger.Debug("promoted durable verification", "id", rec.ID)
	return rec, nil
}

// Get returns the record from either layer
func (l *Layered) Get(ctx context.Context, id string) (*Record, error) {
	if rec, err := l.local.Get(ctx, id); err == nil {
		return rec, nil
	}
	return l.durable.Get(ctx, id)
}

// Close closes both layers
func (l *Layered) Close() error {
	_ = l.local.Close()
	if err := l.durable.Close(); err != nil {
		return fmt.Errorf("close durable memory: %w", err)
	}
	return nil
}
