package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/verity/internal/model"
)

// Open builds the store selected by cfg.Backend. Remote backends get their
// schema ensured; Layered wraps non-local backends with a LocalStore.
func Open(ctx context.Context, cfg model.MemoryConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ttl := time.Duration(cfg.LocalTTLHours) * time.Hour

	var durable Store
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(ttl), nil

	case "badger":
		dir := cfg.Badger.Dir
		if dir == "" && !cfg.Badger.InMemory {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve home dir: %w", err)
			}
			dir = filepath.Join(home, ".verity", "memory")
		}
		store, err := OpenBadger(BadgerConfig{Dir: dir, InMemory: cfg.Badger.InMemory, Logger: logger})
		if err != nil {
			return nil, err
		}
		durable = store

	case "weaviate":
		store, err := NewWeaviateStore(WeaviateConfig{
			Host:       cfg.Weaviate.Host,
			Scheme:     cfg.Weaviate.Scheme,
			Class:      cfg.Weaviate.Class,
			Vectorizer: cfg.Weaviate.Vectorizer,
			APIKey:     cfg.Weaviate.APIKey,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		durable = store

	case "postgres":
		store, err := OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.Table)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		durable = store

	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}

	if cfg.Layered {
		return NewLayered(NewLocalStore(ttl), durable, logger), nil
	}
	return durable, nil
}
