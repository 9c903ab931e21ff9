package memory

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/verity/internal/model"
)

// LocalStore keeps verifications in process memory with a TTL
type LocalStore struct {
	cache *gocache.Cache
}

// NewLocalStore creates a local store. A non-positive ttl keeps records
// until the process exits.
func NewLocalStore(ttl time.Duration) *LocalStore {
	cleanup := 10 * time.Minute
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &LocalStore{cache: gocache.New(ttl, cleanup)}
}

// AddVerification stores a new record and returns its id
func (s *LocalStore) AddVerification(ctx context.Context, text string, status model.Status, confidence float64, sources []string, sessionID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rec := NewRecord(text, status, confidence, sources, sessionID)
	s.Put(rec)
	return rec.ID, nil
}

// Put stores rec under its id with the default TTL
func (s *LocalStore) Put(rec Record) {
	rec.Similarity = 0
	s.cache.Set(rec.ID, rec, gocache.DefaultExpiration)
}

// FindVerification scans the unexpired records for the most similar one
func (s *LocalStore) FindVerification(ctx context.Context, text, sessionID string, threshold float64) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found *Record
	for _, item := range s.cache.Items() {
		rec, ok := item.Object.(Record)
		if !ok || !inSession(&rec, sessionID) {
			continue
		}
		if sim := Similarity(text, rec.Text); sim >= threshold {
			found = best(found, rec, sim)
		}
	}
	return found, nil
}

// Get returns the record with id
func (s *LocalStore) Get(ctx context.Context, id string) (*Record, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	rec := v.(Record)
	return &rec, nil
}

// Len returns the number of unexpired records
func (s *LocalStore) Len() int {
	return s.cache.ItemCount()
}

// Close drops every record
func (s *LocalStore) Close() error {
	s.cache.Flush()
	return nil
}
