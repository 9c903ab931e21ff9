package verify

import (
	"context"
	"sync"

	"github.com/ppiankov/verity/internal/model"
)

// ThoughtGraph resolves connected thoughts. Unknown ids are skipped.
type ThoughtGraph interface {
	GetThoughts(ctx context.Context, ids []string) ([]model.Thought, error)
}

// MemoryGraph is a process-local ThoughtGraph
type MemoryGraph struct {
	mu       sync.RWMutex
	thoughts map[string]model.Thought
}

// NewMemoryGraph creates an empty graph
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{thoughts: make(map[string]model.Thought)}
}

// Put records or replaces a thought by id
func (g *MemoryGraph) Put(t model.Thought) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thoughts[t.ID] = t
}

// GetThoughts returns the known thoughts among ids, in id order
func (g *MemoryGraph) GetThoughts(ctx context.Context, ids []string) ([]model.Thought, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]model.Thought, 0, len(ids))
	for _, id := range ids {
		if t, ok := g.thoughts[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Len returns the number of thoughts
func (g *MemoryGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.thoughts)
}
