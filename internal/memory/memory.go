// Package memory is the durable, similarity-indexed verification memory.
//
// Stores answer FindVerification with the most similar record at or above
// the requested threshold, scoped to a session when one is given.
package memory

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/ppiankov/verity/internal/cache"
	"github.com/ppiankov/verity/internal/model"
)

// ErrNotFound is returned by Get when no record has the id
var ErrNotFound = errors.New("verification not found")

// Record is one stored verification
type Record struct {
	ID          string       `json:"id" db:"id"`
	Text        string       `json:"text" db:"text"`
	Fingerprint string       `json:"fingerprint" db:"fingerprint"`
	Status      model.Status `json:"status" db:"status"`
	Confidence  float64      `json:"confidence" db:"confidence"`
	Sources     []string     `json:"sources,omitempty" db:"-"`
	SessionID   string       `json:"session_id,omitempty" db:"session_id"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`

	// Similarity is set on lookup results, never stored
	Similarity float64 `json:"similarity,omitempty" db:"similarity"`
}

// Gateway is what the pipeline needs from durable memory
type Gateway interface {
	// FindVerification returns (nil, nil) when nothing is similar enough
	FindVerification(ctx context.Context, text, sessionID string, threshold float64) (*Record, error)
	AddVerification(ctx context.Context, text string, status model.Status, confidence float64, sources []string, sessionID string) (string, error)
}

// Store is a Gateway backend
type Store interface {
	Gateway
	Get(ctx context.Context, id string) (*Record, error)
	Close() error
}

// NewRecord builds a record with a fresh id
func NewRecord(text string, status model.Status, confidence float64, sources []string, sessionID string) Record {
	return Record{
		ID:          uuid.NewString(),
		Text:        text,
		Fingerprint: cache.Fingerprint(text),
		Status:      status,
		Confidence:  confidence,
		Sources:     append([]string(nil), sources...),
		SessionID:   sessionID,
		CreatedAt:   time.Now().UTC(),
	}
}

// Similarity scores two texts in [0, 1]: 1 for identical normalized text,
// otherwise the Dice coefficient of their word sets
func Similarity(a, b string) float64 {
	na, nb := cache.Normalize(a), cache.Normalize(b)
	if na == nb {
		return 1
	}
	sa, sb := wordSet(na), wordSet(nb)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	shared := 0
	for w := range sa {
		if sb[w] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(sa)+len(sb))
}

func wordSet(normalized string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.FieldsFunc(normalized, isSeparator) {
		set[w] = true
	}
	return set
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// inSession reports whether a record belongs to the requested scope.
// An empty session searches every record.
func inSession(r *Record, sessionID string) bool {
	return sessionID == "" || r.SessionID == sessionID
}

// best keeps the candidate with the higher similarity, preferring the newer
// record on ties
func best(current *Record, candidate Record, similarity float64) *Record {
	if current != nil {
		if similarity < current.Similarity {
			return current
		}
		if similarity == current.Similarity && !candidate.CreatedAt.After(current.CreatedAt) {
			return current
		}
	}
	candidate.Similarity = similarity
	return &candidate
}
