package annotate

import (
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

const (
	MarkerCorrect = "[✓ Vérifié]"
	MarkerPending = "[⏳ Vérification en cours...]"
	markerPrefix  = "[✗ Incorrect: "
)

// Marker returns the inline marker for a calculation result
func Marker(r model.CalculationResult) string {
	switch {
	case r.Pending:
		return MarkerPending
	case r.IsCorrect:
		return MarkerCorrect
	default:
		return markerPrefix + r.Verified + "]"
	}
}

// Annotator decorates text with calculation verdicts
type Annotator struct{}

// New creates an annotator
func New() *Annotator {
	return &Annotator{}
}

// Annotate appends a marker after each result's original span. The n-th
// result sharing an original span decorates the n-th occurrence of it.
// Function notation is skipped. Results are applied last to first and an
// occurrence already followed by a marker is left alone, so annotating
// twice gives the same text as annotating once.
func (a *Annotator) Annotate(text string, results []model.CalculationResult) string {
	nth := make([]int, len(results))
	seen := make(map[string]int)
	for i, r := range results {
		nth[i] = seen[r.Original]
		seen[r.Original]++
	}

	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		if r.FunctionNotation || r.Original == "" {
			continue
		}

		at := occurrence(text, r.Original, nth[i])
		if at < 0 {
			continue
		}
		end := at + len(r.Original)
		if isMarker(strings.TrimLeft(text[end:], " ")) {
			continue
		}
		text = text[:end] + " " + Marker(r) + text[end:]
	}
	return text
}

// occurrence returns the byte offset of the n-th (0-based) occurrence of sub
func occurrence(text, sub string, n int) int {
	offset := 0
	for {
		idx := strings.Index(text[offset:], sub)
		if idx < 0 {
			return -1
		}
		if n == 0 {
			return offset + idx
		}
		n--
		offset += idx + len(sub)
	}
}

func isMarker(s string) bool {
	return strings.HasPrefix(s, MarkerCorrect) ||
		strings.HasPrefix(s, MarkerPending) ||
		strings.HasPrefix(s, markerPrefix)
}
