package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/verify"
)

// Verifier runs one thought through the verification pipeline
type Verifier interface {
	Verify(ctx context.Context, thought *model.Thought, force bool) (*verify.Report, error)
}

// ThoughtJob verifies one thought of a batch
type ThoughtJob struct {
	Index    int
	Thought  model.Thought
	Force    bool
	Verifier Verifier
	Limiter  *Limiter
}

// Execute executes the verification job
func (j *ThoughtJob) Execute(ctx context.Context) Result {
	thought := j.Thought
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, thought.SessionID); err != nil {
			return &ThoughtResult{Index: j.Index, Thought: thought, Error: fmt.Errorf("rate limit: %w", err)}
		}
	}

	report, err := j.Verifier.Verify(ctx, &thought, j.Force)
	if err != nil {
		return &ThoughtResult{Index: j.Index, Thought: thought, Error: err}
	}
	return &ThoughtResult{Index: j.Index, Thought: thought, Report: report}
}

// ThoughtResult is the outcome of one ThoughtJob
type ThoughtResult struct {
	Index   int            `json:"index"`
	Thought model.Thought  `json:"thought"`
	Report  *verify.Report `json:"report,omitempty"`
	Error   error          `json:"-"`
}

// GetError returns the verification error
func (r *ThoughtResult) GetError() error {
	return r.Error
}

// MarshalJSON adds the error message, if any
func (r *ThoughtResult) MarshalJSON() ([]byte, error) {
	type plain ThoughtResult
	out := struct {
		*plain
		Error string `json:"error,omitempty"`
	}{plain: (*plain)(r)}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return json.Marshal(out)
}

// BatchProcessor verifies many thoughts concurrently
type BatchProcessor struct {
	verifier    Verifier
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a batch processor. perSecond and burst pace
// thoughts per session; a zero rate disables pacing.
func NewBatchProcessor(verifier Verifier, concurrency int, perSecond float64, burst int) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
		limiter:     NewLimiter(perSecond, burst),
	}
}

// ProcessThoughts verifies thoughts concurrently and returns the results in
// input order
func (b *BatchProcessor) ProcessThoughts(ctx context.Context, thoughts []model.Thought, force bool) []*ThoughtResult {
	if len(thoughts) == 0 {
		return []*ThoughtResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, t := range thoughts {
		job := &ThoughtJob{
			Index:    i,
			Thought:  t,
			Force:    force,
			Verifier: b.verifier,
			Limiter:  b.limiter,
		}
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()

	thoughtResults := make([]*ThoughtResult, len(results))
	for i, result := range results {
		thoughtResults[i] = result.(*ThoughtResult)
	}
	sort.Slice(thoughtResults, func(i, j int) bool {
		return thoughtResults[i].Index < thoughtResults[j].Index
	})

	return thoughtResults
}

// ProcessFile reads thoughts from a file and verifies them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string, force bool) ([]*ThoughtResult, error) {
	thoughts, err := ReadThoughtsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read thoughts: %w", err)
	}

	return b.ProcessThoughts(ctx, thoughts, force), nil
}

// ReadThoughtsFromFile reads one thought per line. A line is either a JSON
// thought object or plain text. Blank lines and # comments are skipped;
// thoughts without an id get "line-<n>".
func ReadThoughtsFromFile(filePath string) ([]model.Thought, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var thoughts []model.Thought

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var t model.Thought
		if strings.HasPrefix(line, "{") {
			if err := json.Unmarshal([]byte(line), &t); err != nil {
				return nil, fmt.Errorf("line %d: decode thought: %w", lineNo, err)
			}
		} else {
			t.Content = line
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		if t.ID == "" {
			t.ID = fmt.Sprintf("line-%d", lineNo)
		}
		if t.Type == "" {
			t.Type = model.ThoughtRegular
		}
		thoughts = append(thoughts, t)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return thoughts, nil
}
