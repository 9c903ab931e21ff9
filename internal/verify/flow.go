package verify

import (
	"context"

	"github.com/ppiankov/verity/internal/model"
)

// Stage names the step that settled a thought's verification
type Stage string

const (
	StagePreliminary Stage = "preliminary"
	StagePrevious    Stage = "previous"
	StageDeep        Stage = "deep"
)

// Report is the outcome of running a thought through the whole pipeline
type Report struct {
	ThoughtID     string                      `json:"thought_id,omitempty"`
	Stage         Stage                       `json:"stage"`
	Status        model.Status                `json:"status"`
	Confidence    float64                     `json:"confidence"`
	IsVerified    bool                        `json:"is_verified"`
	AnnotatedText string                      `json:"annotated_text"`
	Preliminary   *model.PreliminaryResult    `json:"preliminary"`
	Previous      *model.PreviousVerification `json:"previous,omitempty"`
	Result        *model.VerificationResult   `json:"result,omitempty"`
}

// Verify runs the data flow end to end: the calculation fast path, then,
// when deeper checking is warranted, reuse of a previous verification, and
// finally deep verification. force skips reuse and always verifies deeply.
func (p *Pipeline) Verify(ctx context.Context, thought *model.Thought, force bool) (*Report, error) {
	if thought == nil {
		return nil, ErrNilThought
	}

	pre, err := p.PreliminaryVerify(ctx, thought.Content, force)
	if err != nil {
		return nil, err
	}
	report := &Report{
		ThoughtID:     thought.ID,
		Stage:         StagePreliminary,
		Status:        pre.Status,
		Confidence:    pre.Confidence,
		IsVerified:    pre.Status.IsPositive(),
		AnnotatedText: pre.AnnotatedText,
		Preliminary:   pre,
	}
	if !force && !pre.NeedsDeepVerification {
		thought.AnnotatedContent = pre.AnnotatedText
		return report, nil
	}

	if !force {
		prev, err := p.CheckPreviousVerification(ctx, thought.Content, thought.SessionID, thought.Type, thought.ConnectedIDs)
		if err != nil {
			return nil, err
		}
		report.Previous = prev
		if prev.IsVerified {
			report.Stage = StagePrevious
			report.Status = prev.Status
			report.Confidence = prev.Confidence
			report.IsVerified = true
			thought.IsVerified = true
			thought.AnnotatedContent = pre.AnnotatedText
			return report, nil
		}
	}

	result, err := p.DeepVerify(ctx, thought, len(pre.Calculations) > 0, force, thought.SessionID)
	if err != nil {
		return nil, err
	}
	report.Stage = StageDeep
	report.Status = result.Status
	report.Confidence = result.Confidence
	report.IsVerified = thought.IsVerified
	report.AnnotatedText = thought.AnnotatedContent
	report.Result = result
	return report, nil
}
