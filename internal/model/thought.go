package model

// ThoughtType classifies a thought by its role in a reasoning chain
type ThoughtType string

const (
	ThoughtRegular        ThoughtType = "regular"
	ThoughtHypothesis     ThoughtType = "hypothesis"
	ThoughtConclusion     ThoughtType = "conclusion"
	ThoughtRevision       ThoughtType = "revision"
	ThoughtMetaReflection ThoughtType = "meta_reflection"
)

// InheritsVerification reports whether a thought of this type may inherit
// a verification status from the thoughts it is connected to
func (t ThoughtType) InheritsVerification() bool {
	return t == ThoughtConclusion || t == ThoughtRevision
}

// Thought is one unit of reasoning text recorded by the assistant
type Thought struct {
	ID               string              `json:"id"`
	Content          string              `json:"content"`
	Type             ThoughtType         `json:"type"`
	SessionID        string              `json:"session_id,omitempty"`
	ConnectedIDs     []string            `json:"connected_ids,omitempty"` // thoughts this one builds on
	Verification     *VerificationResult `json:"verification,omitempty"`
	IsVerified       bool                `json:"is_verified"`
	AnnotatedContent string              `json:"annotated_content,omitempty"`
}

// VerificationStatus returns the attached verification status, or unverified
func (t Thought) VerificationStatus() Status {
	if t.Verification == nil {
		return StatusUnverified
	}
	return t.Verification.Status
}
