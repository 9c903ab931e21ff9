package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// VerificationResult is the aggregated verdict for one piece of content.
// Values are immutable once produced; use Clone before handing one out of a cache.
type VerificationResult struct {
	Status               Status              `json:"status"`
	Confidence           float64             `json:"confidence"`                      // 0..1
	Sources              []string            `json:"sources"`                         // "<tool>: <source>", tool order
	VerificationSteps    []string            `json:"verification_steps"`              // human-readable audit of what ran
	Contradictions       []string            `json:"contradictions,omitempty"`        // at most MaxContradictions entries
	Notes                string              `json:"notes"`                           // tallies and explanations
	VerifiedCalculations []CalculationResult `json:"verified_calculations,omitempty"` // inline arithmetic checks
	Timestamp            time.Time           `json:"timestamp"`
}

// Clone returns a deep copy so cached values cannot be mutated through the copy
func (r VerificationResult) Clone() VerificationResult {
	out := r
	out.Sources = append([]string(nil), r.Sources...)
	out.VerificationSteps = append([]string(nil), r.VerificationSteps...)
	out.Contradictions = append([]string(nil), r.Contradictions...)
	out.VerifiedCalculations = append([]CalculationResult(nil), r.VerifiedCalculations...)
	return out
}

// CalculationResult describes one arithmetic span found in text
type CalculationResult struct {
	Original         string `json:"original"`                    // exact substring matched in the source text
	IsCorrect        bool   `json:"is_correct"`                  // claimed value matches the evaluated value
	Verified         string `json:"verified"`                    // human-readable verdict
	Result           string `json:"result"`                      // evaluated value (numeric or symbolic)
	Pending          bool   `json:"pending,omitempty"`           // no claimed value to compare yet
	FunctionNotation bool   `json:"function_notation,omitempty"` // f(x) style definition, not a claim
}

// Validity is the verdict a single verification tool reports
type Validity string

const (
	ValidityTrue    Validity = "true"
	ValidityFalse   Validity = "false"
	ValidityPartial Validity = "partial"
	ValidityAbsence Validity = "absence"
	ValidityUnknown Validity = "unknown"
)

// ValidityOf converts a boolean verdict into a Validity pointer
func ValidityOf(valid bool) *Validity {
	v := ValidityFalse
	if valid {
		v = ValidityTrue
	}
	return &v
}

// ValidityPtr returns a pointer to v
func ValidityPtr(v Validity) *Validity {
	return &v
}

// MarshalJSON encodes true/false as JSON booleans and the other verdicts as strings
func (v Validity) MarshalJSON() ([]byte, error) {
	switch v {
	case ValidityTrue:
		return []byte("true"), nil
	case ValidityFalse:
		return []byte("false"), nil
	case ValidityUnknown, "":
		return []byte("null"), nil
	default:
		return json.Marshal(string(v))
	}
}

// UnmarshalJSON accepts booleans, null and the string verdicts tools emit
func (v *Validity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		*v = ValidityTrue
		return nil
	case "false":
		*v = ValidityFalse
		return nil
	case "null":
		*v = ValidityUnknown
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode validity: %w", err)
	}
	switch s {
	case "true", "valid", "verified":
		*v = ValidityTrue
	case "false", "invalid", "contradicted":
		*v = ValidityFalse
	case "partial", "partially_verified":
		*v = ValidityPartial
	case "absence", "absence_of_information", "no_information":
		*v = ValidityAbsence
	default:
		*v = ValidityUnknown
	}
	return nil
}

// ToolResult is the tool-specific payload returned by a verification tool
type ToolResult struct {
	IsValid              *Validity           `json:"isValid,omitempty"`
	Sources              []string            `json:"sources,omitempty"`
	Details              string              `json:"details,omitempty"`
	VerifiedCalculations []CalculationResult `json:"verifiedCalculations,omitempty"`
}

// Validity returns the reported verdict, treating a missing flag as unknown
func (r *ToolResult) Validity() Validity {
	if r == nil || r.IsValid == nil {
		return ValidityUnknown
	}
	return *r.IsValid
}

// Usable reports whether the result carries anything an aggregator can use.
// Only a result missing validity, calculations, sources and details at once is unusable.
func (r *ToolResult) Usable() bool {
	if r == nil {
		return false
	}
	return r.IsValid != nil ||
		len(r.VerifiedCalculations) > 0 ||
		len(r.Sources) > 0 ||
		r.Details != ""
}

// ToolOutcome is one tool's answer within a single deep verification
type ToolOutcome struct {
	ToolName   string     `json:"tool_name"`
	Result     ToolResult `json:"result"`
	Confidence float64    `json:"confidence"`
	Stage      string     `json:"stage"`
}

// PreviousVerification is the answer to "has this content been verified before"
type PreviousVerification struct {
	IsVerified bool      `json:"is_verified"`
	Status     Status    `json:"status"`
	Confidence float64   `json:"confidence"`
	Sources    []string  `json:"sources,omitempty"`
	Similarity float64   `json:"similarity"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	FromCache  bool      `json:"from_cache,omitempty"`
}

// PreliminaryResult is the outcome of the calculation-only fast path
type PreliminaryResult struct {
	Status                Status              `json:"status"`
	Confidence            float64             `json:"confidence"`
	Calculations          []CalculationResult `json:"calculations,omitempty"`
	AnnotatedText         string              `json:"annotated_text"`
	NeedsDeepVerification bool                `json:"needs_deep_verification"`
	Characteristics       Characteristics     `json:"characteristics"`
}

// Characteristics records which claim axes a text span exhibits
type Characteristics struct {
	FactualClaim      bool `json:"factual_claim"`
	Statistic         bool `json:"statistic"`
	Opinion           bool `json:"opinion"`
	ExternalReference bool `json:"external_reference"`
	Calculation       bool `json:"calculation"`
}

// Count returns how many axes are set
func (c Characteristics) Count() int {
	n := 0
	for _, set := range []bool{c.FactualClaim, c.Statistic, c.Opinion, c.ExternalReference, c.Calculation} {
		if set {
			n++
		}
	}
	return n
}
