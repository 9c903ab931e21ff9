package model

import (
	"encoding/json"
	"testing"
)

func TestStatus_Valid(t *testing.T) {
	for _, s := range AllStatuses {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if Status("approved").Valid() {
		t.Error("expected unknown status to be invalid")
	}
	if ParseStatus("approved") != StatusUnverified {
		t.Error("expected unknown status to parse as unverified")
	}
	if ParseStatus("contradictory") != StatusContradictory {
		t.Error("expected contradictory to round-trip")
	}
}

func TestStatus_IsPositive(t *testing.T) {
	positive := map[Status]bool{
		StatusVerified:             true,
		StatusPartiallyVerified:    true,
		StatusAbsenceOfInformation: true,
	}
	for _, s := range AllStatuses {
		if got := s.IsPositive(); got != positive[s] {
			t.Errorf("%s.IsPositive() = %v, want %v", s, got, positive[s])
		}
	}
	if StatusAbsenceOfInformation.IsReusable() {
		t.Error("absence of information must not be reused for similar content")
	}
}

func TestValidity_JSON(t *testing.T) {
	tests := []struct {
		input string
		want  Validity
	}{
		{`true`, ValidityTrue},
		{`false`, ValidityFalse},
		{`null`, ValidityUnknown},
		{`"partial"`, ValidityPartial},
		{`"absence"`, ValidityAbsence},
		{`"no_information"`, ValidityAbsence},
		{`"maybe"`, ValidityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var v Validity
			if err := json.Unmarshal([]byte(tt.input), &v); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.input, err)
			}
			if v != tt.want {
				t.Errorf("got %q, want %q", v, tt.want)
			}
		})
	}

	var r ToolResult
	if err := json.Unmarshal([]byte(`{"isValid":"partial","details":"two of three figures match"}`), &r); err != nil {
		t.Fatalf("unmarshal tool result: %v", err)
	}
	if r.Validity() != ValidityPartial {
		t.Errorf("expected partial validity, got %q", r.Validity())
	}

	out, err := json.Marshal(ToolResult{IsValid: ValidityOf(true)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"isValid":true}` {
		t.Errorf("unexpected encoding: %s", out)
	}
}

func TestToolResult_Usable(t *testing.T) {
	tests := []struct {
		name   string
		result *ToolResult
		want   bool
	}{
		{"nil", nil, false},
		{"empty", &ToolResult{}, false},
		{"validity only", &ToolResult{IsValid: ValidityPtr(ValidityAbsence)}, true},
		{"sources only", &ToolResult{Sources: []string{"insee.fr"}}, true},
		{"details only", &ToolResult{Details: "checked"}, true},
		{"calculations only", &ToolResult{VerifiedCalculations: []CalculationResult{{Original: "1 + 1 = 2"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Usable(); got != tt.want {
				t.Errorf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerificationResult_Clone(t *testing.T) {
	orig := VerificationResult{
		Status:  StatusVerified,
		Sources: []string{"calculator: non spécifiée"},
	}
	c := orig.Clone()
	c.Sources[0] = "changed"
	if orig.Sources[0] != "calculator: non spécifiée" {
		t.Error("clone shares the sources slice with the original")
	}
}

func TestSourceCheck_Support(t *testing.T) {
	tests := []struct {
		name  string
		check SourceCheck
		want  Validity
	}{
		{"dead link", SourceCheck{IsDead: true}, ValidityFalse},
		{"unreachable", SourceCheck{}, ValidityUnknown},
		{"all keywords", SourceCheck{IsAccessible: true, Matched: []string{"inflation"}}, ValidityTrue},
		{"some keywords", SourceCheck{IsAccessible: true, Matched: []string{"inflation"}, Missing: []string{"2023"}}, ValidityPartial},
		{"silent page", SourceCheck{IsAccessible: true, Missing: []string{"inflation"}}, ValidityAbsence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check.Support(); got != tt.want {
				t.Errorf("Support() = %q, want %q", got, tt.want)
			}
		})
	}
}
