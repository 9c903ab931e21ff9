package tools

import "github.com/ppiankov/verity/internal/characterize"

const (
	maxRecommended        = 3
	lowConfidenceBoundary = 0.5
)

// Requirements says how much corroboration a text needs
type Requirements struct {
	RequiresMultiple bool     `json:"requires_multiple"`
	RecommendedCount int      `json:"recommended_count"`
	Reasons          []string `json:"reasons,omitempty"`
}

// Advisor decides how many independent verifications a text deserves
type Advisor interface {
	DetermineVerificationRequirements(text string, prior *float64) Requirements
}

// RuleAdvisor derives requirements from the text's characteristics
type RuleAdvisor struct {
	characterizer *characterize.Characterizer
}

// NewRuleAdvisor creates a rule-based advisor
func NewRuleAdvisor() *RuleAdvisor {
	return &RuleAdvisor{characterizer: characterize.New()}
}

// DetermineVerificationRequirements adds one reason per statistic, external
// reference or factual claim. Two reasons, or a prior confidence under 0.5,
// call for several verifications.
func (a *RuleAdvisor) DetermineVerificationRequirements(text string, prior *float64) Requirements {
	c := a.characterizer.Characterize(text)

	var reasons []string
	if c.Statistic {
		reasons = append(reasons, "contient des données statistiques")
	}
	if c.ExternalReference {
		reasons = append(reasons, "cite des sources externes")
	}
	if c.FactualClaim {
		reasons = append(reasons, "affirme des faits vérifiables")
	}

	count := 1 + len(reasons)
	if count > maxRecommended {
		count = maxRecommended
	}
	return Requirements{
		RequiresMultiple: len(reasons) >= 2 || (prior != nil && *prior < lowConfidenceBoundary),
		RecommendedCount: count,
		Reasons:          reasons,
	}
}
