package sourcecheck

import (
	"testing"

	"github.com/ppiankov/verity/internal/model"
)

func TestAuthorityClassifier_Classify(t *testing.T) {
	classifier := NewAuthorityClassifier(&model.AuthorityConfig{
		PrimaryDomains:   []string{"insee.fr", "doi.org"},
		SecondaryDomains: []string{"wikipedia.org", "lemonde.fr"},
		PathPatterns: []model.PathPattern{
			{Pattern: "/statistiques/", Tier: "primary"},
			{Pattern: "([", Tier: "primary"}, // invalid, skipped
		},
		DomainMap: map[string]string{
			"example-news.com": "secondary",
			"blog.insee.fr":    "3",
		},
	})

	tests := []struct {
		url      string
		expected model.AuthorityTier
		desc     string
	}{
		{"https://insee.fr/fr/statistiques", model.TierPrimary, "primary exact"},
		{"https://www.insee.fr/fr/accueil", model.TierPrimary, "primary subdomain"},
		{"https://doi.org:443/10.1000/xyz", model.TierPrimary, "port is ignored"},
		{"https://fr.wikipedia.org/wiki/Lyon", model.TierSecondary, "secondary subdomain"},
		{"https://example-news.com/a", model.TierSecondary, "domain map wins"},
		{"https://blog.insee.fr/post", model.TierTertiary, "domain map beats primary suffix"},
		{"https://example.com/statistiques/pop", model.TierPrimary, "path pattern"},
		{"https://whitehouse.gov/briefing", model.TierPrimary, ".gov"},
		{"https://mit.edu/research", model.TierPrimary, ".edu"},
		{"https://ox.ac.uk/research", model.TierPrimary, ".ac.uk"},
		{"https://notinsee.fr/x", model.TierTertiary, "suffix must follow a dot"},
		{"https://randomsite.com/page", model.TierTertiary, "unknown domain"},
		{"not-a-url", model.TierTertiary, "no host"},
		{"", model.TierTertiary, "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := classifier.Classify(tt.url); got != tt.expected {
				t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestAuthorityClassifier_Defaults(t *testing.T) {
	classifier := NewAuthorityClassifier(nil)
	if classifier == nil {
		t.Fatal("Expected classifier with default config")
	}
	if got := classifier.Classify("https://oxford.ac.uk/"); got != model.TierPrimary {
		t.Errorf("Expected primary for academic domain, got %v", got)
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		input    string
		expected model.AuthorityTier
	}{
		{"primary", model.TierPrimary},
		{"PRIMARY", model.TierPrimary},
		{"1", model.TierPrimary},
		{" secondary ", model.TierSecondary},
		{"2", model.TierSecondary},
		{"tertiary", model.TierTertiary},
		{"3", model.TierTertiary},
		{"bogus", model.TierTertiary},
		{"", model.TierTertiary},
	}
	for _, tt := range tests {
		if got := ParseTier(tt.input); got != tt.expected {
			t.Errorf("ParseTier(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
