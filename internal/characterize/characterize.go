package characterize

import (
	"regexp"
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

var (
	factualPattern = regexp.MustCompile(`(?i)` + words(
		"is the", "is a", "is an", "are the", "was the", "was a", "were the", "has been", "have been",
		"according to", "founded", "invented", "discovered", "established", "located in", "capital of",
		"est le", "est la", "est un", "est une", "sont les", "était", "a été", "ont été",
		"selon", "d'après", "fondé", "fondée", "inventé", "découvert", "situé", "située", "capitale de",
	) + `|(?:^|\D)(?:in|en|since|depuis) (?:1\d|20)\d\d`)

	statisticPattern = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s*(?:%|percent|pour ?cent|millions?|billions?|milliards?|thousand|mille|km|kg|m²|°c|€|\$|£)|` +
		words("average", "median", "moyenne", "médiane", "rate", "taux", "ratio", "statistic", "statistics",
			"statistique", "statistiques", "survey", "sondage", "per capita", "par habitant"))

	opinionPattern = regexp.MustCompile(`(?i)` + words(
		"i think", "i believe", "in my opinion", "it seems", "probably", "perhaps", "maybe", "arguably",
		"should", "best", "worst", "beautiful",
		"je pense", "je crois", "à mon avis", "il semble", "probablement", "peut-être", "sans doute",
		"devrait", "meilleur", "pire",
	))

	referencePattern = regexp.MustCompile(`(?i)https?://\S+|www\.\S+|doi:\s*\S+|\[\d+\]|` + words(
		"according to", "cited in", "reported by", "published in", "study", "paper", "report",
		"selon", "d'après", "cité par", "rapporté par", "publié dans", "étude", "rapport", "source",
	))

	calculationPattern = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\)*\s*[-+*/^×÷x]\s*\(*\d+(?:[.,]\d+)?[^=\n]*=|` +
		`\b[a-z]\s*\(\s*[a-z]\s*\)\s*=|` +
		words("calculate", "compute", "calculer", "calcul", "sum of", "somme de", "product of", "produit de"))
)

// words builds an alternation matched on letter boundaries, which unlike
// \b also holds for accented letters
func words(list ...string) string {
	quoted := make([]string, len(list))
	for i, w := range list {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return `(?:^|[^\p{L}\d])(?:` + strings.Join(quoted, "|") + `)(?:[^\p{L}\d]|$)`
}

// Characterizer classifies text along independent claim axes
type Characterizer struct{}

// New creates a characterizer
func New() *Characterizer {
	return &Characterizer{}
}

// Characterize runs the five pattern checks on text. It never fails.
func (c *Characterizer) Characterize(text string) model.Characteristics {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Characteristics{}
	}
	return model.Characteristics{
		FactualClaim:      factualPattern.MatchString(text),
		Statistic:         statisticPattern.MatchString(text),
		Opinion:           opinionPattern.MatchString(text),
		ExternalReference: referencePattern.MatchString(text),
		Calculation:       calculationPattern.MatchString(text),
	}
}

// HasCalculation is a shortcut for the calculation axis alone
func (c *Characterizer) HasCalculation(text string) bool {
	return calculationPattern.MatchString(text)
}
