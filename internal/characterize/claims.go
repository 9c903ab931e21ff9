package characterize

import (
	"strings"
	"unicode/utf8"
)

// Claim is a sentence that carries at least one verifiable axis
type Claim struct {
	Text      string `json:"text"`
	Heuristic string `json:"heuristic"` // axis that selected the sentence
	Sentence  int    `json:"sentence"`  // index in SplitSentences output
}

const (
	minSentenceRunes = 8
	maxSentenceRunes = 600
)

// SplitSentences splits text on sentence terminators followed by
// whitespace, so decimals like 3.5 and URLs stay intact
func SplitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		current.Reset()
		n := utf8.RuneCountInString(sentence)
		if n >= minSentenceRunes && n <= maxSentenceRunes {
			sentences = append(sentences, sentence)
		}
	}

	for i, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' || r == '…' {
			next := i + utf8.RuneLen(r)
			if next >= len(text) || text[next] == ' ' || text[next] == '\t' || text[next] == '\n' {
				flush()
			}
		}
	}
	flush()

	return sentences
}

// ExtractClaims returns the sentences of text that are worth verifying:
// statistics, references, calculations and factual statements. Opinions
// without any of those are skipped.
func (c *Characterizer) ExtractClaims(text string) []Claim {
	var claims []Claim
	seen := make(map[string]bool)

	for i, sentence := range SplitSentences(text) {
		key := strings.ToLower(sentence)
		if seen[key] {
			continue
		}

		ch := c.Characterize(sentence)
		heuristic := ""
		switch {
		case ch.Calculation:
			heuristic = "calculation"
		case ch.Statistic:
			heuristic = "statistic"
		case ch.ExternalReference:
			heuristic = "external_reference"
		case ch.FactualClaim:
			heuristic = "factual_claim"
		default:
			continue
		}

		seen[key] = true
		claims = append(claims, Claim{Text: sentence, Heuristic: heuristic, Sentence: i})
	}

	return claims
}
