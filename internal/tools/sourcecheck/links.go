package sourcecheck

import (
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/ppiankov/verity/internal/model"
)

const maxKeywords = 8

var (
	urlPattern     = regexp.MustCompile(`https?://[^\s<>"'\x60\]\)]+`)
	numberPattern  = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	wordPattern    = regexp.MustCompile(`\p{L}{4,}`)
	trailingPunct  = ".,;:!?»”"
	keywordStoplst = map[string]bool{
		// english
		"according": true, "about": true, "also": true, "from": true, "have": true,
		"into": true, "more": true, "page": true, "said": true, "says": true,
		"shows": true, "source": true, "than": true, "that": true, "their": true,
		"there": true, "these": true, "this": true, "were": true, "what": true,
		"when": true, "which": true, "with": true, "would": true,
		// french
		"selon": true, "avec": true, "dans": true, "pour": true, "sont": true,
		"cette": true, "leur": true, "plus": true, "comme": true, "mais": true,
		"voir": true, "était": true, "être": true, "ainsi": true, "aussi": true,
		"depuis": true, "entre": true, "donc": true, "sous": true, "vers": true,
	}
)

// ExtractSources finds the URLs cited in text. Each source carries the
// surrounding sentence, with URLs removed, as its anchor.
func ExtractSources(text string) []model.CitedSource {
	seen := make(map[string]bool)
	var sources []model.CitedSource

	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		raw := strings.TrimRight(text[loc[0]:loc[1]], trailingPunct)
		if raw == "" || seen[raw] {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			continue
		}
		seen[raw] = true

		anchor := urlPattern.ReplaceAllString(sentenceAt(text, loc[0], loc[0]+len(raw)), "")
		sources = append(sources, model.CitedSource{
			URL:    raw,
			Host:   strings.ToLower(parsed.Hostname()),
			Anchor: strings.Join(strings.Fields(anchor), " "),
		})
	}
	return sources
}

// sentenceAt returns the sentence of text that contains [start, end)
func sentenceAt(text string, start, end int) string {
	from := 0
	for i := start - 1; i > 0; i-- {
		if text[i] == '\n' {
			from = i + 1
			break
		}
		if isSpace(text[i]) && isTerminator(text[i-1]) {
			from = i + 1
			break
		}
	}

	to := len(text)
	for i := end; i < len(text); i++ {
		if text[i] == '\n' {
			to = i
			break
		}
		if isTerminator(text[i]) && (i+1 == len(text) || isSpace(text[i+1])) {
			to = i + 1
			break
		}
	}
	return text[from:to]
}

func isTerminator(b byte) bool { return b == '.' || b == '!' || b == '?' }

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// Keywords picks the distinctive words and numbers of a claim, lowercased,
// in order of appearance
func Keywords(claim string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(kw string) {
		if len(out) >= maxKeywords || seen[kw] {
			return
		}
		seen[kw] = true
		out = append(out, kw)
	}

	for _, n := range numberPattern.FindAllString(claim, -1) {
		add(n)
	}
	for _, w := range wordPattern.FindAllString(claim, -1) {
		w = strings.ToLower(w)
		if keywordStoplst[w] {
			continue
		}
		add(w)
	}
	return out
}

// MatchKeywords splits keywords into those present in text and those absent.
// Decimal separators are interchangeable for numbers.
func MatchKeywords(text string, keywords []string) (matched, missing []string) {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if containsKeyword(lower, kw) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}
	return matched, missing
}

func containsKeyword(text, kw string) bool {
	if strings.Contains(text, kw) {
		return true
	}
	if numberPattern.MatchString(kw) {
		swapped := strings.NewReplacer(",", ".", ".", ",").Replace(kw)
		return strings.Contains(text, swapped)
	}
	return false
}

// VisibleText parses an HTML document and returns its human-visible text
// with whitespace collapsed
func VisibleText(r io.Reader) (string, error) {
	return AdaptedText(r, nil)
}

// AdaptedText is VisibleText restricted by adapter to the main content.
// A nil adapter keeps the whole document.
func AdaptedText(r io.Reader, adapter Adapter) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	root := doc
	if adapter != nil {
		if content := adapter.Content(doc); content != nil {
			root = content
		}
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template", "svg":
				return
			}
		}
		if adapter != nil && adapter.Skip(n) {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimFunc(n.Data, unicode.IsSpace); t != "" {
				b.WriteString(t)
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return strings.Join(strings.Fields(b.String()), " "), nil
}
