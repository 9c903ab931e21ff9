package sourcecheck

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

// AuthorityClassifier assigns cited sources to authority tiers
type AuthorityClassifier struct {
	domainMap map[string]model.AuthorityTier
	primary   []string
	secondary []string
	paths     []pathRule
}

type pathRule struct {
	re   *regexp.Regexp
	tier model.AuthorityTier
}

// academic and government suffixes that count as primary without configuration
var institutionalSuffixes = []string{".gov", ".edu", ".ac.uk", ".gouv.fr"}

// NewAuthorityClassifier builds a classifier; nil config uses the defaults.
// Path patterns that fail to compile are skipped.
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Authority
	}

	c := &AuthorityClassifier{
		domainMap: make(map[string]model.AuthorityTier, len(config.DomainMap)),
		primary:   lowerAll(config.PrimaryDomains),
		secondary: lowerAll(config.SecondaryDomains),
	}
	for host, tier := range config.DomainMap {
		c.domainMap[strings.ToLower(host)] = ParseTier(tier)
	}
	for _, p := range config.PathPatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		c.paths = append(c.paths, pathRule{re: re, tier: ParseTier(p.Tier)})
	}
	return c
}

// Classify returns the tier for rawURL. Unparseable URLs are tertiary.
func (c *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return model.TierTertiary
	}
	host := strings.ToLower(parsed.Hostname())

	if tier, ok := c.domainMap[host]; ok {
		return tier
	}
	if matchesDomain(host, c.primary) {
		return model.TierPrimary
	}
	if matchesDomain(host, c.secondary) {
		return model.TierSecondary
	}
	for _, rule := range c.paths {
		if rule.re.MatchString(parsed.Path) {
			return rule.tier
		}
	}
	for _, suffix := range institutionalSuffixes {
		if strings.HasSuffix(host, suffix) {
			return model.TierPrimary
		}
	}
	return model.TierTertiary
}

// ParseTier converts "primary"/"1", "secondary"/"2" and anything else to a tier
func ParseTier(s string) model.AuthorityTier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}

func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
