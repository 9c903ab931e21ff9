package model

import "time"

// CitedSource is a URL referenced inside a thought
type CitedSource struct {
	URL       string        `json:"url"`
	Host      string        `json:"host,omitempty"`
	Anchor    string        `json:"anchor,omitempty"` // surrounding words, used as the claim context
	Authority AuthorityTier `json:"authority,omitempty"`
}

// AuthorityTier ranks how authoritative a source domain is
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0
	TierPrimary   AuthorityTier = 1 // statutes, papers, statistics offices
	TierSecondary AuthorityTier = 2 // encyclopedias, major media
	TierTertiary  AuthorityTier = 3 // blogs, everything else
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// Weight converts the tier into a confidence multiplier
func (t AuthorityTier) Weight() float64 {
	switch t {
	case TierPrimary:
		return 1.0
	case TierSecondary:
		return 0.85
	case TierTertiary:
		return 0.6
	default:
		return 0.5
	}
}

// SourceCheck is the outcome of fetching one cited source
type SourceCheck struct {
	URL          string        `json:"url"`
	IsAccessible bool          `json:"is_accessible"`
	StatusCode   int           `json:"status_code,omitempty"`
	IsDead       bool          `json:"is_dead"` // 404, 410, or unreachable
	RedirectURL  string        `json:"redirect_url,omitempty"`
	LastModified *time.Time    `json:"last_modified,omitempty"`
	Authority    AuthorityTier `json:"authority"`
	BlockedBy    string        `json:"blocked_by,omitempty"` // "robots.txt" when fetching was disallowed
	Matched      []string      `json:"matched,omitempty"`    // claim keywords found in the page text
	Missing      []string      `json:"missing,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Support classifies how well the fetched page backs the claim keywords
func (c SourceCheck) Support() Validity {
	switch {
	case c.IsDead:
		return ValidityFalse
	case !c.IsAccessible:
		return ValidityUnknown
	case len(c.Matched) > 0 && len(c.Missing) == 0:
		return ValidityTrue
	case len(c.Matched) > 0:
		return ValidityPartial
	default:
		return ValidityAbsence
	}
}
