package sourcecheck

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Adapter narrows a fetched document to the part worth searching for a claim
type Adapter interface {
	Name() string
	CanHandle(u *url.URL) bool
	// Content returns the node holding the main content, or nil to use the whole document
	Content(doc *html.Node) *html.Node
	// Skip reports nodes whose text must not count as support (footnotes, navigation)
	Skip(n *html.Node) bool
}

// Adapters picks the first adapter that handles a URL, falling back to a generic one
type Adapters struct {
	adapters []Adapter
	generic  Adapter
}

// NewAdapters registers the built-in adapters
func NewAdapters() *Adapters {
	return &Adapters{
		adapters: []Adapter{wikipediaAdapter{}, legalAdapter{}},
		generic:  genericAdapter{},
	}
}

// Register adds an adapter ahead of the generic fallback
func (a *Adapters) Register(adapter Adapter) {
	a.adapters = append(a.adapters, adapter)
}

// For returns the adapter handling rawURL
func (a *Adapters) For(rawURL string) Adapter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return a.generic
	}
	for _, adapter := range a.adapters {
		if adapter.CanHandle(u) {
			return adapter
		}
	}
	return a.generic
}

// genericAdapter prefers <main> then <article>
type genericAdapter struct{}

func (genericAdapter) Name() string            { return "generic" }
func (genericAdapter) CanHandle(*url.URL) bool { return true }

func (genericAdapter) Content(doc *html.Node) *html.Node {
	if n := findFirst(doc, isElement("main")); n != nil {
		return n
	}
	return findFirst(doc, isElement("article"))
}

func (genericAdapter) Skip(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.Data == "nav" || n.Data == "footer" || n.Data == "header")
}

// wikipediaAdapter reads the article body without references and navboxes
type wikipediaAdapter struct{}

func (wikipediaAdapter) Name() string { return "wikipedia" }

func (wikipediaAdapter) CanHandle(u *url.URL) bool {
	return strings.HasSuffix(strings.ToLower(u.Hostname()), "wikipedia.org")
}

func (wikipediaAdapter) Content(doc *html.Node) *html.Node {
	return findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode &&
			(attr(n, "id") == "mw-content-text" || hasClass(n, "mw-parser-output"))
	})
}

func (wikipediaAdapter) Skip(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, class := range []string{"reference", "references", "navbox", "mw-editsection", "reflist"} {
		if hasClass(n, class) {
			return true
		}
	}
	return false
}

// legalAdapter handles legislation sites where the statute text sits in the body
type legalAdapter struct{}

var legalHosts = []string{"legislation.gov.uk", "law.cornell.edu", "legifrance.gouv.fr", "eur-lex.europa.eu"}

func (legalAdapter) Name() string { return "legal" }

func (legalAdapter) CanHandle(u *url.URL) bool {
	return matchesDomain(strings.ToLower(u.Hostname()), legalHosts)
}

func (legalAdapter) Content(doc *html.Node) *html.Node {
	return findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode &&
			(attr(n, "id") == "viewLegContents" || hasClass(n, "article") || n.Data == "main")
	})
}

func (legalAdapter) Skip(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.Data == "nav" || hasClass(n, "breadcrumb"))
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag }
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
