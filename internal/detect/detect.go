// Package detect implements the local heuristic candidate scanner: a set of
// independent structural detectors that nominate elements likely to be
// advertisements, before any AI confirmation happens.
package detect

import (
	"golang.org/x/net/html"

	"adlens/internal/dom"
)

// Candidate pairs a stable selector with a point-in-time snapshot of the
// element's subtree. The selector resolves to exactly the element it was
// derived from at creation time; the markup is never re-read from the page.
type Candidate struct {
	Selector string `json:"selector"`
	Markup   string `json:"markup"`
}

// Nomination records which detector flagged an element and why.
type Nomination struct {
	Node   *html.Node
	Reason string
}

// Detector is one independent structural heuristic. Detectors never veto
// each other; dedup happens after all of them have run.
type Detector struct {
	Name  string
	Match func(n *html.Node) bool
}

// Config tunes the scanner. The zero value is usable.
type Config struct {
	// MaxCandidates caps the candidate set before classification; AI calls
	// are cost-sensitive. 0 means the default cap.
	MaxCandidates int

	// ExtraKeywords extends the built-in multilingual keyword list.
	ExtraKeywords []string
}

const defaultMaxCandidates = 20

// Scanner walks a document once and applies every detector to every element.
type Scanner struct {
	detectors []Detector
	max       int
}

// NewScanner builds a scanner with the full default detector set.
func NewScanner(cfg Config) *Scanner {
	max := cfg.MaxCandidates
	if max <= 0 {
		max = defaultMaxCandidates
	}
	return &Scanner{
		detectors: defaultDetectors(cfg.ExtraKeywords),
		max:       max,
	}
}

// Scan nominates elements, filters obviously invisible ones, and dedupes by
// selector. Last nomination wins on markup capture; content is a snapshot
// either way. An empty document yields an empty set, not an error.
func (s *Scanner) Scan(doc *html.Node) []Candidate {
	noms := s.Nominate(doc)

	var out []Candidate
	index := map[string]int{}
	for _, nom := range noms {
		sel := dom.Selector(nom.Node)
		if sel == "" {
			continue
		}
		c := Candidate{Selector: sel, Markup: dom.Render(nom.Node)}
		if i, ok := index[sel]; ok {
			out[i] = c
			continue
		}
		if len(out) >= s.max {
			continue
		}
		index[sel] = len(out)
		out = append(out, c)
	}
	return out
}

// Nominate runs every detector over every element, skipping elements that are
// statically hidden or non-visual. Each detector nominates independently.
func (s *Scanner) Nominate(doc *html.Node) []Nomination {
	var noms []Nomination
	for _, el := range dom.Elements(doc) {
		if staticallyHidden(el) || nonVisual(el) {
			continue
		}
		for _, d := range s.detectors {
			if d.Match(el) {
				noms = append(noms, Nomination{Node: el, Reason: d.Name})
			}
		}
	}
	return noms
}

// staticallyHidden filters what can be known without layout: display:none,
// the hidden attribute, aria-hidden. The live layout filter handles the rest.
func staticallyHidden(n *html.Node) bool {
	if dom.HasAttr(n, "hidden") {
		return true
	}
	if dom.Attr(n, "aria-hidden") == "true" {
		return true
	}
	style := normalizeStyle(dom.Attr(n, "style"))
	return styleHas(style, "display", "none")
}

func nonVisual(n *html.Node) bool {
	switch n.Data {
	case "html", "head", "body", "script", "style", "link", "meta", "title", "noscript", "template", "base":
		return true
	}
	return false
}
