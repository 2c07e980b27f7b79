package detect

import (
	"strings"

	"golang.org/x/net/html"

	"adlens/internal/dom"
)

// adKeywords is the multilingual token list matched against id and class
// attributes. Short tokens match whole identifier tokens only; longer ones
// also match as substrings (so "sponsored-content" and "adsbygoogle" both
// hit without "shadow" or "header" false-positives on "ad").
var adKeywords = []string{
	"ad", "ads", "adv", "advert", "advertisement", "advertising",
	"adsense", "adsbygoogle", "adslot", "adunit", "adbox", "adframe",
	"sponsor", "sponsored", "banner", "promo", "promotion", "doubleclick",
	"werbung", "anzeige", "reklame", "publicidad", "anuncio", "publicite",
	"pub", "reklama", "reklam", "annons", "mainos", "advertentie",
	"広告", "광고", "广告",
}

// adNetworkAttrs are attribute names ad-serving scripts stamp onto their
// containers.
var adNetworkAttrs = []string{
	"data-ad-client", "data-ad-slot", "data-ad-format", "data-ad-unit",
	"data-adsbygoogle-status", "data-google-query-id", "data-adunit",
	"data-ad-zone", "data-ad-region", "data-taboola-id", "data-outbrain-id",
}

// adServingDomains are substring matches against iframe sources.
var adServingDomains = []string{
	"doubleclick.net", "googlesyndication.com", "googleadservices.com",
	"adnxs.com", "amazon-adsystem.com", "taboola.com", "outbrain.com",
	"criteo.com", "criteo.net", "rubiconproject.com", "pubmatic.com",
	"openx.net", "adroll.com", "yieldmanager", "adform.net", "smartadserver.com",
}

// supplementaryRoles are ARIA roles for regions pages habitually reserve for
// promotional content.
var supplementaryRoles = map[string]bool{
	"banner":        true,
	"complementary": true,
}

func defaultDetectors(extraKeywords []string) []Detector {
	keywords := append(append([]string(nil), adKeywords...), extraKeywords...)
	return []Detector{
		{Name: "keyword", Match: keywordMatcher(keywords)},
		{Name: "ad-attribute", Match: matchAdAttribute},
		{Name: "ad-iframe", Match: matchAdIframe},
		{Name: "popup-anchor", Match: matchPopupAnchor},
		{Name: "aria-role", Match: matchSupplementaryRole},
		{Name: "pinned", Match: matchPinned},
	}
}

func keywordMatcher(keywords []string) func(n *html.Node) bool {
	short := map[string]bool{}
	var long []string
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		// Short ASCII tokens ("ad") are too common inside unrelated words;
		// they match whole tokens only. Non-ASCII keywords are specific at
		// any length, so they match as substrings like the long ones.
		if len([]rune(kw)) < 6 && len(kw) == len([]rune(kw)) {
			short[kw] = true
		} else {
			long = append(long, kw)
		}
	}
	return func(n *html.Node) bool {
		ident := strings.ToLower(dom.Attr(n, "id") + " " + dom.Attr(n, "class"))
		if strings.TrimSpace(ident) == "" {
			return false
		}
		for _, tok := range splitIdent(ident) {
			if short[tok] {
				return true
			}
		}
		for _, kw := range long {
			if strings.Contains(ident, kw) {
				return true
			}
		}
		return false
	}
}

// splitIdent breaks identifier values on the usual word boundaries:
// "top-ad-banner" and "topAdBanner" both yield an "ad" token.
func splitIdent(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	prevLower := false
	for _, r := range s {
		isUpper := r >= 'A' && r <= 'Z'
		alnum := isUpper || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r >= 0x80
		if !alnum {
			flush()
			prevLower = false
			continue
		}
		if isUpper && prevLower {
			flush()
		}
		if isUpper {
			r += 'a' - 'A'
		}
		cur.WriteRune(r)
		prevLower = !isUpper
	}
	flush()
	return toks
}

func matchAdAttribute(n *html.Node) bool {
	for _, name := range adNetworkAttrs {
		if dom.HasAttr(n, name) {
			return true
		}
	}
	return false
}

func matchAdIframe(n *html.Node) bool {
	if n.Data != "iframe" {
		return false
	}
	src := strings.ToLower(dom.Attr(n, "src"))
	if src == "" {
		src = strings.ToLower(dom.Attr(n, "data-src"))
	}
	for _, domain := range adServingDomains {
		if strings.Contains(src, domain) {
			return true
		}
	}
	return false
}

// matchPopupAnchor flags links that open a new context and wrap an image,
// the classic clickable creative.
func matchPopupAnchor(n *html.Node) bool {
	if n.Data != "a" || dom.Attr(n, "target") != "_blank" {
		return false
	}
	hasImg := false
	dom.Walk(n, func(c *html.Node) bool {
		if c != n && c.Type == html.ElementNode && (c.Data == "img" || c.Data == "picture") {
			hasImg = true
			return false
		}
		return true
	})
	return hasImg
}

func matchSupplementaryRole(n *html.Node) bool {
	return supplementaryRoles[strings.ToLower(dom.Attr(n, "role"))]
}

// matchPinned flags inline fixed/sticky positioning pinned to a viewport
// edge. Stylesheet-driven pinning is only observable in the live layout
// probe, so this detector covers the inline case.
func matchPinned(n *html.Node) bool {
	style := normalizeStyle(dom.Attr(n, "style"))
	if !styleHas(style, "position", "fixed") && !styleHas(style, "position", "sticky") {
		return false
	}
	for _, edge := range []string{"top", "bottom", "left", "right"} {
		if v, ok := styleValue(style, edge); ok && isZeroLength(v) {
			return true
		}
	}
	return false
}

// normalizeStyle lowercases and strips whitespace so declaration lookups are
// plain string work.
func normalizeStyle(style string) map[string]string {
	out := map[string]string{}
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func styleHas(style map[string]string, prop, val string) bool {
	return style[prop] == val
}

func styleValue(style map[string]string, prop string) (string, bool) {
	v, ok := style[prop]
	return v, ok
}

func isZeroLength(v string) bool {
	switch v {
	case "0", "0px", "0%", "0em", "0rem":
		return true
	}
	return false
}
