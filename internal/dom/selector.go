package dom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Selector resolution errors. Callers treat both as soft failures: the item
// the selector belonged to is skipped, never the whole scan.
var (
	ErrBadSelector = errors.New("dom: unsupported selector syntax")
	ErrNoMatch     = errors.New("dom: selector matched no element")
)

// Selector derives a selector that re-locates el in a later query of the same
// document. An id attribute wins unconditionally, even when it looks
// auto-generated; otherwise the element is addressed by a structural path of
// tag:nth-of-type steps rooted at body. A detached element still yields the
// best-effort path so callers can fail softly at query time.
func Selector(el *html.Node) string {
	if el == nil || el.Type != html.ElementNode {
		return ""
	}
	if id := Attr(el, "id"); id != "" {
		return "#" + EscapeIdent(id)
	}

	var steps []string
	rooted := false
	for n := el; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if n.Data == "body" {
			rooted = true
			break
		}
		if n.Data == "html" {
			break
		}
		steps = append([]string{fmt.Sprintf("%s:nth-of-type(%d)", n.Data, nthOfType(n))}, steps...)
	}
	if len(steps) == 0 {
		if rooted {
			return "body"
		}
		return el.Data
	}
	if rooted {
		return "body " + strings.Join(steps, " ")
	}
	return strings.Join(steps, " ")
}

// nthOfType returns the 1-based position of n among same-tag element siblings.
func nthOfType(n *html.Node) int {
	k := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			k++
		}
	}
	return k
}

// EscapeIdent escapes a string for use as a CSS identifier, following the
// CSS.escape algorithm: syntactically significant characters (colons, dots,
// brackets and so on) are backslash-escaped, a digit at the start (or right
// after a leading hyphen) becomes a hex escape.
func EscapeIdent(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == 0:
			b.WriteRune('�')
		case r >= '0' && r <= '9' && i == 0:
			fmt.Fprintf(&b, "\\%x ", r)
		case r >= '0' && r <= '9' && i == 1 && s[0] == '-':
			fmt.Fprintf(&b, "\\%x ", r)
		case r == '-' && i == 0 && len(s) == 1:
			b.WriteString("\\-")
		case r >= 0x80 || r == '-' || r == '_' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unescapeIdent reverses EscapeIdent. Hex escapes consume an optional
// trailing space, per CSS syntax.
func unescapeIdent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			i++
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		if isHexDigit(s[i]) {
			j := i
			for j < len(s) && j < i+6 && isHexDigit(s[j]) {
				j++
			}
			v, err := strconv.ParseInt(s[i:j], 16, 32)
			if err == nil {
				b.WriteRune(rune(v))
			}
			i = j
			if i < len(s) && s[i] == ' ' {
				i++
			}
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// step is one compound selector in a descendant chain.
type step struct {
	tag     string
	id      string
	classes []string
	nth     int // 0 means no :nth-of-type constraint
}

func (st step) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if st.tag != "" && st.tag != "*" && n.Data != st.tag {
		return false
	}
	if st.id != "" && Attr(n, "id") != st.id {
		return false
	}
	if len(st.classes) > 0 {
		have := Classes(n)
		for _, want := range st.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	if st.nth > 0 && nthOfType(n) != st.nth {
		return false
	}
	return true
}

// Resolve finds the first element in document order matching the selector.
// The supported grammar covers everything Selector emits plus simple
// tag/#id/.class compounds joined by descendant combinators; anything richer
// belongs to the browser's CSS engine and yields ErrBadSelector here.
func Resolve(doc *html.Node, selector string) (*html.Node, error) {
	steps, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}
	var found *html.Node
	Walk(doc, func(n *html.Node) bool {
		if matchChain(n, steps) {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return found, nil
}

// matchChain tests the final step on n, then walks ancestors greedily for the
// preceding steps. Greedy up-walk is sound for descendant combinators.
func matchChain(n *html.Node, steps []step) bool {
	last := len(steps) - 1
	if !steps[last].matches(n) {
		return false
	}
	a := n.Parent
	for i := last - 1; i >= 0; i-- {
		for {
			if a == nil {
				return false
			}
			if steps[i].matches(a) {
				a = a.Parent
				break
			}
			a = a.Parent
		}
	}
	return true
}

func parseSelector(selector string) ([]step, error) {
	sel := strings.TrimSpace(selector)
	if sel == "" {
		return nil, ErrBadSelector
	}
	// Combinators other than descent are out of scope for the offline
	// resolver; the live page handles full CSS.
	if strings.ContainsAny(sel, ">+~,") {
		return nil, fmt.Errorf("%w: %s", ErrBadSelector, selector)
	}
	// An id selector may contain spaces inside escape sequences (an escaped
	// space, or the terminator of a hex escape); treat a single leading '#'
	// token as one step rather than splitting on whitespace.
	if strings.HasPrefix(sel, "#") && !strings.Contains(stripEscapes(sel), " ") {
		return []step{{id: unescapeIdent(sel[1:])}}, nil
	}
	var steps []step
	for _, tok := range strings.Fields(sel) {
		st, err := parseStep(tok)
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	if len(steps) == 0 {
		return nil, ErrBadSelector
	}
	return steps, nil
}

func parseStep(tok string) (step, error) {
	var st step
	rest := tok
	if i := strings.Index(rest, ":nth-of-type("); i >= 0 {
		end := strings.Index(rest[i:], ")")
		if end < 0 {
			return st, fmt.Errorf("%w: %s", ErrBadSelector, tok)
		}
		k, err := strconv.Atoi(rest[i+len(":nth-of-type(") : i+end])
		if err != nil || k < 1 {
			return st, fmt.Errorf("%w: %s", ErrBadSelector, tok)
		}
		st.nth = k
		rest = rest[:i] + rest[i+end+1:]
	}
	if strings.Contains(rest, ":") {
		// Other pseudo-classes are unsupported offline.
		return st, fmt.Errorf("%w: %s", ErrBadSelector, tok)
	}
	for rest != "" {
		switch rest[0] {
		case '#':
			rest = rest[1:]
			j := nextDelim(rest)
			st.id = unescapeIdent(rest[:j])
			rest = rest[j:]
		case '.':
			rest = rest[1:]
			j := nextDelim(rest)
			st.classes = append(st.classes, unescapeIdent(rest[:j]))
			rest = rest[j:]
		case '[':
			return st, fmt.Errorf("%w: %s", ErrBadSelector, tok)
		default:
			j := nextDelim(rest)
			st.tag = strings.ToLower(rest[:j])
			rest = rest[j:]
		}
	}
	if st.tag == "" && st.id == "" && len(st.classes) == 0 && st.nth == 0 {
		return st, fmt.Errorf("%w: %s", ErrBadSelector, tok)
	}
	return st, nil
}

// stripEscapes drops every escape sequence, including the optional space
// terminating a hex escape, leaving only literal selector text.
func stripEscapes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		if isHexDigit(s[i]) {
			j := i
			for j < len(s) && j < i+6 && isHexDigit(s[j]) {
				j++
			}
			if j < len(s) && s[j] == ' ' {
				j++
			}
			i = j - 1
		}
	}
	return b.String()
}

// nextDelim finds the next unescaped '#' or '.' in s, or len(s).
func nextDelim(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '#' || s[i] == '.' {
			return i
		}
	}
	return len(s)
}
