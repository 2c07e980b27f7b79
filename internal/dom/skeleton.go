package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// maxSkeletonText is the longest leaf text run kept in a skeleton. Longer
// runs carry content, not structure, and only inflate the discovery prompt.
const maxSkeletonText = 40

// heavyAttrs reference binary payloads. Their presence is structural signal
// (an img with a src is different from one without), so values are blanked
// rather than the attributes removed.
var heavyAttrs = map[string]bool{
	"src":    true,
	"srcset": true,
	"poster": true,
	"data":   true,
}

// Skeleton produces a structure-only copy of the document: scripts, styles
// and stylesheet links removed, bulky leaf text stripped, binary-reference
// attribute values blanked to empty placeholders. Tag names, remaining
// attributes and non-leaf structure are preserved so a layout-level analysis
// can still reason about the page without seeing its content.
func Skeleton(doc *html.Node) string {
	cp := Clone(doc)
	reduce(cp)
	return Render(cp)
}

func reduce(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if dropFromSkeleton(c) {
			n.RemoveChild(c)
			continue
		}
		reduce(c)
	}

	switch n.Type {
	case html.TextNode:
		t := []rune(strings.TrimSpace(n.Data))
		if len(t) > maxSkeletonText {
			n.Data = string(t[:maxSkeletonText])
		}
	case html.ElementNode:
		for i, a := range n.Attr {
			if heavyAttrs[a.Key] || strings.HasPrefix(a.Val, "data:") {
				n.Attr[i].Val = ""
			}
		}
	}
}

func dropFromSkeleton(n *html.Node) bool {
	if n.Type == html.CommentNode {
		return true
	}
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "script", "style", "noscript", "template":
		return true
	case "link":
		return strings.EqualFold(Attr(n, "rel"), "stylesheet")
	}
	return false
}
