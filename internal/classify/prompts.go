package classify

import "fmt"

// PromptVersion tags the prompt/response contract. Bump when either prompt
// or expected reply shape changes.
const PromptVersion = "v1"

const discoveryInstruction = `You are analyzing the structural skeleton of a web page. All text content,
scripts and media URLs have been stripped; tag names, attributes and nesting
are intact.

Identify elements that are advertisements: display ads, sponsored content
blocks, ad network iframes, promotional banners. For each, give a CSS selector
that uniquely locates it in the original page.

Reply with ONLY a JSON object of this exact shape, no prose:
{"selectors": ["<css selector>", ...]}

If you find no advertisements, reply {"selectors": []}.`

const confirmInstruction = `You are given the serialized HTML of a single element from a web page.
Decide whether this element is an advertisement (display ad, sponsored
content, ad network embed, promotional banner).

Reply with ONLY a JSON object with exactly these two keys, no prose:
{"isAd": <true|false>, "description": "<string>"}

If isAd is true, description must be a short human-readable description of the
ad, written in the dominant language of the element's own text. If isAd is
false, description must be an empty string.`

func discoveryPrompt(skeleton string) string {
	return fmt.Sprintf("%s\n\nPage skeleton:\n%s", discoveryInstruction, skeleton)
}

func confirmPrompt(markup string) string {
	return fmt.Sprintf("%s\n\nElement markup:\n%s", confirmInstruction, markup)
}
