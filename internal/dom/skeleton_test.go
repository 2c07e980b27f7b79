package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkeletonDropsNonStructure(t *testing.T) {
	doc := mustParse(t, `<html><head>
		<script>var tracking = "long payload";</script>
		<style>.x{color:red}</style>
		<link rel="stylesheet" href="main.css">
		<link rel="canonical" href="https://example.com/">
	</head><body>
		<noscript>enable js</noscript>
		<template><div>tpl</div></template>
		<!-- comment -->
		<div id="content">hello</div>
	</body></html>`)

	out := Skeleton(doc)
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "style")
	assert.NotContains(t, out, "template")
	assert.NotContains(t, out, "comment")
	assert.NotContains(t, out, "main.css")
	assert.Contains(t, out, "canonical")
	assert.Contains(t, out, `id="content"`)
}

func TestSkeletonTruncatesText(t *testing.T) {
	long := strings.Repeat("word ", 40)
	doc := mustParse(t, "<body><p>"+long+"</p></body>")

	out := Skeleton(doc)
	assert.NotContains(t, out, long)
	assert.Contains(t, out, "word")
}

func TestSkeletonTruncationIsRuneSafe(t *testing.T) {
	long := strings.Repeat("広告", 60)
	doc := mustParse(t, "<body><p>"+long+"</p></body>")

	out := Skeleton(doc)
	require.True(t, strings.Contains(out, "広告"))
	assert.True(t, strings.Count(out, "広") <= 20+1)
}

func TestSkeletonBlanksHeavyAttributes(t *testing.T) {
	doc := mustParse(t, `<body>
		<img src="https://cdn.example.com/big.jpg" srcset="a 1x, b 2x" alt="banner">
		<video poster="p.png"></video>
		<a href="data:text/html;base64,AAAA">inline</a>
	</body>`)

	out := Skeleton(doc)
	assert.NotContains(t, out, "big.jpg")
	assert.NotContains(t, out, "a 1x")
	assert.NotContains(t, out, "p.png")
	assert.NotContains(t, out, "base64")
	// Presence survives even though values are blanked.
	assert.Contains(t, out, `src=""`)
	assert.Contains(t, out, `alt="banner"`)
}
