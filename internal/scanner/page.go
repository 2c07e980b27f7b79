package scanner

import (
	"context"

	"adlens/internal/detect"
	"adlens/internal/overlay"
)

// Box is an element's on-screen geometry in viewport coordinates, plus
// whether it is part of the rendered layout.
type Box struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Visible bool    `json:"visible"`
}

// Page is the closed set of requests the orchestrator can make of the
// page-side component. Each method is one message kind with a typed payload;
// there is no stringly-typed dispatch to mishandle.
type Page interface {
	// SnapshotHTML serializes the live document.
	SnapshotHTML(ctx context.Context) (string, error)

	// Layout probes geometry and visibility for each selector. Selectors
	// that fail to resolve are simply absent from the result.
	Layout(ctx context.Context, selectors []string) (map[string]Box, error)

	// CandidatesBySelectors re-resolves selectors against the live document
	// and captures markup for each, omitting unresolvable ones.
	CandidatesBySelectors(ctx context.Context, selectors []string) ([]detect.Candidate, error)

	// RenderOverlays draws widgets for the confirmed ads and returns the
	// count actually rendered.
	RenderOverlays(ctx context.Context, ads []overlay.Ad) (int, error)

	// ClearOverlays removes every overlay widget; idempotent. This call is
	// allowed to fail when the page-side component is not there yet (fresh
	// navigation); callers treat that as the expected-absence case, not an
	// error worth surfacing.
	ClearOverlays(ctx context.Context) error
}
