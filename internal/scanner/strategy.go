package scanner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"adlens/internal/classify"
	"adlens/internal/detect"
	"adlens/internal/dom"
)

// Strategy names, selectable by configuration.
const (
	StrategyHeuristic = "heuristic"
	StrategySkeleton  = "skeleton"
	StrategyFullPage  = "fullpage"
)

// Strategy produces the initial candidate set for a scan. The three
// implementations (local heuristics, skeleton-then-discovery, whole-page
// discovery) are mutually exclusive per deployment; their outputs are never
// merged.
type Strategy interface {
	Name() string
	Discover(ctx context.Context, pg Page) ([]detect.Candidate, error)
}

// minVisibleBox is the smallest bounding box worth classifying; anything
// below it is layout noise, per side, in CSS pixels.
const minVisibleBox = 20.0

// HeuristicStrategy runs the local structural detectors over a snapshot of
// the live document, then prunes candidates that the live layout shows to be
// invisible or trivially small.
type HeuristicStrategy struct {
	Scanner   *detect.Scanner
	MinWidth  float64
	MinHeight float64
	Log       *zap.Logger
}

func (s *HeuristicStrategy) Name() string { return StrategyHeuristic }

func (s *HeuristicStrategy) Discover(ctx context.Context, pg Page) ([]detect.Candidate, error) {
	raw, err := pg.SnapshotHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot document: %w", err)
	}
	doc, err := dom.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	candidates := s.Scanner.Scan(doc)
	if len(candidates) == 0 {
		return nil, nil
	}
	return s.filterByLayout(ctx, pg, candidates), nil
}

// filterByLayout drops candidates outside the rendered layout or below the
// minimum box. A failed probe keeps the set as-is: over-reporting to the
// classifier beats dropping everything on a transport hiccup.
func (s *HeuristicStrategy) filterByLayout(ctx context.Context, pg Page, candidates []detect.Candidate) []detect.Candidate {
	selectors := make([]string, len(candidates))
	for i, c := range candidates {
		selectors[i] = c.Selector
	}
	boxes, err := pg.Layout(ctx, selectors)
	if err != nil {
		s.log().Warn("layout probe failed, keeping candidates unfiltered", zap.Error(err))
		return candidates
	}

	minW, minH := s.MinWidth, s.MinHeight
	if minW <= 0 {
		minW = minVisibleBox
	}
	if minH <= 0 {
		minH = minVisibleBox
	}
	kept := candidates[:0]
	for _, c := range candidates {
		box, ok := boxes[c.Selector]
		if !ok || !box.Visible || box.Width < minW || box.Height < minH {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func (s *HeuristicStrategy) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// SkeletonStrategy reduces the document to structure only, asks the
// discovery stage for selectors, and re-resolves them against the live page
// to recover markup. A failed or empty discovery degrades to zero
// candidates.
type SkeletonStrategy struct {
	Pipeline *classify.Pipeline
}

func (s *SkeletonStrategy) Name() string { return StrategySkeleton }

func (s *SkeletonStrategy) Discover(ctx context.Context, pg Page) ([]detect.Candidate, error) {
	raw, err := pg.SnapshotHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot document: %w", err)
	}
	doc, err := dom.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	selectors := s.Pipeline.DiscoverSelectors(ctx, dom.Skeleton(doc))
	if len(selectors) == 0 {
		return nil, nil
	}
	return pg.CandidatesBySelectors(ctx, selectors)
}

// FullPageStrategy sends the whole serialized document through a single
// discovery call instead of reducing it first. Same convergence: selectors
// re-resolved against the live page, unresolvable ones omitted.
type FullPageStrategy struct {
	Pipeline *classify.Pipeline
}

func (s *FullPageStrategy) Name() string { return StrategyFullPage }

func (s *FullPageStrategy) Discover(ctx context.Context, pg Page) ([]detect.Candidate, error) {
	raw, err := pg.SnapshotHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot document: %w", err)
	}
	selectors := s.Pipeline.DiscoverSelectors(ctx, raw)
	if len(selectors) == 0 {
		return nil, nil
	}
	return pg.CandidatesBySelectors(ctx, selectors)
}
