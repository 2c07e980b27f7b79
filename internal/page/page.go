// Package page implements the page-side component on a live DevTools page.
// Every scanner.Page request becomes one JS evaluation; nothing is injected
// permanently and no page state survives beyond the overlay widgets.
package page

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"adlens/internal/detect"
	"adlens/internal/overlay"
	"adlens/internal/scanner"
)

// Page adapts a rod page to the scanner.Page contract.
type Page struct {
	page     *rod.Page
	overlays *overlay.Manager
	log      *zap.Logger
}

var _ scanner.Page = (*Page)(nil)

// New wraps a live page.
func New(p *rod.Page, log *zap.Logger) *Page {
	if log == nil {
		log = zap.NewNop()
	}
	runner := &rodRunner{page: p}
	return &Page{
		page:     p,
		overlays: overlay.NewManager(runner, log),
		log:      log,
	}
}

// SnapshotHTML serializes the live document.
func (p *Page) SnapshotHTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("page html: %w", err)
	}
	return html, nil
}

// Layout probes geometry and rendered-layout visibility per selector.
// Selectors the page cannot resolve are absent from the map.
func (p *Page) Layout(ctx context.Context, selectors []string) (map[string]scanner.Box, error) {
	payload, err := json.Marshal(selectors)
	if err != nil {
		return nil, err
	}
	raw, err := (&rodRunner{page: p.page}).Eval(ctx, layoutScript, string(payload))
	if err != nil {
		return nil, fmt.Errorf("layout probe: %w", err)
	}
	var boxes map[string]scanner.Box
	if err := json.Unmarshal(raw, &boxes); err != nil {
		return nil, fmt.Errorf("layout probe: decode: %w", err)
	}
	return boxes, nil
}

// CandidatesBySelectors re-resolves selectors in the live document and
// snapshots markup for each match, omitting unresolvable ones.
func (p *Page) CandidatesBySelectors(ctx context.Context, selectors []string) ([]detect.Candidate, error) {
	payload, err := json.Marshal(selectors)
	if err != nil {
		return nil, err
	}
	raw, err := (&rodRunner{page: p.page}).Eval(ctx, candidatesScript, string(payload))
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	var out []detect.Candidate
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("fetch candidates: decode: %w", err)
	}
	if dropped := len(selectors) - len(out); dropped > 0 {
		p.log.Debug("selectors did not resolve", zap.Int("dropped", dropped))
	}
	return out, nil
}

// RenderOverlays delegates to the overlay manager, the sole owner of overlay
// state on this page.
func (p *Page) RenderOverlays(ctx context.Context, ads []overlay.Ad) (int, error) {
	return p.overlays.Render(ctx, ads)
}

// ClearOverlays removes every overlay widget; idempotent.
func (p *Page) ClearOverlays(ctx context.Context) error {
	return p.overlays.Clear(ctx)
}

// Close closes the underlying page.
func (p *Page) Close() error {
	return p.page.Close()
}

// rodRunner evaluates JS through the DevTools protocol and hands back the
// result as JSON.
type rodRunner struct {
	page *rod.Page
}

func (r *rodRunner) Eval(ctx context.Context, js string, args ...any) (json.RawMessage, error) {
	res, err := r.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, err
	}
	return res.Value.MarshalJSON()
}
