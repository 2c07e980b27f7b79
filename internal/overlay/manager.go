// Package overlay renders and tears down the visual widgets covering
// confirmed advertisements. The manager is the sole owner of overlay state on
// a page: no other component creates or destroys widgets, which is what keeps
// the clear-before-render invariant enforceable.
package overlay

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Ad is a confirmed advertisement headed for rendering: the selector to
// re-resolve against the live document plus the description shown on the
// widget.
type Ad struct {
	Selector    string `json:"selector"`
	Description string `json:"description"`
}

// Runner executes a JS function in the live page and returns its result as
// JSON. The production implementation evaluates through the DevTools
// protocol; tests substitute fakes.
type Runner interface {
	Eval(ctx context.Context, js string, args ...any) (json.RawMessage, error)
}

// Manager owns the overlay lifecycle on one page. Per-overlay states are
// absent, rendered, dismissed (user, local to one widget) and cleared
// (global sweep); dismissal happens entirely in the injected widget.
type Manager struct {
	runner Runner
	log    *zap.Logger
}

// NewManager creates a manager bound to one page's runner.
func NewManager(runner Runner, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{runner: runner, log: log}
}

// Render draws one widget per ad whose selector still resolves. Unresolvable
// selectors are skipped inside the page, so the returned count may be lower
// than len(ads) but the call itself only fails on transport problems.
func (m *Manager) Render(ctx context.Context, ads []Ad) (int, error) {
	if len(ads) == 0 {
		return 0, nil
	}
	payload, err := json.Marshal(ads)
	if err != nil {
		return 0, fmt.Errorf("marshal ads: %w", err)
	}
	raw, err := m.runner.Eval(ctx, renderScript, string(payload))
	if err != nil {
		return 0, fmt.Errorf("render overlays: %w", err)
	}
	var count int
	if err := json.Unmarshal(raw, &count); err != nil {
		return 0, fmt.Errorf("render overlays: bad count: %w", err)
	}
	if count < len(ads) {
		m.log.Debug("some ads skipped at render time",
			zap.Int("requested", len(ads)), zap.Int("rendered", count))
	}
	return count, nil
}

// Clear removes every widget in one sweep. Idempotent: clearing an empty set
// is a no-op.
func (m *Manager) Clear(ctx context.Context) error {
	if _, err := m.runner.Eval(ctx, clearScript); err != nil {
		return fmt.Errorf("clear overlays: %w", err)
	}
	return nil
}
