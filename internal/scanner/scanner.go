// Package scanner sequences one ad-detection scan end to end: discovery,
// confirmation, overlay rendering. It owns the error taxonomy; everything
// below it degrades or skips at the smallest possible scope, and nothing is
// retried automatically.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adlens/internal/classify"
	"adlens/internal/overlay"
)

// ErrNoCredential is the distinguished configuration error: no API key means
// no scan is attempted and the caller is told to open configuration.
var ErrNoCredential = errors.New("no API key configured")

// Status values of a scan result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is what a scan returns to its caller.
type Result struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`

	configError bool
}

// NeedsConfiguration reports whether the failure was a missing credential,
// which callers should answer by opening the configuration surface.
func (r Result) NeedsConfiguration() bool { return r.configError }

// Scanner runs scans. One Scanner handles one page at a time; a scan always
// runs to completion or failure, it cannot be aborted mid-flight beyond
// context propagation into the transport.
type Scanner struct {
	strategy   Strategy
	pipeline   *classify.Pipeline
	credential func() string
	log        *zap.Logger
}

// New creates a scanner. credential is consulted at scan time, not
// construction time, so a hot-reloaded key takes effect on the next scan.
func New(strategy Strategy, pipeline *classify.Pipeline, credential func() string, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{strategy: strategy, pipeline: pipeline, credential: credential, log: log}
}

// Scan runs one full scan against the page and reports the number of
// overlays rendered. Any unexpected panic below is caught here, once, and
// reported as a generic failure; overlays already cleared stay cleared.
func (s *Scanner) Scan(ctx context.Context, pg Page) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scan panicked", zap.Any("panic", r))
			res = Result{Status: StatusError, Message: fmt.Sprintf("scan failed: %v", r)}
		}
	}()

	log := s.log.With(zap.String("scan_id", uuid.NewString()), zap.String("strategy", s.strategy.Name()))

	if strings.TrimSpace(s.credential()) == "" {
		log.Warn("scan refused: missing credential")
		return Result{Status: StatusError, Message: ErrNoCredential.Error(), configError: true}
	}

	// Stale overlays from the previous scan go first; the receiver may not
	// exist yet on a fresh page, and that is expected, not an error.
	if err := pg.ClearOverlays(ctx); err != nil {
		log.Debug("pre-scan clear failed (no receiver yet is fine)", zap.Error(err))
	}

	candidates, err := s.strategy.Discover(ctx, pg)
	if err != nil {
		log.Error("discovery failed", zap.Error(err))
		return Result{Status: StatusError, Message: fmt.Sprintf("discovery failed: %v", err)}
	}
	log.Info("discovery complete", zap.Int("candidates", len(candidates)))
	if len(candidates) == 0 {
		return Result{Status: StatusSuccess, Count: 0}
	}

	results := s.pipeline.ConfirmAll(ctx, candidates)

	var ads []overlay.Ad
	for i, r := range results {
		if r.IsAd {
			ads = append(ads, overlay.Ad{Selector: candidates[i].Selector, Description: r.Description})
		}
	}
	log.Info("confirmation complete", zap.Int("confirmed", len(ads)))
	if len(ads) == 0 {
		return Result{Status: StatusSuccess, Count: 0}
	}

	count, err := pg.RenderOverlays(ctx, ads)
	if err != nil {
		log.Error("render failed", zap.Error(err))
		return Result{Status: StatusError, Message: fmt.Sprintf("render failed: %v", err)}
	}
	log.Info("scan complete", zap.Int("rendered", count))
	return Result{Status: StatusSuccess, Count: count}
}
