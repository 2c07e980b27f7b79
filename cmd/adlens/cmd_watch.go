package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adlens/internal/browser"
	"adlens/internal/config"
	"adlens/internal/page"
	"adlens/internal/scanner"
)

var watchSettle time.Duration

// watchCmd keeps a page open and rescans it across navigations.
var watchCmd = &cobra.Command{
	Use:   "watch [url]",
	Short: "Open a page and rescan it on every navigation",
	Long: `Opens the URL and scans it, then keeps the session alive: every top-level
navigation triggers a fresh scan of the new document, and SIGHUP forces a
rescan of the current one. The API key is re-read from the config file when
it changes, so a key set mid-session takes effect on the next scan.

Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second, "Delay after navigation before rescanning")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}

	watcher, err := config.WatchCredential(cfgPath, cfg, logger)
	if err != nil {
		logger.Warn("credential watcher unavailable, key changes need a restart", zap.Error(err))
	} else {
		defer watcher.Close()
	}
	credential := func() string {
		if watcher != nil {
			return watcher.APIKey()
		}
		return cfg.ResolveAPIKey()
	}

	url := args[0]
	attachToRunningBrowser(&cfg.Browser)
	mgr := browser.NewManager(cfg.Browser, logger)
	rodPage, err := mgr.Open(ctx, url)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	pg := page.New(rodPage, logger)

	// Both the navigation handler and SIGHUP funnel into one buffered
	// request slot; a rescan demanded mid-scan coalesces with the next one.
	rescan := make(chan struct{}, 1)
	request := func() {
		select {
		case rescan <- struct{}{}:
		default:
		}
	}

	wait := mgr.OnNavigated(ctx, rodPage, func(navigated string) {
		logger.Info("Page navigated", zap.String("url", navigated))
		request()
	})
	go wait()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	request()
	for {
		select {
		case <-rescan:
			// Let the page settle before reading its DOM; single-page apps
			// render well after the navigation commit.
			select {
			case <-time.After(watchSettle):
			case <-ctx.Done():
				return nil
			}
			watchScan(ctx, cfg, credential, pg)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("Rescan requested")
				request()
				continue
			}
			logger.Info("Shutting down")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// watchScan runs one scan with the current credential. A missing key skips
// the scan rather than ending the watch; the key may arrive later.
func watchScan(ctx context.Context, cfg config.Config, credential func() string, pg *page.Page) {
	apiKey := credential()
	if apiKey == "" {
		logger.Warn("skipping scan: no API key configured")
		return
	}
	sc, err := buildScanner(ctx, cfg, apiKey, logger)
	if err != nil {
		logger.Error("failed to build scanner", zap.Error(err))
		return
	}
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	result := sc.Scan(scanCtx, pg)
	if result.Status == scanner.StatusSuccess {
		logger.Info("Scan complete", zap.Int("ads", result.Count))
		return
	}
	logger.Error("Scan failed", zap.String("message", result.Message))
}
