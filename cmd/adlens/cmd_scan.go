package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adlens/internal/browser"
	"adlens/internal/page"
	"adlens/internal/scanner"
)

var (
	scanStrategy string
	scanKeepOpen bool
)

// scanCmd runs a single scan against one URL and exits.
var scanCmd = &cobra.Command{
	Use:   "scan [url]",
	Short: "Scan a page for advertisements and overlay the results",
	Long: `Opens the URL in Chromium, finds advertisement candidates, confirms each
one with the configured LLM, and paints labeled overlays over the confirmed
ads.

A browser launched by this command shuts down when the command exits, taking
the overlays with it; pass --keep-open to hold the browser (and its overlays)
until interrupted. Overlays also persist without --keep-open when attaching
to a browser started with 'adlens browser launch'.

Exit codes: 0 on success, 1 on scan failure, 2 when no API key is configured.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanStrategy, "strategy", "", "Candidate strategy: heuristic, skeleton, or fullpage (default from config)")
	scanCmd.Flags().BoolVar(&scanKeepOpen, "keep-open", false, "Keep the browser open after the scan until interrupted")
}

var (
	reportTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	reportOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	reportErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	reportDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if scanStrategy != "" {
		cfg.Scan.Strategy = scanStrategy
	}
	if scanKeepOpen {
		// A browser nobody can see is not worth holding open.
		cfg.Browser.Headless = false
	}

	apiKey := cfg.ResolveAPIKey()
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, reportErrStyle.Render("No API key configured."))
		fmt.Fprintln(os.Stderr, "Set one with 'adlens auth set <key>' or export ADLENS_API_KEY.")
		return &exitError{code: 2}
	}

	url := args[0]
	logger.Info("Starting scan", zap.String("url", url), zap.String("strategy", cfg.Scan.Strategy))

	attachToRunningBrowser(&cfg.Browser)
	mgr := browser.NewManager(cfg.Browser, logger)
	rodPage, err := mgr.Open(ctx, url)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}

	sc, err := buildScanner(ctx, cfg, apiKey, logger)
	if err != nil {
		return err
	}

	pg := page.New(rodPage, logger)
	result := sc.Scan(ctx, pg)
	printReport(url, result)

	switch {
	case result.NeedsConfiguration():
		return &exitError{code: 2}
	case result.Status != scanner.StatusSuccess:
		return &exitError{code: 1}
	}

	if scanKeepOpen {
		fmt.Println(reportDimStyle.Render("Browser held open. Press Ctrl+C to close."))
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		return mgr.Shutdown()
	}
	return nil
}

func printReport(url string, result scanner.Result) {
	fmt.Println(reportTitleStyle.Render("adlens scan"))
	fmt.Println(reportDimStyle.Render(url))
	if result.Status == scanner.StatusSuccess {
		switch result.Count {
		case 0:
			fmt.Println(reportOKStyle.Render("No advertisements found."))
		case 1:
			fmt.Println(reportOKStyle.Render("1 advertisement overlaid."))
		default:
			fmt.Println(reportOKStyle.Render(fmt.Sprintf("%d advertisements overlaid.", result.Count)))
		}
		return
	}
	fmt.Println(reportErrStyle.Render("Scan failed: " + result.Message))
}
