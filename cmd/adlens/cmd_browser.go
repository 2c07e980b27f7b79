package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"adlens/internal/browser"
	"adlens/internal/config"
)

// browserCmd manages the shared browser instance.
var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Browser instance management",
}

var browserHeaded bool

var browserLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch a browser instance for scan and watch to attach to",
	Long: `Launches Chromium and records its DevTools control URL so later scan and
watch invocations attach to it instead of starting their own. Overlays
painted by those scans stay visible for as long as this browser runs.`,
	RunE: browserLaunch,
}

func init() {
	browserLaunchCmd.Flags().BoolVar(&browserHeaded, "headed", false, "Run with a visible window")
	browserCmd.AddCommand(browserLaunchCmd)
}

// controlFilePath is where the launch command records the DevTools URL.
func controlFilePath() (string, error) {
	cfgPath, err := config.DefaultPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(cfgPath), "browser", "control.txt"), nil
}

// attachToRunningBrowser points cfg at a previously launched browser, when
// one is recorded. No record, or an empty one, leaves cfg untouched.
func attachToRunningBrowser(cfg *browser.Config) {
	if cfg.DebuggerURL != "" {
		return
	}
	path, err := controlFilePath()
	if err != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if url := strings.TrimSpace(string(data)); url != "" {
		cfg.DebuggerURL = url
	}
}

func browserLaunch(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if browserHeaded {
		cfg.Browser.Headless = false
	}
	logger.Info("Launching browser")

	mgr := browser.NewManager(cfg.Browser, logger)
	if err := mgr.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	controlFile, err := controlFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(controlFile), 0o755); err != nil {
		return fmt.Errorf("create browser state directory: %w", err)
	}
	if err := os.WriteFile(controlFile, []byte(mgr.ControlURL()), 0o644); err != nil {
		return fmt.Errorf("write browser control file: %w", err)
	}

	fmt.Printf("Browser launched. Control URL: %s\n", mgr.ControlURL())
	fmt.Println("Press Ctrl+C to shutdown")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := os.Remove(controlFile); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove browser control file")
	}
	return mgr.Shutdown()
}
