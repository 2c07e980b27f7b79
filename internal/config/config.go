// Package config loads and persists adlens configuration. One YAML file
// under the user's home directory holds everything; the API credential lives
// under the stable llm.api_key key and is the only durable state the tool
// keeps.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"adlens/internal/browser"
	"adlens/internal/scanner"
)

// Config holds all adlens configuration.
type Config struct {
	LLM     LLMConfig      `yaml:"llm"`
	Browser browser.Config `yaml:"browser"`
	Scan    ScanConfig     `yaml:"scan"`
	Logging LoggingConfig  `yaml:"logging"`
}

// LLMConfig configures the classification backend.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// ScanConfig tunes the detection pipeline.
type ScanConfig struct {
	// Strategy is one of heuristic, skeleton, fullpage.
	Strategy string `yaml:"strategy"`

	// Minimum rendered box, per side, in CSS pixels. Zero means default.
	MinBoxWidth  float64 `yaml:"min_box_width"`
	MinBoxHeight float64 `yaml:"min_box_height"`

	// MaxCandidates caps the set sent to classification.
	MaxCandidates int `yaml:"max_candidates"`

	// Concurrency bounds the confirmation fan-out.
	Concurrency int `yaml:"concurrency"`

	// ExtraKeywords extends the built-in ad keyword list.
	ExtraKeywords []string `yaml:"extra_keywords"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns production defaults.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
		},
		Browser: browser.DefaultConfig(),
		Scan: ScanConfig{
			Strategy:      scanner.StrategyHeuristic,
			MaxCandidates: 20,
			Concurrency:   4,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultPath returns ~/.adlens/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".adlens", "config.yaml"), nil
}

// Load reads the config file. A missing file yields defaults, not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the config file, creating the directory as needed.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// ResolveAPIKey returns the credential, environment first so deployments can
// inject the key without touching the file.
func (c Config) ResolveAPIKey() string {
	if key := os.Getenv("ADLENS_API_KEY"); key != "" {
		return key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return c.LLM.APIKey
}
