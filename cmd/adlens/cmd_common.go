package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"adlens/internal/classify"
	"adlens/internal/config"
	"adlens/internal/detect"
	"adlens/internal/scanner"
)

// resolveConfigPath honors --config, falling back to ~/.adlens/config.yaml.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

func loadConfig() (config.Config, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, path, nil
}

// buildScanner assembles the full detection stack for one credential. Watch
// mode rebuilds it when the credential changes; a one-shot scan builds it
// once.
func buildScanner(ctx context.Context, cfg config.Config, apiKey string, log *zap.Logger) (*scanner.Scanner, error) {
	gcfg := classify.DefaultGeminiConfig(apiKey)
	if cfg.LLM.Model != "" {
		gcfg.Model = cfg.LLM.Model
	}
	client, err := classify.NewGeminiClient(ctx, gcfg)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	pipeline := classify.NewPipeline(client, cfg.Scan.Concurrency, log)

	var strategy scanner.Strategy
	switch cfg.Scan.Strategy {
	case scanner.StrategySkeleton:
		strategy = &scanner.SkeletonStrategy{Pipeline: pipeline}
	case scanner.StrategyFullPage:
		strategy = &scanner.FullPageStrategy{Pipeline: pipeline}
	case scanner.StrategyHeuristic, "":
		strategy = &scanner.HeuristicStrategy{
			Scanner: detect.NewScanner(detect.Config{
				MaxCandidates: cfg.Scan.MaxCandidates,
				ExtraKeywords: cfg.Scan.ExtraKeywords,
			}),
			MinWidth:  cfg.Scan.MinBoxWidth,
			MinHeight: cfg.Scan.MinBoxHeight,
			Log:       log,
		}
	default:
		return nil, fmt.Errorf("unknown scan strategy %q", cfg.Scan.Strategy)
	}

	return scanner.New(strategy, pipeline, func() string { return apiKey }, log), nil
}
