package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"adlens/internal/config"
)

// authCmd manages the LLM credential.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage LLM authentication",
	Long: `Configure the API key used for advertisement classification.

Available subcommands:
  set    - Store an API key in the config file
  status - Show where the current key comes from`,
}

var authSetCmd = &cobra.Command{
	Use:   "set <api-key>",
	Short: "Store the API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthSet,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authStatusCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	key := strings.TrimSpace(args[0])
	if key == "" {
		return fmt.Errorf("API key must not be empty")
	}

	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.LLM.APIKey = key
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Printf("API key saved to %s\n", path)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("Config file: %s\n", path)
	fmt.Printf("Provider:    %s\n", cfg.LLM.Provider)
	fmt.Printf("Model:       %s\n", cfg.LLM.Model)

	switch {
	case strings.TrimSpace(os.Getenv("ADLENS_API_KEY")) != "":
		fmt.Println("API key:     set (ADLENS_API_KEY)")
	case strings.TrimSpace(os.Getenv("GEMINI_API_KEY")) != "":
		fmt.Println("API key:     set (GEMINI_API_KEY)")
	case strings.TrimSpace(cfg.LLM.APIKey) != "":
		fmt.Println("API key:     set (config file)")
	default:
		fmt.Println("API key:     not configured")
		fmt.Println("\nSet one with 'adlens auth set <key>' or export ADLENS_API_KEY.")
	}
	return nil
}
