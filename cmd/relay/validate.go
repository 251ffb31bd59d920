package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"veil-hq/relay/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file, apply defaults and environment
overrides, and report every validation failure.

Examples:
  # Validate the default config
  relay validate

  # Validate a specific file
  relay validate --config /etc/veil/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ Configuration invalid (%d problems):\n", len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Printf("  - %s: %s\n", fe.Field, fe.Message)
			}
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  Provider: %s (%s)\n", cfg.Provider.Kind, cfg.Provider.Model)
	fmt.Printf("  Listen:   %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  Masking:  %v (threshold %.2f)\n", cfg.Masking.MaskingEnabled(), cfg.Masking.ScoreThreshold)
	if cfg.Audit.Enabled {
		fmt.Printf("  Audit:    %s (retention %d days)\n", cfg.Audit.Backend, *cfg.Audit.Retention.Days)
	}
	return nil
}
