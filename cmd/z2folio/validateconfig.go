package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/z2folio/gateway/config"
	json "github.com/z2folio/gateway/libaf/json"
)

var validateConfigPath string

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load and print a tenant configuration file, resolving environment placeholders",
	Long: `Loads the configuration file at --config, applies environment
substitution, and prints the resolved configuration as JSON. Exits
non-zero if the file can't be read, an environment placeholder can't be
resolved, or the JSON can't be parsed.

Examples:
  z2folio validate-config --config tenant.json
`,
	RunE: runValidateConfig,
}

func init() {
	validateConfigCmd.Flags().StringVarP(&validateConfigPath, "config", "c", "", "Path to tenant configuration file (required)")
	validateConfigCmd.MarkFlagRequired("config")
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(validateConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Credentials never get echoed back, even to an operator's terminal.
	redacted := *cfg
	if redacted.Username != "" {
		redacted.Username = "***"
	}
	if redacted.Password != "" {
		redacted.Password = "***"
	}

	out, err := json.MarshalIndent(&redacted, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
