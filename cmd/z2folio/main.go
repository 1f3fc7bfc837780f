package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/z2folio/gateway/dispatch"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "z2folio",
	Short:   "z2folio is the legacy-protocol-to-inventory-service query gateway",
	Version: dispatch.Version,
	Long: `z2folio hosts the query translator, session manager, and back-end
client that a Z39.50 wire frontend calls into. This binary does not speak
the wire protocol itself; it exposes three operator commands useful without
a live association: validating a configuration file, dry-running a search
against the back end, and serving the health/metrics endpoints.`,
}

func init() {
	rootCmd.AddCommand(validateConfigCmd)
	rootCmd.AddCommand(drySearchCmd)
}
