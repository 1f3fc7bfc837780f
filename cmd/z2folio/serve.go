package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/z2folio/gateway/config"
	"github.com/z2folio/gateway/libaf/healthserver"
	"github.com/z2folio/gateway/libaf/logging"
)

var (
	serveConfigPath string
	servePort       int
	serveLogStyle   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the health/metrics sidecar for a deployed gateway process",
	Long: `Starts the /healthz, /readyz, and /metrics HTTP endpoints a
deployment's orchestrator polls. Readiness is reported once the tenant
configuration at --config parses and its back-end URL is non-empty; this
command does not itself open a session against the back end.

The Z39.50 wire frontend that embeds the dispatch package runs this
alongside its own process; it is not the frontend itself.

Examples:
  z2folio serve --config tenant.json --port 8080
`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to tenant configuration file (required)")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Health/metrics server port")
	serveCmd.Flags().StringVar(&serveLogStyle, "log-style", "json", "Log style: terminal, json, logfmt, noop")
	serveCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(&logging.Config{Style: logging.Style(serveLogStyle), Level: "info"})
	defer logger.Sync()

	ready := func() bool {
		cfg, err := config.Load(serveConfigPath)
		return err == nil && cfg.BaseURL != ""
	}

	healthserver.Start(logger, servePort, ready)

	fmt.Fprintf(cmd.OutOrStdout(), "health/metrics server listening on :%d\n", servePort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}
