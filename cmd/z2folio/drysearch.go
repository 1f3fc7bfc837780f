package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/z2folio/gateway/backend"
	"github.com/z2folio/gateway/dispatch"
	"github.com/z2folio/gateway/libaf/logging"
)

var (
	drySearchConfigPath string
	drySearchUser       string
	drySearchPass       string
	drySearchCQL        string
	drySearchOrdinal    int
)

var drySearchCmd = &cobra.Command{
	Use:   "dry-search",
	Short: "Run one CQL search and fetch against a tenant back end, outside any live association",
	Long: `Exercises the same session/result-set/fetch path a live association
would drive, without a Z39.50 frontend in front of it: init, a single
search with a literal CQL string, and a fetch of one ordinal from the
resulting result set. Useful for confirming a tenant's configuration and
index map against the real back end.

Examples:
  z2folio dry-search --config tenant.json --user admin --pass secret --cql 'title=cat'
`,
	RunE: runDrySearch,
}

func init() {
	drySearchCmd.Flags().StringVarP(&drySearchConfigPath, "config", "c", "", "Path to tenant configuration file (required)")
	drySearchCmd.Flags().StringVarP(&drySearchUser, "user", "u", "", "Username (falls back to configured default)")
	drySearchCmd.Flags().StringVarP(&drySearchPass, "pass", "p", "", "Password (falls back to configured default)")
	drySearchCmd.Flags().StringVarP(&drySearchCQL, "cql", "q", "", "Literal CQL query to search (required)")
	drySearchCmd.Flags().IntVarP(&drySearchOrdinal, "ordinal", "o", 1, "1-based ordinal to fetch from the result set")
	drySearchCmd.MarkFlagRequired("config")
	drySearchCmd.MarkFlagRequired("cql")
}

func runDrySearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := logging.NewLogger(&logging.Config{Style: logging.StyleTerminal, Level: "info"})
	defer logger.Sync()

	d := dispatch.New(drySearchConfigPath, backend.New(nil, logger), logger)

	initResult, failure := d.Init(ctx, drySearchUser, drySearchPass)
	if failure != nil {
		return fmt.Errorf("init: %s", failure.Error())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "initialized %s %s %s\n", initResult.ImplementationID, initResult.ImplementationName, initResult.ImplementationVersion)

	const setName = "dry-search"
	searchResult, failure := d.Search(ctx, setName, nil, drySearchCQL, "")
	if failure != nil {
		return fmt.Errorf("search: %s", failure.Error())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "hits: %d\n", searchResult.Hits)

	if searchResult.Hits == 0 {
		return nil
	}

	fetchResult, failure := d.Fetch(ctx, setName, drySearchOrdinal)
	if failure != nil {
		return fmt.Errorf("fetch: %s", failure.Error())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "form: %s\n%s\n", fetchResult.Form, fetchResult.Record)
	return nil
}
