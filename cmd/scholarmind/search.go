// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholarmind/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [topic]",
	Short: "Search the web for candidate sources",
	Long: `Search queries the enabled backends (Wikipedia, DuckDuckGo, and Bing as a
fallback by default; arXiv on request) for pages about a topic. Results are
merged in backend order, deduplicated by URL, and filtered against the
domain skip list.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum number of results to return (default 5)")
	searchCmd.Flags().StringSlice("backends", nil, "backends in priority order: wikipedia, duckduckgo, bing, arxiv")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("backends") {
		cfg.Search.Backends, _ = cmd.Flags().GetStringSlice("backends")
	}

	client := &http.Client{Timeout: cfg.Search.Timeout}
	backends, err := search.NewBackends(cfg.Search.Backends, cfg.Search, client, logger)
	if err != nil {
		return err
	}

	out, err := search.Search(context.Background(), strings.Join(args, " "), backends, cfg.Search, logger)
	if err != nil {
		if search.IsUnavailable(err) {
			return &exitError{code: 3, err: err}
		}
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return search.FormatJSON(out, cmd.OutOrStdout())
	}
	search.FormatTable(out, cmd.OutOrStdout())
	return nil
}
