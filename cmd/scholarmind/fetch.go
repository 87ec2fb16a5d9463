// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholarmind/internal/fetch"
	"github.com/pdiddy/scholarmind/internal/pagecache"
	"github.com/pdiddy/scholarmind/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [urls...]",
	Short: "Fetch pages and show the extracted text",
	Long: `Fetch downloads each URL in parallel, strips navigation, scripts, ads, and
other page furniture, and reports what was extracted. Wikipedia articles are
read through the MediaWiki extracts API. Failed fetches are listed with
their reason.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("cache", "", "SQLite page cache file (disabled when empty)")
	fetchCmd.Flags().Bool("json", false, "output documents as JSON, including extracted text")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	f := fetch.New(nil, cfg.Fetch, logger)
	if cfg.Cache.Path != "" {
		cache, err := pagecache.Open(cfg.Cache)
		if err != nil {
			return fmt.Errorf("opening page cache: %w", err)
		}
		defer cache.Close()
		f.Cache = cache
	}

	results := make([]types.SearchResult, len(args))
	for i, u := range args {
		results[i] = types.SearchResult{URL: u, Source: "cli"}
	}
	docs := f.FetchAll(context.Background(), results)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}
	formatDocuments(docs, cmd.OutOrStdout())

	for _, d := range docs {
		if d.Status.OK() {
			return nil
		}
	}
	return &exitError{code: 2, err: types.ErrNoUsableContent}
}

func formatDocuments(docs []types.SourceDocument, w io.Writer) {
	fmt.Fprintf(w, "%-28s  %8s  %-40s  %s\n", "Status", "Chars", "Title", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, d := range docs {
		title := []rune(d.Title)
		if len(title) > 40 {
			title = append(title[:37], []rune("...")...)
		}
		fmt.Fprintf(w, "%-28s  %8d  %-40s  %s\n",
			d.Status, utf8.RuneCountInString(d.ExtractedText), string(title), d.URL)
	}
}
