// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholarmind/internal/pagecache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or prune the page cache",
	Long: `Cache manages the SQLite page cache that generate and fetch use when
--cache (or cache.path in the config file) is set. Entries older than
cache.ttl are ignored on read and removed by prune.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached page counts and size",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stats(context.Background())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Pages:  %d\n", st.Pages)
		fmt.Fprintf(w, "Chars:  %d\n", st.Chars)
		if !st.Oldest.IsZero() {
			fmt.Fprintf(w, "Oldest: %s\n", st.Oldest.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Prune(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired page(s)\n", n)
		return nil
	},
}

func init() {
	cacheCmd.PersistentFlags().String("cache", "", "SQLite page cache file")
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCache(cmd *cobra.Command) (*pagecache.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Path == "" {
		return nil, fmt.Errorf("no cache configured: pass --cache or set cache.path")
	}
	return pagecache.Open(cfg.Cache)
}
