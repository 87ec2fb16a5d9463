// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholarmind/pkg/types"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the supported report languages",
	Run: func(cmd *cobra.Command, args []string) {
		names := make([]string, 0, len(types.SupportedLanguages))
		for name := range types.SupportedLanguages {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			marker := " "
			if name == types.DefaultLanguage {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-10s  %s\n", marker, name, types.SupportedLanguages[name])
		}
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
