// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholarmind/internal/export"
	"github.com/pdiddy/scholarmind/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate [topic]",
	Short: "Research a topic and write the report",
	Long: `Generate runs the full pipeline for a topic: web search, parallel page
fetch and extraction, corpus aggregation, and report synthesis. The finished
report is written to the output directory in every configured format
(PDF and PPTX by default).

Exit status is 2 when no usable content was found, 3 when the search or model
service is unavailable, and 4 when the model output could not be repaired.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	addModelFlags(generateCmd)
	generateCmd.Flags().Int("max-results", 0, "search hits to fetch (default 5)")
	generateCmd.Flags().String("output-dir", "", "directory for exported files (default output)")
	generateCmd.Flags().StringSlice("format", nil, "export formats: "+formatList())
	generateCmd.Flags().String("font", "", "TrueType font for PDF output; required for non-Latin languages")
	generateCmd.Flags().String("cache", "", "SQLite page cache file (disabled when empty)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, err := pipeline.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Researching %q (%s, %s)\n", topic, cfg.Synthesis.Model, cfg.Synthesis.Language)

	res, err := p.Run(ctx, topic)
	if err != nil {
		if advice := pipeline.Advice(err); advice != "" {
			fmt.Fprintln(os.Stderr, advice)
		}
		return &exitError{code: pipeline.ExitCode(err), err: err}
	}
	printRunSummary(out, res)

	paths, err := p.ExportAll(res.Report)
	for _, path := range paths {
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	if err != nil {
		return &exitError{code: pipeline.ExitCode(err), err: err}
	}
	return nil
}

func printRunSummary(w io.Writer, res pipeline.Result) {
	c := res.Corpus
	fmt.Fprintf(w, "\nSources: %d used, %d excluded, %d failed (%d chars)\n",
		len(c.IncludedSources), len(c.ExcludedSources), len(c.FailedSources), c.TotalChars)
	for i, u := range c.IncludedSources {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, u)
	}
	for _, x := range c.ExcludedSources {
		fmt.Fprintf(w, "  excluded (%s) %s\n", x.Reason, x.URL)
	}
	for _, x := range c.FailedSources {
		fmt.Fprintf(w, "  failed (%s) %s\n", x.Reason, x.URL)
	}

	fmt.Fprintf(w, "\nReport %s: %d sections in %s\n", res.Report.ID, len(res.Report.Sections), res.Report.Language)
	for _, stage := range []string{"search", "fetch", "aggregate", "synthesize"} {
		if d, ok := res.Timings[stage]; ok {
			fmt.Fprintf(w, "  %-10s %s\n", stage, d.Round(time.Millisecond))
		}
	}
	fmt.Fprintln(w)
}

func formatList() string {
	names := make([]string, 0, len(export.Formats()))
	for _, f := range export.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
