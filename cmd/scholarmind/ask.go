// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholarmind/internal/pipeline"
	"github.com/pdiddy/scholarmind/internal/synthesize"
	"github.com/pdiddy/scholarmind/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about a report",
	Long: `Ask answers a question using a saved report as context. Without --report
the model answers from general knowledge. The answer is written in the
report's language unless --language is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var speechCmd = &cobra.Command{
	Use:   "speech",
	Short: "Write a presentation speech for a report",
	Long: `Speech writes a spoken script that walks through the report's slides:
the title slide, one slide per section, and the references slide. Supported
durations are 5, 10, 15, and 20 minutes; anything else falls back to 10.`,
	Args: cobra.NoArgs,
	RunE: runSpeech,
}

func init() {
	addModelFlags(askCmd)
	askCmd.Flags().String("report", "", "report file (JSON or YAML) used as context")

	addModelFlags(speechCmd)
	speechCmd.Flags().String("report", "", "report file (JSON or YAML)")
	speechCmd.Flags().Int("minutes", synthesize.DefaultSpeechMinutes, "speech length in minutes: 5, 10, 15, or 20")
	_ = speechCmd.MarkFlagRequired("report")

	rootCmd.AddCommand(askCmd, speechCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var report types.ResearchReport
	if path, _ := cmd.Flags().GetString("report"); path != "" {
		if report, err = readReport(path); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("language") {
		report.Language = cfg.Synthesis.Language
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := newSynthesizer(ctx, cfg)
	if err != nil {
		return err
	}
	answer, err := s.Chat(ctx, report, strings.Join(args, " "))
	if err != nil {
		return &exitError{code: pipeline.ExitCode(err), err: err}
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

func runSpeech(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("report")
	report, err := readReport(path)
	if err != nil {
		return err
	}

	minutes, _ := cmd.Flags().GetInt("minutes")
	if m := synthesize.SpeechMinutes(minutes); m != minutes {
		fmt.Fprintf(os.Stderr, "Unsupported duration %d, using %d minutes\n", minutes, m)
		minutes = m
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cmd.Flags().Changed("language") {
		report.Language = cfg.Synthesis.Language
	}
	s, err := newSynthesizer(ctx, cfg)
	if err != nil {
		return err
	}
	speech, err := s.Speech(ctx, report, minutes)
	if err != nil {
		return &exitError{code: pipeline.ExitCode(err), err: err}
	}
	fmt.Fprintln(cmd.OutOrStdout(), speech)
	return nil
}
