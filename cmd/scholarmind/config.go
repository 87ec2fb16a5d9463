// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scholarmind/internal/export"
	"github.com/pdiddy/scholarmind/internal/synthesize"
	"github.com/pdiddy/scholarmind/pkg/types"
)

// envKeys are the config keys that SCHOLARMIND_* environment variables can
// set, e.g. SCHOLARMIND_SYNTHESIS_MODEL.
var envKeys = []string{
	"search.max_results",
	"search.backends",
	"search.timeout",
	"fetch.timeout",
	"fetch.concurrency",
	"aggregate.char_budget",
	"synthesis.provider",
	"synthesis.model",
	"synthesis.base_url",
	"synthesis.api_key",
	"synthesis.language",
	"cache.path",
	"export.output_dir",
	"export.font_file",
}

// addModelFlags registers the flags shared by commands that call a model.
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "model provider: anthropic, gemini, or openai")
	cmd.Flags().String("model", "", "model identifier (overrides the configured model and its fallbacks)")
	cmd.Flags().String("language", "", "output language (see 'scholarmind languages')")
}

// loadConfig starts from the defaults, overlays the config file and
// environment, then applies any flags the user set on cmd.
func loadConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		p, _ := flags.GetString("provider")
		cfg.Synthesis.Provider = types.AIProvider(p)
		if !flags.Changed("model") {
			cfg.Synthesis.Model = defaultModels[cfg.Synthesis.Provider]
			cfg.Synthesis.FallbackModels = nil
		}
	}
	if flags.Changed("model") {
		cfg.Synthesis.Model, _ = flags.GetString("model")
		cfg.Synthesis.FallbackModels = nil
	}
	if flags.Changed("language") {
		cfg.Synthesis.Language, _ = flags.GetString("language")
	}
	if flags.Changed("max-results") {
		cfg.Search.MaxResults, _ = flags.GetInt("max-results")
	}
	if flags.Changed("output-dir") {
		cfg.Export.OutputDir, _ = flags.GetString("output-dir")
	}
	if flags.Changed("format") {
		cfg.Export.Formats, _ = flags.GetStringSlice("format")
	}
	if flags.Changed("font") {
		cfg.Export.FontFile, _ = flags.GetString("font")
	}
	if flags.Changed("cache") {
		cfg.Cache.Path, _ = flags.GetString("cache")
	}

	if lang := cfg.Synthesis.Language; types.NormalizeLanguage(lang) != lang {
		fmt.Fprintf(os.Stderr, "Unsupported language %q, using %s\n", lang, types.DefaultLanguage)
		cfg.Synthesis.Language = types.DefaultLanguage
	}
	if cfg.Synthesis.APIKey == "" {
		cfg.Synthesis.APIKey = loadedSecrets.APIKey(cfg.Synthesis.Provider)
	}
	return cfg, cfg.Validate()
}

// defaultModels is the model used when --provider is given without --model.
var defaultModels = map[types.AIProvider]string{
	types.ProviderAnthropic: "claude-sonnet-4-5",
	types.ProviderGemini:    "gemini-2.0-flash",
	types.ProviderOpenAI:    "gpt-4o-mini",
}

// newSynthesizer builds a synthesizer for commands that talk to the model
// without running the full pipeline.
func newSynthesizer(ctx context.Context, cfg types.PipelineConfig) (*synthesize.Synthesizer, error) {
	gen, err := synthesize.NewGenerator(ctx, cfg.Synthesis.AIConfig, logger)
	if err != nil {
		return nil, &exitError{code: 3, err: err}
	}
	return synthesize.New(gen, cfg.Synthesis, logger), nil
}

// readReport loads a report previously dumped as JSON or YAML.
func readReport(path string) (types.ResearchReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ResearchReport{}, fmt.Errorf("reading report: %w", err)
	}
	r, err := export.LoadReport(data)
	if err != nil {
		return types.ResearchReport{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}
