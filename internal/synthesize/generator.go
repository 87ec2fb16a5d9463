// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// Generator sends one prompt to a generative model and returns its text.
// Implementations wrap HTTP 429 responses with ErrRateLimited.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ErrRateLimited marks a provider response with status 429.
var ErrRateLimited = errors.New("rate limited")

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("empty model response")

// modelNamer is implemented by generators bound to one model.
type modelNamer interface {
	ModelName() string
}

// FallbackGenerator tries each generator in order. A rate-limited model
// stops the chain so the caller can back off; any other error moves on to
// the next model.
type FallbackGenerator struct {
	Generators []Generator
	Log        zerolog.Logger
}

// Generate returns the first successful response.
func (f *FallbackGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if len(f.Generators) == 0 {
		return "", fmt.Errorf("no models configured")
	}
	var lastErr error
	for i, g := range f.Generators {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, err := g.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if errors.Is(err, ErrRateLimited) {
			return "", err
		}
		if i < len(f.Generators)-1 {
			f.Log.Warn().Err(err).Str("model", nameOf(g)).Msg("model failed, trying next")
		}
	}
	return "", lastErr
}

func nameOf(g Generator) string {
	if n, ok := g.(modelNamer); ok {
		return n.ModelName()
	}
	return fmt.Sprintf("%T", g)
}

// NewGenerator builds the generator for cfg.Provider. When fallback models
// are configured the primary and fallbacks are chained in a
// FallbackGenerator.
func NewGenerator(ctx context.Context, cfg types.AIConfig, log zerolog.Logger) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key for provider %q", cfg.Provider)
	}
	models := append([]string{cfg.Model}, cfg.FallbackModels...)

	var gens []Generator
	for _, model := range models {
		if model == "" {
			continue
		}
		g, err := newProviderGenerator(ctx, cfg, model)
		if err != nil {
			return nil, err
		}
		gens = append(gens, g)
	}
	switch len(gens) {
	case 0:
		return nil, fmt.Errorf("no model configured for provider %q", cfg.Provider)
	case 1:
		return gens[0], nil
	}
	return &FallbackGenerator{
		Generators: gens,
		Log:        log.With().Str("component", "models").Logger(),
	}, nil
}

func newProviderGenerator(ctx context.Context, cfg types.AIConfig, model string) (Generator, error) {
	switch cfg.Provider {
	case types.ProviderAnthropic:
		return NewAnthropicGenerator(cfg, model), nil
	case types.ProviderGemini:
		return NewGeminiGenerator(ctx, cfg, model)
	case types.ProviderOpenAI:
		return NewOpenAIGenerator(cfg, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

func rateLimited(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrRateLimited, err)
}
