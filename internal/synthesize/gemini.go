// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// GeminiGenerator calls the Gemini generateContent API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewGeminiGenerator returns a generator bound to model.
func NewGeminiGenerator(ctx context.Context, cfg types.AIConfig, model string) (*GeminiGenerator, error) {
	config := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiGenerator{
		client:      client,
		model:       model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: float32(cfg.Temperature),
	}, nil
}

// ModelName returns the bound model.
func (g *GeminiGenerator) ModelName() string { return g.model }

// Generate sends prompt as a single user turn.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{}
	if g.temperature > 0 {
		temp := g.temperature
		config.Temperature = &temp
	}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = g.maxTokens
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		if geminiRateLimited(err) {
			return "", rateLimited("gemini", err)
		}
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	var out strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			out.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return out.String(), nil
}

func geminiRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}
