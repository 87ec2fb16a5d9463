// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// AnthropicGenerator calls the Claude Messages API.
type AnthropicGenerator struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicGenerator returns a generator bound to model. SDK-level
// retries are disabled; the synthesizer owns the retry policy.
func NewAnthropicGenerator(cfg types.AIConfig, model string) *AnthropicGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &AnthropicGenerator{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// ModelName returns the bound model.
func (a *AnthropicGenerator) ModelName() string { return a.model }

// Generate sends prompt as a single user message.
func (a *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if a.temperature > 0 {
		params.Temperature = anthropic.Float(a.temperature)
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return "", rateLimited("anthropic", err)
		}
		return "", fmt.Errorf("anthropic generation failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(b.Text)
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}
	return out.String(), nil
}
