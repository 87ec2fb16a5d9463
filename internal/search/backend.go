// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pdiddy/scholarmind/internal/httputil"
	"github.com/pdiddy/scholarmind/pkg/types"
)

// httpBackend holds what every HTML or JSON backend needs to make requests.
type httpBackend struct {
	Client     *http.Client
	UserAgent  string
	MaxRetries int
	Log        zerolog.Logger
}

func (h httpBackend) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	return httputil.DoWithRetryLog(ctx, client, req, h.MaxRetries, h.Log)
}

// Per-backend result limits applied before the merged list is trimmed.
const (
	wikipediaLimit  = 4
	duckDuckGoLimit = 6
	bingLimit       = 6
	arxivLimit      = 3
)

// NewBackends builds the named backends in order, sharing one HTTP client.
func NewBackends(names []string, cfg types.SearchConfig, client *http.Client, log zerolog.Logger) ([]Backend, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	base := httpBackend{
		Client:     client,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}

	var backends []Backend
	for _, name := range names {
		h := base
		h.Log = log.With().Str("backend", name).Logger()
		switch name {
		case "wikipedia":
			backends = append(backends, &WikipediaBackend{httpBackend: h, Limit: wikipediaLimit})
		case "duckduckgo":
			backends = append(backends, &DuckDuckGoBackend{httpBackend: h, Limit: duckDuckGoLimit})
		case "bing":
			backends = append(backends, &BingBackend{httpBackend: h, Limit: bingLimit})
		case "arxiv":
			backends = append(backends, &ArxivBackend{httpBackend: h, Limit: arxivLimit})
		default:
			return nil, fmt.Errorf("unknown search backend %q (supported: wikipedia, duckduckgo, bing, arxiv)", name)
		}
	}
	return backends, nil
}

// capLimit returns the smaller positive of n and limit.
func capLimit(n, limit int) int {
	switch {
	case n <= 0 && limit <= 0:
		return types.DefaultMaxResults
	case n <= 0:
		return limit
	case limit <= 0 || n < limit:
		return n
	default:
		return limit
	}
}
