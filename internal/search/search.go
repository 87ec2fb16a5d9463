// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search resolves a research topic into candidate web pages. Several
// backends are queried, their results merged in backend order, deduplicated
// by URL, filtered against non-content domains, and trimmed to the configured
// maximum.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// Backend searches a single provider. Each provider (Wikipedia, DuckDuckGo,
// Bing) implements this interface per the Strategy pattern.
type Backend interface {
	Name() string
	Search(ctx context.Context, topic string, n int) ([]types.SearchResult, error)
}

// FallbackBackend is implemented by backends that only run when the primary
// backends gathered too few results.
type FallbackBackend interface {
	Backend
	FallbackOnly() bool
}

// SkipDomains lists hosts whose pages are never useful research sources.
var SkipDomains = []string{
	"youtube.com",
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"tiktok.com",
	"reddit.com",
	"duckduckgo.com",
}

// Queries returns the search queries issued for topic, in order.
func Queries(topic string) []string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}
	return []string{topic, topic + " research overview"}
}

// SearchOutput holds the merged results and bookkeeping about what was dropped.
type SearchOutput struct {
	Results       []types.SearchResult
	DupsRemoved   int
	Skipped       int
	BackendErrors []string
}

// Search queries the primary backends concurrently, then the fallback
// backends if fewer than cfg.MinResultsBeforeFallback results were gathered.
// Results keep backend order regardless of completion order.
//
// Zero results from reachable backends is not an error. ErrSearchUnavailable
// is returned only when every backend that was queried failed.
func Search(ctx context.Context, topic string, backends []Backend, cfg types.SearchConfig, log zerolog.Logger) (SearchOutput, error) {
	if strings.TrimSpace(topic) == "" {
		return SearchOutput{}, fmt.Errorf("topic is empty")
	}
	if len(backends) == 0 {
		return SearchOutput{}, fmt.Errorf("no search backends configured")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = types.DefaultMaxResults
	}

	var primary, fallback []Backend
	for _, b := range backends {
		if fb, ok := b.(FallbackBackend); ok && fb.FallbackOnly() {
			fallback = append(fallback, b)
			continue
		}
		primary = append(primary, b)
	}

	var m merger
	attempted, failed := 0, 0

	run := func(group []Backend) {
		runs := fanOut(ctx, topic, maxResults, group)
		for _, br := range runs {
			attempted++
			if br.err != nil {
				failed++
				m.errs = append(m.errs, fmt.Sprintf("%s: %v", br.name, br.err))
				log.Warn().Str("backend", br.name).Err(br.err).Msg("search backend failed")
				continue
			}
			log.Debug().Str("backend", br.name).Int("results", len(br.results)).Msg("search backend done")
			m.add(br.results)
		}
	}

	run(primary)

	threshold := cfg.MinResultsBeforeFallback
	if len(fallback) > 0 && len(m.results) < threshold {
		if err := ctx.Err(); err != nil {
			return SearchOutput{}, err
		}
		log.Debug().Int("results", len(m.results)).Msg("too few results, trying fallback backends")
		run(fallback)
	}

	if err := ctx.Err(); err != nil {
		return SearchOutput{}, err
	}
	if attempted > 0 && failed == attempted {
		return SearchOutput{BackendErrors: m.errs}, fmt.Errorf("%w: %s", types.ErrSearchUnavailable, strings.Join(m.errs, "; "))
	}

	results := m.results
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return SearchOutput{
		Results:       results,
		DupsRemoved:   m.dups,
		Skipped:       m.skipped,
		BackendErrors: m.errs,
	}, nil
}

type backendResult struct {
	name    string
	results []types.SearchResult
	err     error
}

// fanOut runs every backend concurrently and returns their outcomes in
// backend order.
func fanOut(ctx context.Context, topic string, n int, backends []Backend) []backendResult {
	out := make([]backendResult, len(backends))
	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		go func(i int, b Backend) {
			defer wg.Done()
			results, err := b.Search(ctx, topic, n)
			out[i] = backendResult{name: b.Name(), results: results, err: err}
		}(i, b)
	}
	wg.Wait()
	return out
}

// merger accumulates results, dropping repeated URLs and skipped domains.
type merger struct {
	seen    map[string]bool
	results []types.SearchResult
	dups    int
	skipped int
	errs    []string
}

func (m *merger) add(results []types.SearchResult) {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	for _, r := range results {
		if !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
			m.skipped++
			continue
		}
		if IsSkippedDomain(r.URL) {
			m.skipped++
			continue
		}
		key := normalizeURL(r.URL)
		if m.seen[key] {
			m.dups++
			continue
		}
		m.seen[key] = true
		m.results = append(m.results, r)
	}
}

// IsSkippedDomain reports whether rawURL belongs to one of SkipDomains or a
// subdomain of one.
func IsSkippedDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range SkipDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// normalizeURL drops the fragment and a trailing slash so trivially
// different spellings of one page collapse.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	s := u.String()
	return strings.TrimSuffix(s, "/")
}

// IsUnavailable reports whether err means no backend could be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, types.ErrSearchUnavailable)
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(out SearchOutput, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-12s  %s\n", "Rank", "Title", "Source", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range out.Results {
		fmt.Fprintf(w, "%-4d  %-50s  %-12s  %s\n",
			i+1, truncate(r.Title, 50), r.Source, r.URL)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Results))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(out SearchOutput, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Results)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
