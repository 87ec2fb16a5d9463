// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint and arxivAbsBase the abstract
// page prefix. Declared as vars so tests can substitute an httptest server.
var (
	arxivAPIBase = "https://export.arxiv.org/api/query"
	arxivAbsBase = "https://arxiv.org/abs/"
)

// ArxivBackend queries the arXiv Atom API and returns abstract pages. It is
// opt-in: scholarly topics benefit from it, general ones rarely do.
type ArxivBackend struct {
	httpBackend

	// Limit caps results from this backend. Zero means the caller's n.
	Limit int
}

// Name returns the backend identifier.
func (b *ArxivBackend) Name() string { return "arxiv" }

// Search returns arXiv abstract pages relevant to topic.
func (b *ArxivBackend) Search(ctx context.Context, topic string, n int) ([]types.SearchResult, error) {
	q := buildArxivQuery(topic)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	limit := capLimit(n, b.Limit)

	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, q, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := b.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var results []types.SearchResult
	for _, entry := range feed.Entries {
		id := extractArxivID(entry.ID)
		if id == "" {
			continue
		}
		results = append(results, types.SearchResult{
			URL:     arxivAbsBase + id,
			Title:   strings.Join(strings.Fields(entry.Title), " "),
			Snippet: truncate(strings.Join(strings.Fields(entry.Summary), " "), 300),
			Source:  b.Name(),
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// buildArxivQuery turns a topic into an all-fields conjunction.
func buildArxivQuery(topic string) string {
	terms := strings.Fields(topic)
	if len(terms) == 0 {
		return ""
	}
	for i, t := range terms {
		terms[i] = "all:" + url.QueryEscape(t)
	}
	return strings.Join(terms, "+AND+")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" becomes "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
