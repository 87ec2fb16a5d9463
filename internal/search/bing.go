// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// bingSearchURL is the Bing web search endpoint. Declared as a var so tests
// can substitute an httptest server.
var bingSearchURL = "https://www.bing.com/search"

// BingBackend scrapes the Bing results page. It only runs when the primary
// backends came up short.
type BingBackend struct {
	httpBackend

	// Limit caps results from this backend. Zero means the caller's n.
	Limit int
}

// Name returns the backend identifier.
func (b *BingBackend) Name() string { return "bing" }

// FallbackOnly marks Bing as a fallback backend.
func (b *BingBackend) FallbackOnly() bool { return true }

// Search returns organic results for topic.
func (b *BingBackend) Search(ctx context.Context, topic string, n int) ([]types.SearchResult, error) {
	limit := capLimit(n, b.Limit)
	params := url.Values{
		"q":     {topic + " research"},
		"count": {strconv.Itoa(limit)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bingSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := b.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Bing returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing Bing page: %w", err)
	}

	seen := make(map[string]bool)
	var results []types.SearchResult
	doc.Find("li.b_algo").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		a := li.Find("h2 a").First()
		href, ok := a.Attr("href")
		if !ok || !strings.HasPrefix(href, "http") || seen[href] {
			return true
		}
		seen[href] = true
		results = append(results, types.SearchResult{
			URL:     href,
			Title:   strings.TrimSpace(a.Text()),
			Snippet: strings.TrimSpace(li.Find(".b_caption p").First().Text()),
			Source:  b.Name(),
		})
		return len(results) < limit
	})
	return results, nil
}
