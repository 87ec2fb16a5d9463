// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// duckDuckGoLiteURL is the DuckDuckGo Lite HTML endpoint. Declared as a var
// so tests can substitute an httptest server.
var duckDuckGoLiteURL = "https://lite.duckduckgo.com/lite/"

// DuckDuckGoBackend scrapes the DuckDuckGo Lite results page. It issues
// each of Queries(topic) in order until it has enough results.
type DuckDuckGoBackend struct {
	httpBackend

	// Limit caps results from this backend. Zero means the caller's n.
	Limit int
}

// Name returns the backend identifier.
func (b *DuckDuckGoBackend) Name() string { return "duckduckgo" }

// Search returns result links for topic. An error is returned only when
// every query failed.
func (b *DuckDuckGoBackend) Search(ctx context.Context, topic string, n int) ([]types.SearchResult, error) {
	limit := capLimit(n, b.Limit)
	seen := make(map[string]bool)
	var results []types.SearchResult
	var lastErr error
	succeeded := 0

	for _, q := range Queries(topic) {
		if len(results) >= limit {
			break
		}
		page, err := b.query(ctx, q)
		if err != nil {
			lastErr = err
			b.Log.Debug().Err(err).Str("query", q).Msg("query failed")
			continue
		}
		succeeded++
		for _, r := range page {
			if len(results) >= limit {
				break
			}
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			results = append(results, r)
		}
	}

	if succeeded == 0 && lastErr != nil {
		return nil, lastErr
	}
	return results, nil
}

func (b *DuckDuckGoBackend) query(ctx context.Context, q string) ([]types.SearchResult, error) {
	form := url.Values{"q": {q}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, duckDuckGoLiteURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := b.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("DuckDuckGo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DuckDuckGo returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing DuckDuckGo page: %w", err)
	}
	return parseDuckDuckGoLite(doc, b.Name()), nil
}

// parseDuckDuckGoLite extracts result links. The lite page marks them with
// a.result-link; when that class is absent every external link with a
// descriptive text is taken instead.
func parseDuckDuckGoLite(doc *goquery.Document, source string) []types.SearchResult {
	var results []types.SearchResult
	collect := func(sel *goquery.Selection, minText int) {
		sel.Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			href = resolveDuckDuckGoRedirect(href)
			if !strings.HasPrefix(href, "http") {
				return
			}
			title := strings.TrimSpace(a.Text())
			if len([]rune(title)) <= minText {
				return
			}
			result := types.SearchResult{URL: href, Title: title, Source: source}
			// Lite layout puts the snippet in the next table row.
			row := a.ParentsFiltered("tr").First()
			if snippet := strings.TrimSpace(row.Next().Find("td.result-snippet").Text()); snippet != "" {
				result.Snippet = strings.Join(strings.Fields(snippet), " ")
			}
			results = append(results, result)
		})
	}

	collect(doc.Find("a.result-link"), 0)
	if len(results) == 0 {
		collect(doc.Find("a[href]"), 10)
	}
	return results
}

// resolveDuckDuckGoRedirect unwraps //duckduckgo.com/l/?uddg=<target> links.
func resolveDuckDuckGoRedirect(href string) string {
	if !strings.Contains(href, "duckduckgo.com/l/") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
