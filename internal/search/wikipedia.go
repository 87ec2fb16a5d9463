// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// wikipediaAPIBase is the MediaWiki API endpoint and wikipediaArticleBase
// the article URL prefix. Declared as vars so tests can substitute an
// httptest server.
var (
	wikipediaAPIBase     = "https://en.wikipedia.org/w/api.php"
	wikipediaArticleBase = "https://en.wikipedia.org/wiki/"
)

// WikipediaBackend searches article titles with the MediaWiki search API.
type WikipediaBackend struct {
	httpBackend

	// Limit caps results from this backend. Zero means the caller's n.
	Limit int
}

// Name returns the backend identifier.
func (b *WikipediaBackend) Name() string { return "wikipedia" }

// Search returns Wikipedia articles matching topic.
func (b *WikipediaBackend) Search(ctx context.Context, topic string, n int) ([]types.SearchResult, error) {
	limit := capLimit(n, b.Limit)
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {topic},
		"srlimit":  {strconv.Itoa(limit)},
		"srprop":   {"snippet"},
		"format":   {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wikipediaAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Wikipedia API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Wikipedia API returned HTTP %d", resp.StatusCode)
	}

	var wr wikipediaSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("parsing Wikipedia response: %w", err)
	}

	var results []types.SearchResult
	for _, item := range wr.Query.Search {
		if item.Title == "" {
			continue
		}
		results = append(results, types.SearchResult{
			URL:     ArticleURL(item.Title),
			Title:   "Wikipedia: " + item.Title,
			Snippet: stripSnippetMarkup(item.Snippet),
			Source:  b.Name(),
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// ArticleURL returns the article address for a Wikipedia page title.
func ArticleURL(title string) string {
	return wikipediaArticleBase + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// stripSnippetMarkup removes the <span class="searchmatch"> highlighting
// the search API wraps around matched terms.
func stripSnippetMarkup(snippet string) string {
	if !strings.Contains(snippet, "<") {
		return snippet
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snippet))
	if err != nil {
		return snippet
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

type wikipediaSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}
