// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// wikipediaAPIURL returns the MediaWiki API endpoint of the wiki served at
// host. Declared as a var so tests can substitute an httptest server.
var wikipediaAPIURL = func(host string) string {
	return "https://" + host + "/w/api.php"
}

// wikipediaMaxChars caps a single extract in characters.
const wikipediaMaxChars = 8000

func isWikipediaArticle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return (host == "wikipedia.org" || strings.HasSuffix(host, ".wikipedia.org")) &&
		strings.HasPrefix(u.Path, "/wiki/")
}

// wikiHost returns the language wiki host of an article URL. The bare
// wikipedia.org host maps to English.
func wikiHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "en.wikipedia.org"
	}
	host := strings.ToLower(u.Hostname())
	host = strings.Replace(host, ".m.wikipedia.org", ".wikipedia.org", 1)
	if host == "wikipedia.org" || host == "www.wikipedia.org" {
		return "en.wikipedia.org"
	}
	return host
}

// articleTitle returns the page title encoded in a /wiki/ URL.
func articleTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	title := strings.TrimPrefix(u.Path, "/wiki/")
	return strings.ReplaceAll(title, "_", " ")
}

// fetchWikipedia retrieves the plain-text extract of an article. An empty
// page and nil error mean the API had nothing for this title.
func (f *Fetcher) fetchWikipedia(ctx context.Context, rawURL string) (page, error) {
	title := articleTitle(rawURL)
	if title == "" {
		return page{}, nil
	}

	params := url.Values{
		"action":          {"query"},
		"titles":          {title},
		"prop":            {"extracts"},
		"explaintext":     {"1"},
		"exsectionformat": {"plain"},
		"redirects":       {"1"},
		"format":          {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wikipediaAPIURL(wikiHost(rawURL))+"?"+params.Encode(), nil)
	if err != nil {
		return page{}, fmt.Errorf("creating request: %w", err)
	}
	if f.Config.UserAgent != "" {
		req.Header.Set("User-Agent", f.Config.UserAgent)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return page{}, &failure{reason: fmt.Sprintf("http %d", resp.StatusCode)}
	}

	var er extractResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, f.maxBytes())).Decode(&er); err != nil {
		return page{}, fmt.Errorf("parsing Wikipedia extract: %w", err)
	}

	for id, p := range er.Query.Pages {
		if id == "-1" || strings.TrimSpace(p.Extract) == "" {
			continue
		}
		text := strings.TrimSpace(p.Extract)
		if r := []rune(text); len(r) > wikipediaMaxChars {
			text = string(r[:wikipediaMaxChars])
		}
		return page{
			raw:      p.Extract,
			text:     text,
			title:    p.Title,
			siteName: "Wikipedia",
		}, nil
	}
	return page{}, nil
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}
