// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the scholarmind pipeline:
// search results, fetched sources, the aggregated corpus, the finished
// research report, stage configuration, and the pipeline error taxonomy.
package types

// SearchResult is a candidate page returned by a web search backend. Results
// are consumed by the fetch stage and discarded afterwards.
type SearchResult struct {
	// URL is the page address to fetch.
	URL string `json:"url" yaml:"url"`

	// Title is the result title as shown by the provider.
	Title string `json:"title" yaml:"title"`

	// Snippet is the short description shown by the provider, if any.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Source identifies which backend found this result (e.g. "wikipedia", "duckduckgo").
	Source string `json:"source" yaml:"source"`
}
