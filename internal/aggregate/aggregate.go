// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate merges fetched sources into one bounded corpus. Failed
// fetches are set aside, near-duplicate pages are dropped, and the rest are
// concatenated in search order until the character budget is reached.
//
// Aggregate is a pure function: the same inputs always produce the same
// corpus.
package aggregate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// Separator sits between consecutive sources in the merged text.
const Separator = "\n\n---\n\n"

// Marker returns the provenance line written before a source's text.
func Marker(url string) string {
	return "[Source: " + url + "]\n"
}

// Aggregate builds the corpus from sources. It returns ErrNoUsableContent
// (wrapped) when no source ends up in the corpus; the partially filled
// corpus is still returned so callers can report provenance.
func Aggregate(sources []types.SourceDocument, cfg types.AggregateConfig) (types.AggregatedCorpus, error) {
	k := cfg.ShingleSize
	if k <= 0 {
		k = types.DefaultShingleSize
	}
	threshold := cfg.DuplicateThreshold
	if threshold <= 0 {
		threshold = types.DefaultDuplicateThreshold
	}

	var corpus types.AggregatedCorpus

	type candidate struct {
		url  string
		text string
	}
	var usable []candidate
	for _, s := range sources {
		if !s.Status.OK() {
			corpus.FailedSources = append(corpus.FailedSources, types.ExcludedSource{URL: s.URL, Reason: s.Status.Reason})
			continue
		}
		text := strings.TrimSpace(s.ExtractedText)
		if text == "" {
			corpus.FailedSources = append(corpus.FailedSources, types.ExcludedSource{URL: s.URL, Reason: types.ReasonEmptyContent})
			continue
		}
		usable = append(usable, candidate{url: s.URL, text: text})
	}
	if len(usable) == 0 {
		return corpus, fmt.Errorf("%w: all %d sources failed to fetch", types.ErrNoUsableContent, len(sources))
	}

	var kept []candidate
	var keptShingles []ShingleSet
	for _, c := range usable {
		sh := Shingles(Normalize(c.text), k)
		dup := false
		for _, prev := range keptShingles {
			if Jaccard(sh, prev) >= threshold {
				dup = true
				break
			}
		}
		if dup {
			corpus.ExcludedSources = append(corpus.ExcludedSources, types.ExcludedSource{URL: c.url, Reason: types.ExcludedDuplicate})
			continue
		}
		kept = append(kept, c)
		keptShingles = append(keptShingles, sh)
	}

	var b strings.Builder
	used := 0
	full := false
	for _, c := range kept {
		if full {
			corpus.ExcludedSources = append(corpus.ExcludedSources, types.ExcludedSource{URL: c.url, Reason: types.ExcludedBudgetExceeded})
			continue
		}

		head := Marker(c.url)
		if len(corpus.IncludedSources) > 0 {
			head = Separator + head
		}
		headLen := utf8.RuneCountInString(head)
		textLen := utf8.RuneCountInString(c.text)

		if used+headLen+textLen <= cfg.CharBudget {
			b.WriteString(head)
			b.WriteString(c.text)
			used += headLen + textLen
			corpus.IncludedSources = append(corpus.IncludedSources, c.url)
			continue
		}

		full = true
		room := cfg.CharBudget - used - headLen
		if room < 1 {
			corpus.ExcludedSources = append(corpus.ExcludedSources, types.ExcludedSource{URL: c.url, Reason: types.ExcludedBudgetExceeded})
			continue
		}
		b.WriteString(head)
		b.WriteString(truncateRunes(c.text, room))
		used += headLen + room
		corpus.IncludedSources = append(corpus.IncludedSources, c.url)
		corpus.Truncated = true
	}

	corpus.MergedText = b.String()
	corpus.TotalChars = utf8.RuneCountInString(corpus.MergedText)

	if len(corpus.IncludedSources) == 0 {
		return corpus, fmt.Errorf("%w: %d usable sources, none fit a budget of %d characters after deduplication",
			types.ErrNoUsableContent, len(usable), cfg.CharBudget)
	}
	return corpus, nil
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
