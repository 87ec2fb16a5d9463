// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Exclusion reasons recorded by the aggregator.
const (
	ExcludedDuplicate      = "duplicate"
	ExcludedBudgetExceeded = "budget exceeded"
)

// ExcludedSource records a source that did not make it into the corpus.
type ExcludedSource struct {
	URL    string `json:"url" yaml:"url"`
	Reason string `json:"reason" yaml:"reason"`
}

// AggregatedCorpus is the merged, bounded text handed to the model.
// TotalChars counts Unicode code points of MergedText and never exceeds the
// configured budget.
type AggregatedCorpus struct {
	MergedText      string           `json:"merged_text" yaml:"merged_text"`
	IncludedSources []string         `json:"included_sources" yaml:"included_sources"`
	ExcludedSources []ExcludedSource `json:"excluded_sources" yaml:"excluded_sources"`

	// FailedSources lists sources whose fetch failed. It never overlaps ExcludedSources.
	FailedSources []ExcludedSource `json:"failed_sources,omitempty" yaml:"failed_sources,omitempty"`

	// Truncated reports whether the last included source was cut to fit the budget.
	Truncated bool `json:"truncated" yaml:"truncated"`

	TotalChars int `json:"total_chars" yaml:"total_chars"`
}
