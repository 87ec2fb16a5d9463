// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FetchState tags a FetchStatus as successful or failed.
type FetchState string

const (
	FetchOK     FetchState = "ok"
	FetchFailed FetchState = "failed"
)

// Canonical failure reasons recorded on SourceDocuments.
const (
	ReasonTimeout             = "timeout"
	ReasonCancelled           = "cancelled"
	ReasonEmptyContent        = "empty content"
	ReasonInsufficientContent = "insufficient content"
	ReasonBlockedURL          = "blocked url"
)

// FetchStatus is the outcome of a single page fetch: Ok, or Failed with a reason.
type FetchStatus struct {
	State  FetchState `json:"state" yaml:"state"`
	Reason string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// StatusOK returns the successful fetch status.
func StatusOK() FetchStatus {
	return FetchStatus{State: FetchOK}
}

// StatusFailed returns a failed fetch status carrying reason.
func StatusFailed(reason string) FetchStatus {
	return FetchStatus{State: FetchFailed, Reason: reason}
}

// OK reports whether the fetch succeeded.
func (s FetchStatus) OK() bool { return s.State == FetchOK }

func (s FetchStatus) String() string {
	if s.OK() {
		return "ok"
	}
	return "failed(" + s.Reason + ")"
}

// SourceDocument is the record of one fetch attempt. Exactly one is produced
// per URL attempted; failures are kept so later stages can report coverage.
type SourceDocument struct {
	// URL is the address that was fetched.
	URL string `json:"url" yaml:"url"`

	// Title is the page title from OpenGraph metadata, <title>, or the search result.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// SiteName is the OpenGraph site name, if present.
	SiteName string `json:"site_name,omitempty" yaml:"site_name,omitempty"`

	// RawText is the body as received (bounded by the fetch byte cap).
	RawText string `json:"-" yaml:"-"`

	// ExtractedText is the readable text after markup and boilerplate removal.
	ExtractedText string `json:"extracted_text,omitempty" yaml:"extracted_text,omitempty"`

	// Status is Ok or Failed(reason).
	Status FetchStatus `json:"status" yaml:"status"`

	// FetchedAt is when the attempt finished.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// FailedSource builds a failed SourceDocument for url.
func FailedSource(url, reason string, at time.Time) SourceDocument {
	return SourceDocument{
		URL:       url,
		Status:    StatusFailed(reason),
		FetchedAt: at,
	}
}
