// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// SectionCount is the number of sections in the canonical schema.
const SectionCount = 13

// CanonicalSections is the fixed section schema of a research report, in order.
var CanonicalSections = []string{
	"Executive Summary",
	"Introduction",
	"Historical Background & Evolution",
	"Core Concepts and Theoretical Framework",
	"Technical Architecture / Working Mechanism",
	"Methodology & Research Approaches",
	"Real-World Applications & Use Cases",
	"Case Studies & Industry Examples",
	"Comparative Analysis",
	"Advantages and Strengths",
	"Limitations, Challenges & Ethical Considerations",
	"Current Trends and Innovations",
	"Future Scope & Conclusion",
}

// Schema returns a copy of CanonicalSections.
func Schema() []string {
	out := make([]string, len(CanonicalSections))
	copy(out, CanonicalSections)
	return out
}

// ReportSection is one titled section of a research report.
type ReportSection struct {
	// Index is the 1-based position in the canonical schema.
	Index int `json:"index" yaml:"index"`

	// Title is the canonical section title.
	Title string `json:"title" yaml:"title"`

	// Body is the section text. Never empty in a finished report.
	Body string `json:"body" yaml:"body"`
}

// ResearchReport is the finished document shared by all exporters. It is
// treated as immutable once synthesis returns it.
type ResearchReport struct {
	ID          string          `json:"id" yaml:"id"`
	Topic       string          `json:"topic" yaml:"topic"`
	Language    string          `json:"language" yaml:"language"`
	Sections    []ReportSection `json:"sections" yaml:"sections"`
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
	SourceURLs  []string        `json:"source_urls" yaml:"source_urls"`

	// Schema lists the section titles the report was written against. Empty
	// means CanonicalSections.
	Schema []string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// SectionSchema returns the titles the report's sections must carry.
func (r ResearchReport) SectionSchema() []string {
	if len(r.Schema) == 0 {
		return CanonicalSections
	}
	return r.Schema
}

// Validate checks the structural invariants of a finished report against its
// section schema (13 canonical sections unless Schema says otherwise):
// indices 1..n in order, schema titles, non-empty bodies.
func (r ResearchReport) Validate() error {
	return r.ValidateSchema(r.SectionSchema())
}

// ValidateSchema is Validate against an explicit schema.
func (r ResearchReport) ValidateSchema(schema []string) error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("report has no topic")
	}
	if len(schema) == 0 {
		return fmt.Errorf("report schema is empty")
	}
	if len(r.Sections) != len(schema) {
		return fmt.Errorf("report has %d sections, want %d", len(r.Sections), len(schema))
	}
	for i, s := range r.Sections {
		if s.Index != i+1 {
			return fmt.Errorf("section at position %d has index %d", i+1, s.Index)
		}
		if s.Title != schema[i] {
			return fmt.Errorf("section %d title %q, want %q", s.Index, s.Title, schema[i])
		}
		if strings.TrimSpace(s.Body) == "" {
			return fmt.Errorf("section %d (%s) has an empty body", s.Index, s.Title)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can hand the report out without
// sharing slices.
func (r ResearchReport) Clone() ResearchReport {
	c := r
	c.Sections = append([]ReportSection(nil), r.Sections...)
	c.SourceURLs = append([]string(nil), r.SourceURLs...)
	if r.Schema != nil {
		c.Schema = append([]string(nil), r.Schema...)
	}
	return c
}
