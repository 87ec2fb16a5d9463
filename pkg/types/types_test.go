// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validReport() ResearchReport {
	r := ResearchReport{
		ID:          "r-1",
		Topic:       "Quantum Computing",
		Language:    "English",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SourceURLs:  []string{"https://example.com/a"},
	}
	for i, title := range CanonicalSections {
		r.Sections = append(r.Sections, ReportSection{Index: i + 1, Title: title, Body: "body"})
	}
	return r
}

func TestReportValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *ResearchReport)
		wantErr string
	}{
		{name: "valid", mutate: func(*ResearchReport) {}},
		{
			name:    "missing section",
			mutate:  func(r *ResearchReport) { r.Sections = r.Sections[:12] },
			wantErr: "12 sections, want 13",
		},
		{
			name:    "wrong index",
			mutate:  func(r *ResearchReport) { r.Sections[4].Index = 7 },
			wantErr: "position 5 has index 7",
		},
		{
			name:    "wrong title",
			mutate:  func(r *ResearchReport) { r.Sections[8].Title = "Comparison" },
			wantErr: `section 9 title "Comparison"`,
		},
		{
			name:    "empty body",
			mutate:  func(r *ResearchReport) { r.Sections[0].Body = "  \n" },
			wantErr: "empty body",
		},
		{
			name: "custom schema",
			mutate: func(r *ResearchReport) {
				r.Schema = []string{"Overview", "Outlook"}
				r.Sections = []ReportSection{{Index: 1, Title: "Overview", Body: "a"}, {Index: 2, Title: "Outlook", Body: "b"}}
			},
		},
		{
			name: "custom schema title mismatch",
			mutate: func(r *ResearchReport) {
				r.Schema = []string{"Overview", "Outlook"}
				r.Sections = []ReportSection{{Index: 1, Title: "Overview", Body: "a"}, {Index: 2, Title: "Summary", Body: "b"}}
			},
			wantErr: `section 2 title "Summary", want "Outlook"`,
		},
		{
			name:    "no topic",
			mutate:  func(r *ResearchReport) { r.Topic = "" },
			wantErr: "no topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReport()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReportCloneDoesNotShare(t *testing.T) {
	r := validReport()
	c := r.Clone()
	c.Sections[0].Body = "changed"
	c.SourceURLs[0] = "changed"
	assert.Equal(t, "body", r.Sections[0].Body)
	assert.Equal(t, "https://example.com/a", r.SourceURLs[0])
}

func TestSchemaReturnsCopy(t *testing.T) {
	s := Schema()
	require.Len(t, s, SectionCount)
	s[0] = "x"
	assert.Equal(t, "Executive Summary", CanonicalSections[0])
}

func TestSynthesisErrorMatching(t *testing.T) {
	err := fmt.Errorf("generating report: %w", &SynthesisError{Reason: SynthesisSchema, Err: errors.New("13 sections expected")})
	assert.ErrorIs(t, err, ErrSynthesisFailed)
	assert.NotErrorIs(t, err, ErrNoUsableContent)
	assert.Equal(t, SynthesisSchema, SynthesisReason(err))
	assert.Equal(t, "", SynthesisReason(ErrSearchUnavailable))
	assert.Contains(t, err.Error(), "synthesis failed (schema)")
}

func TestFetchStatus(t *testing.T) {
	assert.True(t, StatusOK().OK())
	st := StatusFailed(ReasonTimeout)
	assert.False(t, st.OK())
	assert.Equal(t, "failed(timeout)", st.String())

	doc := FailedSource("https://x.test", ReasonBlockedURL, time.Time{})
	assert.Equal(t, ReasonBlockedURL, doc.Status.Reason)
	assert.Empty(t, doc.ExtractedText)
}

func TestPipelineConfigValidate(t *testing.T) {
	cfg := DefaultPipelineConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Aggregate.DuplicateThreshold = 1.5
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Synthesis.Provider = "mystery"
	assert.ErrorContains(t, bad.Validate(), "unsupported synthesis.provider")

	bad = cfg
	bad.Synthesis.Model = ""
	assert.Error(t, bad.Validate())
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "Tamil", NormalizeLanguage("Tamil"))
	assert.Equal(t, DefaultLanguage, NormalizeLanguage("Klingon"))
	assert.Len(t, SupportedLanguages, 12)
}
