// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/scholarmind/pkg/types"
)

const (
	chatContextChars   = 4000
	speechSummaryChars = 3000

	// DefaultSpeechMinutes is used when an unsupported duration is requested.
	DefaultSpeechMinutes = 10
)

// SpeechDurations are the supported speech lengths in minutes.
var SpeechDurations = []int{5, 10, 15, 20}

const noReportContext = "No research report has been generated yet. Answer using general knowledge."

// Chat answers a follow-up question about report. Only the first 4000
// characters of the report text are sent as context.
func (s *Synthesizer) Chat(ctx context.Context, report types.ResearchReport, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question is empty")
	}
	reportCtx := clip(ReportText(report), chatContextChars)
	if reportCtx == "" {
		reportCtx = noReportContext
	}
	topic := report.Topic
	if topic == "" {
		topic = "general"
	}

	prompt, err := render(chatPromptTmpl, chatPromptData{
		Topic:    topic,
		Language: s.language(report),
		Context:  reportCtx,
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("rendering chat prompt: %w", err)
	}
	reply, err := s.call(ctx, prompt)
	if err != nil {
		return "", err
	}
	s.Log.Debug().Int("chars", len(reply)).Msg("chat reply")
	return strings.TrimSpace(reply), nil
}

// Speech writes a timed presentation script for report. Minutes outside
// SpeechDurations fall back to DefaultSpeechMinutes.
func (s *Synthesizer) Speech(ctx context.Context, report types.ResearchReport, minutes int) (string, error) {
	if err := report.Validate(); err != nil {
		return "", fmt.Errorf("invalid report: %w", err)
	}
	minutes = SpeechMinutes(minutes)

	slides := make([]string, 0, len(report.Sections)+2)
	slides = append(slides, report.Topic)
	for _, sec := range report.Sections {
		slides = append(slides, sec.Title)
	}
	slides = append(slides, "References")

	prompt, err := render(speechPromptTmpl, speechPromptData{
		Topic:    report.Topic,
		Language: s.language(report),
		Minutes:  minutes,
		Slides:   slides,
		Summary:  clip(ReportText(report), speechSummaryChars),
	})
	if err != nil {
		return "", fmt.Errorf("rendering speech prompt: %w", err)
	}
	out, err := s.call(ctx, prompt)
	if err != nil {
		return "", err
	}
	s.Log.Info().Int("minutes", minutes).Int("chars", len(out)).Msg("speech generated")
	return strings.TrimSpace(out), nil
}

// SpeechMinutes normalizes a requested speech duration.
func SpeechMinutes(minutes int) int {
	for _, d := range SpeechDurations {
		if d == minutes {
			return minutes
		}
	}
	return DefaultSpeechMinutes
}

// ReportText flattens a report into numbered headings and bodies.
func ReportText(r types.ResearchReport) string {
	var b strings.Builder
	for i, sec := range r.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %d. %s\n\n%s", sec.Index, sec.Title, sec.Body)
	}
	return b.String()
}

func (s *Synthesizer) language(r types.ResearchReport) string {
	if r.Language != "" {
		return types.NormalizeLanguage(r.Language)
	}
	return types.NormalizeLanguage(s.Config.Language)
}

// clip returns the first n runes of text, with "..." appended when cut.
func clip(text string, n int) string {
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos] + "..."
		}
		i++
	}
	return text
}
