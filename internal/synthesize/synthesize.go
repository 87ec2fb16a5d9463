// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize turns an aggregated corpus into a structured research
// report by prompting a generative model for a fixed set of delimited
// sections and validating the answer.
//
// A response that fails validation gets exactly one corrective retry.
// Transport failures are retried with exponential backoff. A report is
// either complete or not returned at all.
package synthesize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/scholarmind/pkg/types"
)

const (
	defaultMaxAttempts  = 3
	defaultModelTimeout = 3 * time.Minute
)

// backoffBase controls the base duration for exponential backoff between
// transport attempts. Tests override this to avoid real sleeps.
var backoffBase = 2 * time.Second

// Synthesizer drives the model. Now and NewID default to time.Now and
// uuid.NewString.
type Synthesizer struct {
	Generator Generator
	Config    types.SynthesisConfig
	Log       zerolog.Logger
	Now       func() time.Time
	NewID     func() string
}

// New returns a Synthesizer for gen with cfg.
func New(gen Generator, cfg types.SynthesisConfig, log zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		Generator: gen,
		Config:    cfg,
		Log:       log.With().Str("component", "synthesize").Logger(),
		Now:       time.Now,
		NewID:     uuid.NewString,
	}
}

// Synthesize produces a report on topic from corpus. A nil schema means
// types.CanonicalSections. Errors are *types.SynthesisError with reason
// "model_unavailable" or "schema", a wrapped ErrNoUsableContent for an
// empty corpus, or the context error.
func (s *Synthesizer) Synthesize(ctx context.Context, topic string, corpus types.AggregatedCorpus, schema []string) (types.ResearchReport, error) {
	if len(schema) == 0 {
		schema = types.CanonicalSections
	}
	if strings.TrimSpace(corpus.MergedText) == "" {
		return types.ResearchReport{}, fmt.Errorf("%w: empty corpus", types.ErrNoUsableContent)
	}
	lang := types.NormalizeLanguage(s.Config.Language)

	prompt, err := render(reportPromptTmpl, reportPromptData{
		Topic:    topic,
		Language: lang,
		Corpus:   corpus.MergedText,
		Sources:  corpus.IncludedSources,
		Schema:   schema,
	})
	if err != nil {
		return types.ResearchReport{}, fmt.Errorf("rendering prompt: %w", err)
	}

	raw, err := s.call(ctx, prompt)
	if err != nil {
		return types.ResearchReport{}, err
	}
	sections, verr := ValidateSections(ParseSections(raw), schema)

	if verr != nil {
		s.Log.Warn().Err(verr).Str("topic", topic).Msg("response failed validation, sending corrective prompt")
		var problems []string
		var se *SectionError
		if errors.As(verr, &se) {
			problems = se.Problems
		}
		corrective, err := render(correctivePromptTmpl, correctivePromptData{
			Base:     prompt,
			Problems: problems,
			Schema:   schema,
		})
		if err != nil {
			return types.ResearchReport{}, fmt.Errorf("rendering corrective prompt: %w", err)
		}
		raw, err = s.call(ctx, corrective)
		if err != nil {
			return types.ResearchReport{}, err
		}
		sections, verr = ValidateSections(ParseSections(raw), schema)
		if verr != nil {
			return types.ResearchReport{}, &types.SynthesisError{Reason: types.SynthesisSchema, Err: verr}
		}
	}

	report := types.ResearchReport{
		ID:          s.newID(),
		Topic:       topic,
		Language:    lang,
		Sections:    sections,
		GeneratedAt: s.now().UTC(),
		SourceURLs:  append([]string(nil), corpus.IncludedSources...),
	}
	if !slices.Equal(schema, types.CanonicalSections) {
		report.Schema = append([]string(nil), schema...)
	}
	if err := report.Validate(); err != nil {
		return types.ResearchReport{}, &types.SynthesisError{Reason: types.SynthesisSchema, Err: err}
	}

	s.Log.Info().Str("topic", topic).Str("id", report.ID).Int("sections", len(sections)).Msg("report synthesized")
	return report, nil
}

// call sends prompt with per-attempt timeouts and exponential backoff.
// Exhausted attempts yield a SynthesisError with reason model_unavailable.
func (s *Synthesizer) call(ctx context.Context, prompt string) (string, error) {
	if s.Generator == nil {
		return "", &types.SynthesisError{Reason: types.SynthesisModelUnavailable, Err: fmt.Errorf("no generator configured")}
	}
	maxAttempts := s.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	timeout := s.Config.ModelTimeout
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			s.Log.Debug().Err(lastErr).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("retrying model call")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		out, err := s.Generator.Generate(callCtx, prompt)
		cancel()
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", &types.SynthesisError{
		Reason: types.SynthesisModelUnavailable,
		Err:    fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr),
	}
}

func (s *Synthesizer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Synthesizer) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
