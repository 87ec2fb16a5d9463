// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholarmind/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

// scriptedGenerator returns its replies in order and records every prompt.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []reply
	prompts []string
}

type reply struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if len(g.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r.text, r.err
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

var fixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testSynthesizer(gen Generator) *Synthesizer {
	s := New(gen, types.SynthesisConfig{
		AIConfig: types.AIConfig{MaxAttempts: 3, ModelTimeout: time.Second},
		Language: "English",
	}, zerolog.Nop())
	s.Now = func() time.Time { return fixedTime }
	s.NewID = func() string { return "report-1" }
	return s
}

func testCorpus() types.AggregatedCorpus {
	return types.AggregatedCorpus{
		MergedText:      "[Source: https://a.example/q]\nQuantum computers use qubits.",
		IncludedSources: []string{"https://a.example/q", "https://b.example/q"},
		TotalChars:      60,
	}
}

func TestSynthesizeHappyPath(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: wellFormed(types.CanonicalSections, 0)}}}
	s := testSynthesizer(gen)

	report, err := s.Synthesize(context.Background(), "Quantum Computing", testCorpus(), nil)
	require.NoError(t, err)
	require.NoError(t, report.Validate())

	assert.Equal(t, "report-1", report.ID)
	assert.Equal(t, "Quantum Computing", report.Topic)
	assert.Equal(t, "English", report.Language)
	assert.Equal(t, fixedTime, report.GeneratedAt)
	assert.Equal(t, []string{"https://a.example/q", "https://b.example/q"}, report.SourceURLs)
	assert.Equal(t, 1, gen.calls())

	prompt := gen.prompts[0]
	assert.Contains(t, prompt, `research report on "Quantum Computing"`)
	assert.Contains(t, prompt, "Quantum computers use qubits.")
	assert.Contains(t, prompt, "- https://b.example/q")
	assert.Contains(t, prompt, "=== SECTION n: Title ===")
	assert.Contains(t, prompt, "13. Future Scope & Conclusion")
}

func TestSynthesizeMissingSectionCorrectiveRetry(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{
		{text: wellFormed(types.CanonicalSections, 9)},
		{text: wellFormed(types.CanonicalSections, 0)},
	}}
	s := testSynthesizer(gen)

	report, err := s.Synthesize(context.Background(), "Quantum Computing", testCorpus(), nil)
	require.NoError(t, err)
	assert.Len(t, report.Sections, types.SectionCount)
	assert.Equal(t, "Comparative Analysis", report.Sections[8].Title)

	require.Equal(t, 2, gen.calls())
	corrective := gen.prompts[1]
	assert.Contains(t, corrective, "STRICT REFORMAT REQUIRED")
	assert.Contains(t, corrective, "missing section 9 (Comparative Analysis)")
	assert.Contains(t, corrective, "=== SECTION 9: Comparative Analysis ===")
}

func TestSynthesizeSchemaFailureAfterRetry(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{
		{text: wellFormed(types.CanonicalSections, 9)},
		{text: wellFormed(types.CanonicalSections, 9)},
	}}
	s := testSynthesizer(gen)

	report, err := s.Synthesize(context.Background(), "Quantum Computing", testCorpus(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSynthesisFailed))
	assert.Equal(t, types.SynthesisSchema, types.SynthesisReason(err))
	assert.Equal(t, types.ResearchReport{}, report, "no partial report")
	assert.Equal(t, 2, gen.calls(), "exactly one corrective retry")
}

func TestSynthesizeTransportRetry(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{
		{err: errors.New("connection reset")},
		{err: fmt.Errorf("gemini: %w", ErrRateLimited)},
		{text: wellFormed(types.CanonicalSections, 0)},
	}}
	s := testSynthesizer(gen)

	_, err := s.Synthesize(context.Background(), "Quantum Computing", testCorpus(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, gen.calls())
}

func TestSynthesizeModelUnavailable(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{
		{err: errors.New("503")},
		{err: errors.New("503")},
		{err: errors.New("503")},
	}}
	s := testSynthesizer(gen)

	_, err := s.Synthesize(context.Background(), "Quantum Computing", testCorpus(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSynthesisFailed))
	assert.Equal(t, types.SynthesisModelUnavailable, types.SynthesisReason(err))
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, gen.calls())
}

func TestSynthesizeEmptyCorpusNoModelCall(t *testing.T) {
	gen := &scriptedGenerator{}
	s := testSynthesizer(gen)

	_, err := s.Synthesize(context.Background(), "Quantum Computing", types.AggregatedCorpus{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNoUsableContent))
	assert.Equal(t, 0, gen.calls())
}

func TestSynthesizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := GeneratorFunc(func(context.Context, string) (string, error) {
		cancel()
		return "", errors.New("aborted")
	})
	s := testSynthesizer(gen)

	_, err := s.Synthesize(ctx, "Quantum Computing", testCorpus(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, types.ErrSynthesisFailed))
}

func TestSynthesizePerCallTimeout(t *testing.T) {
	var deadlines []time.Duration
	gen := GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		dl, ok := ctx.Deadline()
		require.True(t, ok)
		deadlines = append(deadlines, time.Until(dl))
		return wellFormed(types.CanonicalSections, 0), nil
	})
	s := testSynthesizer(gen)
	s.Config.ModelTimeout = 500 * time.Millisecond

	_, err := s.Synthesize(context.Background(), "Quantum Computing", testCorpus(), nil)
	require.NoError(t, err)
	require.Len(t, deadlines, 1)
	assert.LessOrEqual(t, deadlines[0], 500*time.Millisecond)
}

func TestSynthesizeEmptyBodyPlaceholder(t *testing.T) {
	raw := strings.Replace(wellFormed(types.CanonicalSections, 0), "Body of Introduction.", "", 1)
	gen := &scriptedGenerator{replies: []reply{{text: raw}}}
	s := testSynthesizer(gen)

	report, err := s.Synthesize(context.Background(), "Quantum Computing", testCorpus(), nil)
	require.NoError(t, err)
	assert.Equal(t, EmptySectionPlaceholder, report.Sections[1].Body)
}

func TestSynthesizeLanguage(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: wellFormed(types.CanonicalSections, 0)}}}
	s := testSynthesizer(gen)
	s.Config.Language = "Hindi"

	report, err := s.Synthesize(context.Background(), "Quantum Computing", testCorpus(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Hindi", report.Language)
	assert.Contains(t, gen.prompts[0], "Write the ENTIRE report in Hindi.")

	s.Config.Language = "Klingon"
	gen.replies = []reply{{text: wellFormed(types.CanonicalSections, 0)}}
	report, err = s.Synthesize(context.Background(), "Quantum Computing", testCorpus(), nil)
	require.NoError(t, err)
	assert.Equal(t, "English", report.Language)
}

func TestSynthesizeCustomSchema(t *testing.T) {
	schema := []string{"Overview", "Details"}
	gen := &scriptedGenerator{replies: []reply{{text: wellFormed(schema, 0)}}}
	s := testSynthesizer(gen)

	report, err := s.Synthesize(context.Background(), "Quantum Computing", testCorpus(), schema)
	require.NoError(t, err)
	require.Len(t, report.Sections, 2)
	assert.NoError(t, report.ValidateSchema(schema))
	assert.Equal(t, schema, report.Schema)
	assert.NoError(t, report.Validate())

	gen = &scriptedGenerator{replies: []reply{{text: wellFormed(types.CanonicalSections, 0)}}}
	report, err = testSynthesizer(gen).Synthesize(context.Background(), "Quantum Computing", testCorpus(), types.Schema())
	require.NoError(t, err)
	assert.Nil(t, report.Schema)
}

func TestFallbackGenerator(t *testing.T) {
	failing := GeneratorFunc(func(context.Context, string) (string, error) {
		return "", errors.New("model not found")
	})
	ok := GeneratorFunc(func(context.Context, string) (string, error) {
		return "answer", nil
	})

	f := &FallbackGenerator{Generators: []Generator{failing, ok}, Log: zerolog.Nop()}
	out, err := f.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestFallbackGeneratorStopsOnRateLimit(t *testing.T) {
	var secondCalled bool
	limited := GeneratorFunc(func(context.Context, string) (string, error) {
		return "", rateLimited("gemini", errors.New("429"))
	})
	second := GeneratorFunc(func(context.Context, string) (string, error) {
		secondCalled = true
		return "answer", nil
	})

	f := &FallbackGenerator{Generators: []Generator{limited, second}, Log: zerolog.Nop()}
	_, err := f.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, secondCalled)
}

func TestFallbackGeneratorAllFail(t *testing.T) {
	f := &FallbackGenerator{Generators: []Generator{
		GeneratorFunc(func(context.Context, string) (string, error) { return "", errors.New("first") }),
		GeneratorFunc(func(context.Context, string) (string, error) { return "", errors.New("last") }),
	}, Log: zerolog.Nop()}
	_, err := f.Generate(context.Background(), "p")
	assert.EqualError(t, err, "last")

	_, err = (&FallbackGenerator{}).Generate(context.Background(), "p")
	assert.Error(t, err)
}

func TestNewGeneratorErrors(t *testing.T) {
	_, err := NewGenerator(context.Background(), types.AIConfig{Provider: types.ProviderOpenAI, Model: "m"}, zerolog.Nop())
	assert.ErrorContains(t, err, "no API key")

	_, err = NewGenerator(context.Background(), types.AIConfig{Provider: "mystery", Model: "m", APIKey: "k"}, zerolog.Nop())
	assert.ErrorContains(t, err, "unsupported provider")

	_, err = NewGenerator(context.Background(), types.AIConfig{Provider: types.ProviderOpenAI, APIKey: "k"}, zerolog.Nop())
	assert.ErrorContains(t, err, "no model configured")
}

func TestNewGeneratorFallbackChain(t *testing.T) {
	g, err := NewGenerator(context.Background(), types.AIConfig{
		Provider:       types.ProviderAnthropic,
		Model:          "claude-primary",
		FallbackModels: []string{"claude-secondary"},
		APIKey:         "k",
	}, zerolog.Nop())
	require.NoError(t, err)

	chain, ok := g.(*FallbackGenerator)
	require.True(t, ok)
	require.Len(t, chain.Generators, 2)
	assert.Equal(t, "claude-primary", nameOf(chain.Generators[0]))
	assert.Equal(t, "claude-secondary", nameOf(chain.Generators[1]))
}
