// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholarmind/internal/export"
	"github.com/pdiddy/scholarmind/internal/fetch"
	"github.com/pdiddy/scholarmind/internal/search"
	"github.com/pdiddy/scholarmind/internal/synthesize"
	"github.com/pdiddy/scholarmind/pkg/types"
)

type fakeBackend struct {
	results []types.SearchResult
	err     error
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Search(context.Context, string, int) ([]types.SearchResult, error) {
	return b.results, b.err
}

// fakeFetcher searches with search and answers from a URL → document
// table; unknown URLs fail.
type fakeFetcher struct {
	search     fetch.SearchFunc
	docs       map[string]types.SourceDocument
	calls      int
	maxResults int
}

func (f *fakeFetcher) FetchSources(ctx context.Context, topic string, maxResults int) ([]types.SourceDocument, error) {
	f.maxResults = maxResults
	results, err := f.search(ctx, topic, maxResults)
	if err != nil {
		return nil, err
	}
	f.calls++
	out := make([]types.SourceDocument, len(results))
	for i, r := range results {
		if d, ok := f.docs[r.URL]; ok {
			out[i] = d
			continue
		}
		out[i] = types.FailedSource(r.URL, "http 404", time.Time{})
	}
	return out, nil
}

type fakeSynthesizer struct {
	mu     sync.Mutex
	calls  int
	corpus types.AggregatedCorpus
	err    error
}

func (s *fakeSynthesizer) Synthesize(_ context.Context, topic string, corpus types.AggregatedCorpus, schema []string) (types.ResearchReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.corpus = corpus
	if s.err != nil {
		return types.ResearchReport{}, s.err
	}
	return validReport(topic, corpus.IncludedSources), nil
}

func validReport(topic string, urls []string) types.ResearchReport {
	r := types.ResearchReport{
		ID:          "r-1",
		Topic:       topic,
		Language:    "English",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SourceURLs:  append([]string(nil), urls...),
	}
	for i, title := range types.CanonicalSections {
		r.Sections = append(r.Sections, types.ReportSection{Index: i + 1, Title: title, Body: "Body of " + title + "."})
	}
	return r
}

func okDoc(url, text string) types.SourceDocument {
	return types.SourceDocument{URL: url, ExtractedText: text, Status: types.StatusOK()}
}

func results(urls ...string) []types.SearchResult {
	out := make([]types.SearchResult, len(urls))
	for i, u := range urls {
		out[i] = types.SearchResult{URL: u, Title: fmt.Sprintf("Result %d", i+1), Source: "fake"}
	}
	return out
}

func testPipeline(b search.Backend, f Fetcher, s Synthesizer) *Pipeline {
	cfg := types.DefaultPipelineConfig()
	cfg.Aggregate = types.DefaultAggregateConfig()
	p := &Pipeline{
		Config:      cfg,
		Backends:    []search.Backend{b},
		Fetcher:     f,
		Synthesizer: s,
		Log:         zerolog.Nop(),
	}
	switch f := f.(type) {
	case *fakeFetcher:
		f.search = p.SearchResults
	case *fetch.Fetcher:
		f.Search = p.SearchResults
	}
	return p
}

func TestGenerateReportQuantumComputing(t *testing.T) {
	urls := []string{
		"https://en.wikipedia.org/wiki/Quantum_computing",
		"https://a.example/qc",
		"https://b.example/qc",
		"https://c.example/qc",
		"https://d.example/broken",
	}
	backend := &fakeBackend{results: results(urls...)}
	fetcher := &fakeFetcher{docs: map[string]types.SourceDocument{
		urls[0]: okDoc(urls[0], "Quantum computing is a type of computation that harnesses quantum mechanical phenomena."),
		urls[1]: okDoc(urls[1], "Qubits can exist in superposition, which lets quantum algorithms explore many states."),
		urls[2]: okDoc(urls[2], "Error correction remains the central engineering challenge for large quantum machines."),
		urls[3]: okDoc(urls[3], "Companies such as IBM and Google publish roadmaps toward fault tolerant processors."),
	}}
	synth := &fakeSynthesizer{}
	p := testPipeline(backend, fetcher, synth)

	res, err := p.Run(context.Background(), "  Quantum Computing ")
	require.NoError(t, err)

	require.NoError(t, res.Report.Validate())
	assert.Equal(t, "Quantum Computing", res.Report.Topic)
	assert.Equal(t, urls[:4], res.Report.SourceURLs)
	assert.Len(t, res.Sources, 5)
	assert.Equal(t, []types.ExcludedSource{{URL: urls[4], Reason: "http 404"}}, res.Corpus.FailedSources)
	assert.LessOrEqual(t, res.Corpus.TotalChars, types.DefaultCharBudget)
	assert.Equal(t, 1, synth.calls)
	assert.Equal(t, types.DefaultMaxResults, fetcher.maxResults)
	assert.Equal(t, results(urls...), res.Search.Results)
	for _, stage := range []string{"search", "fetch", "aggregate", "synthesize"} {
		assert.Contains(t, res.Timings, stage)
	}
}

func TestRunBoundsSearchAndFetchByMaxResults(t *testing.T) {
	urls := []string{"https://a.example/1", "https://b.example/2", "https://c.example/3"}
	backend := &fakeBackend{results: results(urls...)}
	fetcher := &fakeFetcher{docs: map[string]types.SourceDocument{
		urls[0]: okDoc(urls[0], "Quantum computing harnesses superposition and entanglement."),
		urls[1]: okDoc(urls[1], "Error correction protects fragile qubits from decoherence."),
		urls[2]: okDoc(urls[2], "This third source must never be attempted."),
	}}
	p := testPipeline(backend, fetcher, &fakeSynthesizer{})
	p.Config.Search.MaxResults = 2

	res, err := p.Run(context.Background(), "Quantum Computing")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.maxResults)
	assert.Len(t, res.Search.Results, 2)
	assert.Len(t, res.Sources, 2)
	assert.Equal(t, urls[:2], res.Report.SourceURLs)
}

func TestGenerateReportAllFetchesFail(t *testing.T) {
	backend := &fakeBackend{results: results("https://a.example/1", "https://b.example/2")}
	synth := &fakeSynthesizer{}
	p := testPipeline(backend, &fakeFetcher{}, synth)

	_, err := p.GenerateReport(context.Background(), "Quantum Computing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNoUsableContent))
	assert.Equal(t, 0, synth.calls, "no model call without content")
	assert.Equal(t, 2, ExitCode(err))
}

func TestGenerateReportNoSearchResults(t *testing.T) {
	synth := &fakeSynthesizer{}
	p := testPipeline(&fakeBackend{}, &fakeFetcher{}, synth)

	_, err := p.GenerateReport(context.Background(), "xyzzy")
	assert.True(t, errors.Is(err, types.ErrNoUsableContent))
	assert.Equal(t, 0, synth.calls)
}

func TestGenerateReportSearchUnavailable(t *testing.T) {
	fetcher := &fakeFetcher{}
	synth := &fakeSynthesizer{}
	p := testPipeline(&fakeBackend{err: errors.New("dial tcp: connection refused")}, fetcher, synth)

	_, err := p.GenerateReport(context.Background(), "Quantum Computing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSearchUnavailable))
	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, 3, ExitCode(err))
}

func TestGenerateReportSynthesisFailure(t *testing.T) {
	backend := &fakeBackend{results: results("https://a.example/1")}
	fetcher := &fakeFetcher{docs: map[string]types.SourceDocument{
		"https://a.example/1": okDoc("https://a.example/1", "Some content about quantum computers and their qubits."),
	}}
	synth := &fakeSynthesizer{err: &types.SynthesisError{Reason: types.SynthesisSchema, Err: errors.New("missing section 9")}}
	p := testPipeline(backend, fetcher, synth)

	report, err := p.GenerateReport(context.Background(), "Quantum Computing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSynthesisFailed))
	assert.Equal(t, 4, ExitCode(err))
	assert.Equal(t, types.ResearchReport{}, report)
}

func TestGenerateReportCancelled(t *testing.T) {
	fetcher := &fakeFetcher{}
	p := testPipeline(&fakeBackend{results: results("https://a.example/1")}, fetcher, &fakeSynthesizer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.GenerateReport(ctx, "Quantum Computing")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, fetcher.calls)
}

func TestGenerateReportEmptyTopic(t *testing.T) {
	p := testPipeline(&fakeBackend{}, &fakeFetcher{}, &fakeSynthesizer{})
	_, err := p.GenerateReport(context.Background(), "   ")
	assert.ErrorContains(t, err, "topic is empty")
}

func TestGenerateReportReturnsCopy(t *testing.T) {
	backend := &fakeBackend{results: results("https://a.example/1")}
	fetcher := &fakeFetcher{docs: map[string]types.SourceDocument{
		"https://a.example/1": okDoc("https://a.example/1", "Some content about quantum computers and their qubits."),
	}}
	p := testPipeline(backend, fetcher, &fakeSynthesizer{})

	a, err := p.GenerateReport(context.Background(), "Quantum Computing")
	require.NoError(t, err)
	a.Sections[0].Body = "changed"
	a.SourceURLs[0] = "changed"

	b, err := p.GenerateReport(context.Background(), "Quantum Computing")
	require.NoError(t, err)
	assert.NotEqual(t, "changed", b.Sections[0].Body)
}

const pageA = `<html><head><title>Quantum computing</title></head><body><article>
<p>Quantum computers use qubits which can exist in a superposition of zero and one at the same time.</p>
<p>Entanglement links qubits so that measuring one of them immediately constrains the state of the others.</p>
<p>Algorithms such as Shor and Grover show speedups over the best known classical methods for some problems.</p>
</article></body></html>`

const pageB = `<html><head><title>Error correction</title></head><body><article>
<p>Physical qubits are fragile and lose their information to the environment through decoherence quickly.</p>
<p>Surface codes combine many physical qubits into one logical qubit that survives ordinary hardware noise.</p>
<p>Hardware groups report steady improvements in gate fidelity and in the lifetime of stored quantum states.</p>
</article></body></html>`

func TestRunWithRealFetcherAndSynthesizer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, pageA)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, pageB)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := fetch.New(nil, types.FetchConfig{
		HTTPConfig:      types.HTTPConfig{Timeout: 2 * time.Second},
		MaxBytes:        1 << 20,
		MinContentChars: 100,
	}, zerolog.Nop())
	f.AllowPrivateHosts = true

	var prompts []string
	gen := synthesize.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		var b strings.Builder
		for i, title := range types.CanonicalSections {
			fmt.Fprintf(&b, "=== SECTION %d: %s ===\nText for %s.\n", i+1, title, title)
		}
		return b.String(), nil
	})
	synth := synthesize.New(gen, types.SynthesisConfig{Language: "English"}, zerolog.Nop())

	backend := &fakeBackend{results: results(ts.URL+"/a", ts.URL+"/b", ts.URL+"/missing")}
	p := testPipeline(backend, f, synth)

	res, err := p.Run(context.Background(), "Quantum Computing")
	require.NoError(t, err)
	require.NoError(t, res.Report.Validate())
	assert.Equal(t, []string{ts.URL + "/a", ts.URL + "/b"}, res.Report.SourceURLs)
	assert.Len(t, res.Corpus.FailedSources, 1)
	assert.Len(t, res.Search.Results, 3)

	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "[Source: "+ts.URL+"/a]")
	assert.Contains(t, prompts[0], "Surface codes combine many physical qubits")
}

func TestExportAndExportAll(t *testing.T) {
	report := validReport("Quantum Computing", []string{"https://a.example/1"})

	data, err := Export(report, export.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Quantum Computing")

	bad := report.Clone()
	bad.Sections = bad.Sections[:5]
	_, err = Export(bad, export.FormatPDF)
	assert.True(t, errors.Is(err, types.ErrRenderFailed))
	assert.Equal(t, 4, ExitCode(err))

	p := testPipeline(&fakeBackend{}, &fakeFetcher{}, &fakeSynthesizer{})
	p.Config.Export.OutputDir = t.TempDir()
	p.Config.Export.Formats = []string{"md", "json"}
	paths, err := p.ExportAll(report)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, path := range paths {
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}
	assert.Equal(t, "quantum-computing.md", filepath.Base(paths[0]))
	assert.Equal(t, "quantum-computing.json", filepath.Base(paths[1]))
}

func TestExportAllPDFFont(t *testing.T) {
	report := validReport("Quantum Computing", []string{"https://a.example/1"})
	report.Language = "Hindi"

	p := testPipeline(&fakeBackend{}, &fakeFetcher{}, &fakeSynthesizer{})
	p.Config.Export.OutputDir = t.TempDir()
	p.Config.Export.Formats = []string{"md", "pdf"}

	paths, err := p.ExportAll(report)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrRenderFailed))
	assert.ErrorContains(t, err, "Unicode font")
	assert.Equal(t, 4, ExitCode(err))
	assert.Len(t, paths, 1)

	p.Config.Export.FontFile = filepath.Join(t.TempDir(), "missing.ttf")
	_, err = p.ExportAll(report)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrRenderFailed))
	assert.NotContains(t, err.Error(), "needs a Unicode font")
}

func TestCustomSchemaReportExports(t *testing.T) {
	schema := []string{"Overview", "Details", "Outlook"}
	gen := synthesize.GeneratorFunc(func(context.Context, string) (string, error) {
		var b strings.Builder
		for i, title := range schema {
			fmt.Fprintf(&b, "=== SECTION %d: %s ===\nText for %s.\n", i+1, title, title)
		}
		return b.String(), nil
	})
	backend := &fakeBackend{results: results("https://a.example/1")}
	fetcher := &fakeFetcher{docs: map[string]types.SourceDocument{
		"https://a.example/1": okDoc("https://a.example/1", "Some content about quantum computers and their qubits."),
	}}
	p := testPipeline(backend, fetcher, synthesize.New(gen, types.SynthesisConfig{Language: "English"}, zerolog.Nop()))
	p.Schema = schema

	report, err := p.GenerateReport(context.Background(), "Quantum Computing")
	require.NoError(t, err)
	require.Len(t, report.Sections, 3)

	for _, f := range export.Formats() {
		_, err := Export(report, f)
		assert.NoError(t, err, f)
	}
}

func TestExitCodeAndAdvice(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{fmt.Errorf("x: %w", types.ErrNoUsableContent), 2},
		{fmt.Errorf("x: %w", types.ErrSearchUnavailable), 3},
		{&types.SynthesisError{Reason: types.SynthesisModelUnavailable}, 3},
		{&types.SynthesisError{Reason: types.SynthesisSchema}, 4},
		{errors.New("boom"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, ExitCode(tt.err), "%v", tt.err)
		if tt.code > 1 {
			assert.NotEmpty(t, Advice(tt.err))
		}
	}
	assert.NotEmpty(t, Advice(context.Canceled))
	assert.Empty(t, Advice(errors.New("boom")))
}
