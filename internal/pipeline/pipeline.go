// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs topic → search → fetch → aggregate → synthesize and
// hands the finished report to the exporters. Stages run strictly in
// sequence; the context is checked at every stage boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/scholarmind/internal/aggregate"
	"github.com/pdiddy/scholarmind/internal/export"
	"github.com/pdiddy/scholarmind/internal/fetch"
	"github.com/pdiddy/scholarmind/internal/pagecache"
	"github.com/pdiddy/scholarmind/internal/search"
	"github.com/pdiddy/scholarmind/internal/synthesize"
	"github.com/pdiddy/scholarmind/pkg/types"
)

// Fetcher searches for a topic and fetches the hits. *fetch.Fetcher
// satisfies it when its Search is Pipeline.SearchResults.
type Fetcher interface {
	FetchSources(ctx context.Context, topic string, maxResults int) ([]types.SourceDocument, error)
}

// Synthesizer writes the report. *synthesize.Synthesizer satisfies it.
type Synthesizer interface {
	Synthesize(ctx context.Context, topic string, corpus types.AggregatedCorpus, schema []string) (types.ResearchReport, error)
}

// Pipeline wires the stages together.
type Pipeline struct {
	Config      types.PipelineConfig
	Backends    []search.Backend
	Fetcher     Fetcher
	Synthesizer Synthesizer

	// Schema is the section schema; nil means types.CanonicalSections.
	Schema []string

	Log zerolog.Logger

	cache *pagecache.Store
}

// Result carries the report together with the provenance of each stage.
type Result struct {
	Report  types.ResearchReport
	Search  search.SearchOutput
	Sources []types.SourceDocument
	Corpus  types.AggregatedCorpus
	Timings map[string]time.Duration
}

// New builds a Pipeline from cfg: HTTP search backends, a fetcher backed by
// the page cache when cfg.Cache.Path is set, and a model generator for
// cfg.Synthesis. Call Close when done.
func New(ctx context.Context, cfg types.PipelineConfig, log zerolog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.Search.Timeout}
	backends, err := search.NewBackends(cfg.Search.Backends, cfg.Search, client, log)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Config:   cfg,
		Backends: backends,
		Log:      log.With().Str("component", "pipeline").Logger(),
	}
	fetcher := fetch.New(p.SearchResults, cfg.Fetch, log)
	var cache *pagecache.Store
	if cfg.Cache.Path != "" {
		cache, err = pagecache.Open(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("opening page cache: %w", err)
		}
		fetcher.Cache = cache
	}

	gen, err := synthesize.NewGenerator(ctx, cfg.Synthesis.AIConfig, log)
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, err
	}

	p.Fetcher = fetcher
	p.Synthesizer = synthesize.New(gen, cfg.Synthesis, log)
	p.cache = cache
	return p, nil
}

// searchRecord receives the search output of one Run.
type searchRecord struct {
	out  search.SearchOutput
	took time.Duration
}

type searchRecordKey struct{}

// SearchResults queries the pipeline's backends for at most maxResults hits.
// It is the fetch.SearchFunc of the fetcher built by New.
func (p *Pipeline) SearchResults(ctx context.Context, topic string, maxResults int) ([]types.SearchResult, error) {
	cfg := p.Config.Search
	cfg.MaxResults = maxResults
	start := time.Now()
	out, err := search.Search(ctx, topic, p.Backends, cfg, p.Log)
	if rec, ok := ctx.Value(searchRecordKey{}).(*searchRecord); ok {
		rec.out = out
		rec.took = time.Since(start)
	}
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Close releases the page cache, if any.
func (p *Pipeline) Close() error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Close()
}

// GenerateReport turns topic into a validated research report.
//
// Errors keep their kind through wrapping: types.ErrSearchUnavailable,
// types.ErrNoUsableContent, types.ErrSynthesisFailed, or the context error.
func (p *Pipeline) GenerateReport(ctx context.Context, topic string) (types.ResearchReport, error) {
	res, err := p.Run(ctx, topic)
	if err != nil {
		return types.ResearchReport{}, err
	}
	return res.Report.Clone(), nil
}

// Run is GenerateReport with stage provenance. On error the Result holds
// whatever the completed stages produced.
func (p *Pipeline) Run(ctx context.Context, topic string) (Result, error) {
	res := Result{Timings: make(map[string]time.Duration)}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return res, fmt.Errorf("topic is empty")
	}
	if p.Fetcher == nil || p.Synthesizer == nil {
		return res, fmt.Errorf("pipeline is not fully configured")
	}
	log := p.Log.With().Str("topic", topic).Logger()

	stage := func(name string, start time.Time) {
		res.Timings[name] = time.Since(start)
		log.Info().Str("stage", name).Dur("took", res.Timings[name]).Msg("stage done")
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	start := time.Now()
	rec := &searchRecord{}
	sources, err := p.Fetcher.FetchSources(context.WithValue(ctx, searchRecordKey{}, rec), topic, p.Config.Search.MaxResults)
	res.Search = rec.out
	if err != nil {
		return res, fmt.Errorf("searching %q: %w", topic, err)
	}
	res.Sources = sources
	res.Timings["search"] = rec.took
	log.Info().Str("stage", "search").Dur("took", rec.took).Int("results", len(rec.out.Results)).Msg("stage done")
	stage("fetch", start.Add(rec.took))

	if err := ctx.Err(); err != nil {
		return res, err
	}
	start = time.Now()
	aggCfg := p.Config.Aggregate
	if aggCfg.CharBudget == 0 && aggCfg.DuplicateThreshold == 0 {
		aggCfg = types.DefaultAggregateConfig()
	}
	corpus, err := aggregate.Aggregate(res.Sources, aggCfg)
	res.Corpus = corpus
	if err != nil {
		return res, fmt.Errorf("aggregating %d sources: %w", len(res.Sources), err)
	}
	stage("aggregate", start)
	log.Info().
		Int("included", len(corpus.IncludedSources)).
		Int("excluded", len(corpus.ExcludedSources)).
		Int("failed", len(corpus.FailedSources)).
		Int("chars", corpus.TotalChars).
		Msg("corpus ready")

	if err := ctx.Err(); err != nil {
		return res, err
	}
	start = time.Now()
	report, err := p.Synthesizer.Synthesize(ctx, topic, corpus, p.Schema)
	if err != nil {
		return res, fmt.Errorf("synthesizing report: %w", err)
	}
	stage("synthesize", start)

	res.Report = report
	return res, nil
}

// Export renders report in format. The report is copied first so the
// caller's value is never shared with an exporter.
func Export(report types.ResearchReport, format export.Format) ([]byte, error) {
	return export.Render(report.Clone(), format)
}

// ExportAll writes report in every configured format to the output
// directory and returns the written paths. PDFs use Export.FontFile when set.
// Rendering stops at the first failure.
func (p *Pipeline) ExportAll(report types.ResearchReport) ([]string, error) {
	dir := p.Config.Export.OutputDir
	if dir == "" {
		dir = "output"
	}
	formats := p.Config.Export.Formats
	if len(formats) == 0 {
		formats = []string{string(export.FormatPDF), string(export.FormatPPTX)}
	}

	var paths []string
	for _, name := range formats {
		f, err := export.ParseFormat(name)
		if err != nil {
			return paths, err
		}
		e, err := export.Lookup(f)
		if err != nil {
			return paths, err
		}
		if f == export.FormatPDF && p.Config.Export.FontFile != "" {
			e = &export.PDFExporter{FontFile: p.Config.Export.FontFile}
		}
		path, err := export.Write(dir, report.Clone(), e)
		if err != nil {
			return paths, err
		}
		p.Log.Info().Str("format", string(f)).Str("path", filepath.Clean(path)).Msg("exported")
		paths = append(paths, path)
	}
	return paths, nil
}

// ExitCode maps a pipeline error to a process exit status: 2 for no usable
// content, 3 for an unavailable search or model service, 4 for malformed
// model output, 1 for anything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, types.ErrNoUsableContent):
		return 2
	case errors.Is(err, types.ErrSearchUnavailable):
		return 3
	case types.SynthesisReason(err) == types.SynthesisModelUnavailable:
		return 3
	case types.SynthesisReason(err) == types.SynthesisSchema:
		return 4
	case errors.Is(err, types.ErrRenderFailed):
		return 4
	default:
		return 1
	}
}

// Advice returns a short actionable message for a pipeline error.
func Advice(err error) string {
	switch {
	case errors.Is(err, types.ErrNoUsableContent):
		return "No usable content was found for this topic. Try a broader or differently worded topic."
	case errors.Is(err, types.ErrSearchUnavailable):
		return "The search service is unavailable. Check your network connection and try again later."
	case types.SynthesisReason(err) == types.SynthesisModelUnavailable:
		return "The AI model is unavailable or rate limited. Wait a few minutes and try again."
	case types.SynthesisReason(err) == types.SynthesisSchema:
		return "The AI model returned a malformed report twice. Try again or choose a different model."
	case errors.Is(err, types.ErrRenderFailed):
		return "The report could not be rendered because it is structurally invalid."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled before the report was finished."
	default:
		return ""
	}
}
