// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves candidate pages and extracts their readable text.
// Each URL is fetched independently with its own deadline and byte cap; a
// failure becomes a SourceDocument with a Failed status instead of an error,
// so one bad page never sinks the batch.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// defaultMaxBytes caps a response body when FetchConfig.MaxBytes is unset.
const defaultMaxBytes = 2 << 20

// SearchFunc resolves a topic into at most maxResults candidate pages.
type SearchFunc func(ctx context.Context, topic string, maxResults int) ([]types.SearchResult, error)

// Cache stores successful extractions between runs. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, url string) (types.SourceDocument, bool, error)
	Put(ctx context.Context, doc types.SourceDocument) error
}

// Fetcher turns search results into SourceDocuments.
type Fetcher struct {
	Search SearchFunc
	Client *http.Client
	Config types.FetchConfig

	// Cache is optional.
	Cache Cache

	// AllowPrivateHosts disables the loopback and private network block.
	AllowPrivateHosts bool

	Log zerolog.Logger
	Now func() time.Time
}

// New returns a Fetcher with an HTTP client that leaves deadlines to the
// per-fetch context.
func New(search SearchFunc, cfg types.FetchConfig, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		Search: search,
		Client: &http.Client{},
		Config: cfg,
		Log:    log.With().Str("component", "fetch").Logger(),
		Now:    time.Now,
	}
}

// FetchSources searches for topic and fetches up to maxResults of the hits.
// The returned slice has one document per URL attempted, in search order.
// Only a search failure is returned as an error.
func (f *Fetcher) FetchSources(ctx context.Context, topic string, maxResults int) ([]types.SourceDocument, error) {
	if maxResults <= 0 {
		maxResults = types.DefaultMaxResults
	}
	if f.Search == nil {
		return nil, fmt.Errorf("no search function configured")
	}
	results, err := f.Search(ctx, topic, maxResults)
	if err != nil {
		return nil, err
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return f.FetchAll(ctx, results), nil
}

// FetchAll fetches every result concurrently, bounded by Config.Concurrency
// or len(results). Output order equals input order.
func (f *Fetcher) FetchAll(ctx context.Context, results []types.SearchResult) []types.SourceDocument {
	docs := make([]types.SourceDocument, len(results))
	if len(results) == 0 {
		return docs
	}

	limit := f.Config.Concurrency
	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, r := range results {
		g.Go(func() error {
			docs[i] = f.FetchOne(ctx, r)
			return nil
		})
	}
	g.Wait()

	ok := 0
	for _, d := range docs {
		if d.Status.OK() {
			ok++
		}
	}
	f.Log.Info().Int("attempted", len(docs)).Int("ok", ok).Msg("fetch complete")
	return docs
}

// FetchOne fetches a single result. It never returns an error: every
// failure is recorded on the document's status.
func (f *Fetcher) FetchOne(ctx context.Context, r types.SearchResult) types.SourceDocument {
	doc := f.fetchOne(ctx, r)
	if doc.Status.OK() {
		f.Log.Debug().Str("url", r.URL).Int("chars", utf8.RuneCountInString(doc.ExtractedText)).Msg("fetched")
	} else {
		f.Log.Debug().Str("url", r.URL).Str("reason", doc.Status.Reason).Msg("fetch failed")
	}
	return doc
}

func (f *Fetcher) fetchOne(ctx context.Context, r types.SearchResult) types.SourceDocument {
	if ctx.Err() != nil {
		return types.FailedSource(r.URL, types.ReasonCancelled, f.now())
	}
	if blocked(r.URL, f.AllowPrivateHosts) {
		return types.FailedSource(r.URL, types.ReasonBlockedURL, f.now())
	}

	if f.Cache != nil {
		if doc, ok, err := f.Cache.Get(ctx, r.URL); err != nil {
			f.Log.Warn().Err(err).Str("url", r.URL).Msg("page cache read failed")
		} else if ok {
			return doc
		}
	}

	timeout := f.Config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var p page
	var err error
	if isWikipediaArticle(r.URL) {
		p, err = f.fetchWikipedia(fctx, r.URL)
		if err != nil || p.text == "" {
			p, err = f.fetchHTML(fctx, r.URL)
		}
	} else {
		p, err = f.fetchHTML(fctx, r.URL)
	}
	if err != nil {
		return types.FailedSource(r.URL, classify(ctx, err), f.now())
	}

	if p.text == "" {
		return types.FailedSource(r.URL, types.ReasonEmptyContent, f.now())
	}
	minChars := f.Config.MinContentChars
	if utf8.RuneCountInString(p.text) < minChars {
		return types.FailedSource(r.URL, types.ReasonInsufficientContent, f.now())
	}

	title := p.title
	if title == "" {
		title = r.Title
	}
	doc := types.SourceDocument{
		URL:           r.URL,
		Title:         title,
		SiteName:      p.siteName,
		RawText:       p.raw,
		ExtractedText: p.text,
		Status:        types.StatusOK(),
		FetchedAt:     f.now(),
	}

	if f.Cache != nil {
		if err := f.Cache.Put(ctx, doc); err != nil {
			f.Log.Warn().Err(err).Str("url", r.URL).Msg("page cache write failed")
		}
	}
	return doc
}

// page is what a single successful retrieval yields.
type page struct {
	raw      string
	text     string
	title    string
	siteName string
}

// failure carries a canonical failure reason out of the retrieval helpers.
type failure struct{ reason string }

func (e *failure) Error() string { return e.reason }

func (f *Fetcher) fetchHTML(ctx context.Context, rawURL string) (page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return page{}, fmt.Errorf("creating request: %w", err)
	}
	if f.Config.UserAgent != "" {
		req.Header.Set("User-Agent", f.Config.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client().Do(req)
	if err != nil {
		return page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return page{}, &failure{reason: fmt.Sprintf("http %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes()))
	if err != nil {
		return page{}, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	if !isHTML(contentType) {
		return page{}, &failure{reason: "unsupported content type: " + mediaType(contentType)}
	}

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err != nil {
		f.Log.Debug().Err(err).Str("url", rawURL).Msg("opengraph parse failed")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return page{}, &failure{reason: "request failed: parsing html: " + err.Error()}
	}

	title := strings.TrimSpace(og.Title)
	if title == "" {
		title = pageTitle(doc)
	}
	return page{
		raw:      string(body),
		text:     ExtractText(doc),
		title:    title,
		siteName: strings.TrimSpace(og.SiteName),
	}, nil
}

// maxBytes is the per-response read cap.
func (f *Fetcher) maxBytes() int64 {
	if f.Config.MaxBytes <= 0 {
		return defaultMaxBytes
	}
	return f.Config.MaxBytes
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Fetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// classify maps a retrieval error to a canonical failure reason. parent is
// the caller's context, which tells cancellation apart from the per-fetch
// deadline.
func classify(parent context.Context, err error) string {
	var fe *failure
	if errors.As(err, &fe) {
		return fe.reason
	}
	if parent.Err() != nil {
		return types.ReasonCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.ReasonTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return types.ReasonTimeout
	}
	return "request failed: " + err.Error()
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(mt)
}
