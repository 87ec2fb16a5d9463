// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pagecache persists extracted page text in SQLite so repeated runs
// on related topics skip refetching. Only successful extractions are stored;
// entries older than the retention TTL are treated as missing.
package pagecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// timeLayout has fixed width so fetched_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a SQLite-backed page cache. It satisfies fetch.Cache.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens or creates the cache database at cfg.Path. A zero TTL keeps
// entries forever.
func Open(cfg types.CacheConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &Store{db: db, ttl: cfg.TTL, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			url TEXT PRIMARY KEY,
			title TEXT,
			site_name TEXT,
			extracted_text TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_fetched_at ON pages(fetched_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the cached document for url if present and not expired.
func (s *Store) Get(ctx context.Context, url string) (types.SourceDocument, bool, error) {
	var (
		title, siteName, text, fetched string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT title, site_name, extracted_text, fetched_at FROM pages WHERE url = ?`, url,
	).Scan(&title, &siteName, &text, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SourceDocument{}, false, nil
	}
	if err != nil {
		return types.SourceDocument{}, false, fmt.Errorf("querying page %s: %w", url, err)
	}

	fetchedAt, err := time.Parse(timeLayout, fetched)
	if err != nil {
		return types.SourceDocument{}, false, fmt.Errorf("parsing fetched_at for %s: %w", url, err)
	}
	if s.expired(fetchedAt) {
		return types.SourceDocument{}, false, nil
	}

	return types.SourceDocument{
		URL:           url,
		Title:         title,
		SiteName:      siteName,
		ExtractedText: text,
		Status:        types.StatusOK(),
		FetchedAt:     fetchedAt,
	}, true, nil
}

// Put stores a successful document, replacing any earlier entry for its URL.
// Failed documents are ignored.
func (s *Store) Put(ctx context.Context, doc types.SourceDocument) error {
	if !doc.Status.OK() || doc.ExtractedText == "" {
		return nil
	}
	fetchedAt := doc.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (url, title, site_name, extracted_text, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			site_name = excluded.site_name,
			extracted_text = excluded.extracted_text,
			fetched_at = excluded.fetched_at`,
		doc.URL, doc.Title, doc.SiteName, doc.ExtractedText, fetchedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("storing page %s: %w", doc.URL, err)
	}
	return nil
}

// Prune deletes expired entries and returns how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats summarises the cache contents.
type Stats struct {
	Pages  int
	Chars  int64
	Oldest time.Time
}

// Stats returns the number of cached pages, their total text size and the
// oldest fetch time.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var chars sql.NullInt64
	var oldest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*), sum(length(extracted_text)), min(fetched_at) FROM pages`,
	).Scan(&st.Pages, &chars, &oldest)
	if err != nil {
		return Stats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	st.Chars = chars.Int64
	if oldest.Valid {
		if t, err := time.Parse(timeLayout, oldest.String); err == nil {
			st.Oldest = t
		}
	}
	return st, nil
}

func (s *Store) expired(fetchedAt time.Time) bool {
	return s.ttl > 0 && s.now().Sub(fetchedAt) > s.ttl
}
