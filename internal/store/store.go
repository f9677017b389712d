package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"newsbrief/internal/core"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// DatabaseFile is the SQLite file created inside the data directory.
const DatabaseFile = "newsbrief.db"

// Store is the SQLite-backed summary cache and brief history.
type Store struct {
	db   *sql.DB
	path string
	ttl  time.Duration
	now  func() time.Time
}

// NewStore creates a new store instance with SQLite database
func NewStore(dataDir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	summariesTable := `
	CREATE TABLE IF NOT EXISTS summaries (
		cache_key TEXT PRIMARY KEY,
		summary_text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`

	briefsTable := `
	CREATE TABLE IF NOT EXISTS briefs (
		build_id TEXT PRIMARY KEY,
		topic TEXT,
		brief_date TEXT,
		content_hash TEXT,
		item_count INTEGER,
		generated_at INTEGER
	);`

	for _, table := range []string{summariesTable, briefsTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns a cached summary that has not expired.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := sq.Select("summary_text", "created_at").
		From("summaries").
		Where(sq.Eq{"cache_key": key}).
		ToSql()
	if err != nil {
		return "", false, err
	}

	var text string
	var created int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&text, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read summary: %w", err)
	}

	if s.expired(created) {
		return "", false, nil
	}
	return text, true, nil
}

// Set stores or replaces a summary.
func (s *Store) Set(ctx context.Context, key, summary string) error {
	query, args, err := sq.Insert("summaries").
		Columns("cache_key", "summary_text", "created_at").
		Values(key, summary, s.now().Unix()).
		Suffix("ON CONFLICT(cache_key) DO UPDATE SET summary_text = excluded.summary_text, created_at = excluded.created_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}
	return nil
}

func (s *Store) expired(created int64) bool {
	return s.ttl > 0 && s.now().Sub(time.Unix(created, 0)) > s.ttl
}

// RecordBrief stores the identity of a published manifest.
func (s *Store) RecordBrief(ctx context.Context, m *core.BriefManifest) error {
	query, args, err := sq.Insert("briefs").
		Columns("build_id", "topic", "brief_date", "content_hash", "item_count", "generated_at").
		Values(m.BuildID, m.Topic, m.Date, m.ContentHash, m.ItemCount, m.GeneratedAt.Unix()).
		Suffix("ON CONFLICT(build_id) DO UPDATE SET generated_at = excluded.generated_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record brief: %w", err)
	}
	return nil
}

// BriefRecord is one row of brief history.
type BriefRecord struct {
	BuildID     string
	Topic       string
	Date        string
	ContentHash string
	ItemCount   int
	GeneratedAt time.Time
}

// Briefs lists recorded briefs, newest first. A limit of zero or less lists all.
func (s *Store) Briefs(ctx context.Context, limit int) ([]BriefRecord, error) {
	b := sq.Select("build_id", "topic", "brief_date", "content_hash", "item_count", "generated_at").
		From("briefs").
		OrderBy("generated_at DESC", "build_id")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list briefs: %w", err)
	}
	defer rows.Close()

	var out []BriefRecord
	for rows.Next() {
		var r BriefRecord
		var generated int64
		if err := rows.Scan(&r.BuildID, &r.Topic, &r.Date, &r.ContentHash, &r.ItemCount, &generated); err != nil {
			return nil, fmt.Errorf("failed to scan brief: %w", err)
		}
		r.GeneratedAt = time.Unix(generated, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// CacheStats represents cache statistics
type CacheStats struct {
	SummaryCount int
	BriefCount   int
	CacheSize    int64
	LastUpdated  time.Time
}

// GetCacheStats returns statistics about the cache
func (s *Store) GetCacheStats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	for table, target := range map[string]*int{"summaries": &stats.SummaryCount, "briefs": &stats.BriefCount} {
		query, args, err := sq.Select("COUNT(*)").From(table).ToSql()
		if err != nil {
			return nil, err
		}
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(target); err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.CacheSize = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}
	return stats, nil
}

// Cleanup removes expired summaries and returns how many were deleted.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	query, args, err := sq.Delete("summaries").
		Where(sq.Lt{"created_at": s.now().Add(-s.ttl).Unix()}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clean old summaries: %w", err)
	}
	return res.RowsAffected()
}

// ClearCache removes all cached summaries.
func (s *Store) ClearCache(ctx context.Context) error {
	query, args, err := sq.Delete("summaries").ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear summaries: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
