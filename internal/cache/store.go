// Package cache keeps fetched issue histories on disk so repeated reports over
// the same project and range do not hit the tracker again.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/danielolaszy/kanban/pkg/models"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// timeLayout is fixed width so stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS fetches (
  cache_key   TEXT PRIMARY KEY,
  tracker     TEXT NOT NULL,
  project     TEXT NOT NULL,
  fetched_utc TEXT NOT NULL,
  payload     BLOB NOT NULL
)`

// Key identifies one fetch: a tracker, a project and a query range.
type Key struct {
	Tracker string
	Project string
	Range   models.Range
}

func (k Key) String() string {
	return strings.Join([]string{
		k.Tracker,
		k.Project,
		k.Range.From.UTC().Format(time.RFC3339),
		k.Range.To.UTC().Format(time.RFC3339),
	}, "|")
}

// Store is a sqlite backed cache of raw issues with a fixed time to live.
type Store struct {
	path string
	db   *sql.DB
	ttl  time.Duration
	mu   sync.Mutex
	now  func() time.Time
}

// Open opens or creates the cache database at path.
func Open(path string, ttl time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("cache path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite cache %q: %w", cleanPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite cache schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db, ttl: ttl, now: time.Now}, nil
}

// Path returns the database file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the issues stored under key. Entries older than the store's TTL
// are reported as missing.
func (s *Store) Get(ctx context.Context, key Key) ([]models.RawIssue, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		fetched string
		payload []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_utc, payload FROM fetches WHERE cache_key = ?`, key.String(),
	).Scan(&fetched, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry %s: %w", key, err)
	}

	fetchedAt, err := time.Parse(timeLayout, fetched)
	if err != nil {
		return nil, false, fmt.Errorf("parse cache timestamp %q: %w", fetched, err)
	}
	if s.expired(fetchedAt) {
		return nil, false, nil
	}

	var issues []models.RawIssue
	if err := json.Unmarshal(payload, &issues); err != nil {
		return nil, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return issues, true, nil
}

// Put stores issues under key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key Key, issues []models.RawIssue) error {
	payload, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
INSERT INTO fetches (cache_key, tracker, project, fetched_utc, payload)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
  fetched_utc=excluded.fetched_utc,
  payload=excluded.payload`,
		key.String(), key.Tracker, key.Project, s.now().UTC().Format(timeLayout), payload)
	if err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	return nil
}

// Purge deletes every expired entry and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl).UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM fetches WHERE fetched_utc < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) expired(fetchedAt time.Time) bool {
	return s.now().Sub(fetchedAt) > s.ttl
}
