// Package sqlite provides the durable cache tier backed by SQLite.
//
// Records survive process restarts; the cache manager promotes durable
// hits into the fast tier so hot keys are only read from disk once.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/hearsay-labs/hearsay-cli/internal/adapters/driven/cache/sqlite/migrations"
	"github.com/hearsay-labs/hearsay-cli/internal/core/ports/driven"
)

// Ensure Tier implements the interface.
var _ driven.CacheTier = (*Tier)(nil)

// Tier is a SQLite-backed implementation of driven.CacheTier.
type Tier struct {
	db   *sql.DB
	path string
}

// NewTier creates a durable cache tier at the specified data directory.
// If dataDir is empty, defaults to ~/.hearsay/data.
func NewTier(dataDir string) (*Tier, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".hearsay", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "cache.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	t := &Tier{
		db:   db,
		path: dbPath,
	}

	if err := t.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return t, nil
}

// Close closes the database connection.
func (t *Tier) Close() error {
	return t.db.Close()
}

// Path returns the database file path.
func (t *Tier) Path() string {
	return t.path
}

// Get retrieves a record.
func (t *Tier) Get(ctx context.Context, namespace, key string) (*driven.CacheRecord, error) {
	row := t.db.QueryRowContext(ctx, `
		SELECT value, created_at, ttl_seconds
		FROM cache_records
		WHERE namespace = ? AND key = ?
	`, namespace, key)

	var (
		value      []byte
		createdAt  int64
		ttlSeconds int64
	)
	if err := row.Scan(&value, &createdAt, &ttlSeconds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, driven.ErrCacheMiss
		}
		return nil, fmt.Errorf("scanning cache record: %w", err)
	}

	return &driven.CacheRecord{
		Value:     value,
		CreatedAt: time.Unix(createdAt, 0),
		TTL:       time.Duration(ttlSeconds) * time.Second,
	}, nil
}

// Put stores or replaces a record.
func (t *Tier) Put(ctx context.Context, namespace, key string, record driven.CacheRecord) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO cache_records (namespace, key, value, created_at, ttl_seconds)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			ttl_seconds = excluded.ttl_seconds
	`, namespace, key, record.Value, record.CreatedAt.Unix(), int64(record.TTL/time.Second))
	if err != nil {
		return fmt.Errorf("storing cache record: %w", err)
	}
	return nil
}

// Delete removes a record.
func (t *Tier) Delete(ctx context.Context, namespace, key string) error {
	_, err := t.db.ExecContext(ctx,
		"DELETE FROM cache_records WHERE namespace = ? AND key = ?", namespace, key)
	if err != nil {
		return fmt.Errorf("deleting cache record: %w", err)
	}
	return nil
}

// DeletePrefix removes every record in the namespace whose key starts
// with prefix.
func (t *Tier) DeletePrefix(ctx context.Context, namespace, prefix string) error {
	pattern := escapeLike(prefix) + "%"
	_, err := t.db.ExecContext(ctx, `
		DELETE FROM cache_records
		WHERE namespace = ? AND key LIKE ? ESCAPE '\'
	`, namespace, pattern)
	if err != nil {
		return fmt.Errorf("deleting cache records by prefix: %w", err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so the prefix matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// migrate runs all pending migrations.
func (t *Tier) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := t.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := t.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_create_cache_records.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := t.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := t.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}
