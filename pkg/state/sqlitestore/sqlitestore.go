// Package sqlitestore keeps perma-options in a SQLite table, the durable
// counterpart to browser local storage.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	ssp "github.com/goliatone/go-socialshare"
	"github.com/goliatone/go-socialshare/pkg/state"
)

// Backend is a state.Backend over one SQLite database. Namespace isolates
// several widgets or sites sharing one file.
type Backend struct {
	db        *sql.DB
	path      string
	namespace string
	now       func() time.Time
}

var _ state.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithNamespace scopes every key to namespace.
func WithNamespace(namespace string) Option {
	return func(b *Backend) { b.namespace = namespace }
}

// WithClock replaces time.Now for expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// Open creates or opens a database at path.
func Open(path string, opts ...Option) (*Backend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return newBackend(db, path, opts)
}

// OpenMemory creates an in-memory database (useful for testing).
func OpenMemory(opts ...Option) (*Backend, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// every connection would get its own empty database
	db.SetMaxOpenConns(1)
	return newBackend(db, ":memory:", opts)
}

func newBackend(db *sql.DB, path string, opts []Option) (*Backend, error) {
	b := &Backend{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return b, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS perma_options (
    namespace TEXT NOT NULL DEFAULT '',
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    path TEXT NOT NULL DEFAULT '',
    domain TEXT NOT NULL DEFAULT '',
    expires_at INTEGER,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (namespace, key)
);
CREATE INDEX IF NOT EXISTS idx_perma_options_expires ON perma_options(expires_at);
`

// Path returns the database location.
func (b *Backend) Path() string { return b.path }

// Close releases the database.
func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) Load(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM perma_options
		 WHERE namespace = ? AND key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		b.namespace, key, b.now().Unix(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading %q: %w", key, err)
	}
	return value, true, nil
}

func (b *Backend) Save(ctx context.Context, key, value string, policy ssp.CookiePolicy) error {
	now := b.now()
	var expires sql.NullInt64
	if policy.ExpiresDays > 0 {
		expires = sql.NullInt64{
			Int64: now.Add(time.Duration(policy.ExpiresDays * float64(24*time.Hour))).Unix(),
			Valid: true,
		}
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO perma_options (namespace, key, value, path, domain, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET
		   value = excluded.value,
		   path = excluded.path,
		   domain = excluded.domain,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		b.namespace, key, value, policy.Path, policy.Domain, expires, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string, _ ssp.CookiePolicy) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM perma_options WHERE namespace = ? AND key = ?`, b.namespace, key,
	); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Scan(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT key, value FROM perma_options
		 WHERE namespace = ? AND substr(key, 1, ?) = ? AND (expires_at IS NULL OR expires_at > ?)`,
		b.namespace, len(prefix), prefix, b.now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("scanning %q: %w", prefix, err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if strings.HasPrefix(key, prefix) {
			out[key] = value
		}
	}
	return out, rows.Err()
}

// Prune removes expired entries and reports how many were deleted.
func (b *Backend) Prune(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx,
		`DELETE FROM perma_options WHERE expires_at IS NOT NULL AND expires_at <= ?`, b.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning: %w", err)
	}
	return res.RowsAffected()
}
