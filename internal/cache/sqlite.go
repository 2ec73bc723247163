// Package cache persists historical bar series in SQLite so restarts
// do not refetch history the provider already served.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"seller/internal/md"
	"seller/internal/series"
)

const schema = `
CREATE TABLE IF NOT EXISTS bars (
    cache_key TEXT     NOT NULL,
    ts        DATETIME NOT NULL,
    open      REAL     NOT NULL DEFAULT 0,
    high      REAL     NOT NULL DEFAULT 0,
    low       REAL     NOT NULL DEFAULT 0,
    close     REAL     NOT NULL DEFAULT 0,
    volume    REAL     NOT NULL DEFAULT 0,
    PRIMARY KEY (cache_key, ts)
);

CREATE INDEX IF NOT EXISTS idx_bars_key ON bars(cache_key);
`

// SQLiteStore implements md.CacheStore on a single SQLite file
// (pure Go driver, no CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given DSN and
// applies the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache.NewSQLiteStore: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key md.CacheKey) (*series.PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, open, high, low, close, volume FROM bars WHERE cache_key = ? ORDER BY ts ASC`,
		key.String())
	if err != nil {
		return nil, fmt.Errorf("cache.Get %q: %w", key.String(), err)
	}
	defer rows.Close()

	ps := series.New(key.Symbol)
	for rows.Next() {
		var ts time.Time
		var bar series.Bar
		if err := rows.Scan(&ts, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("cache.Get %q: scan: %w", key.String(), err)
		}
		bar.Time = ts
		if err := ps.Append(bar); err != nil {
			return nil, fmt.Errorf("cache.Get %q: %w", key.String(), err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache.Get %q: %w", key.String(), err)
	}
	if ps.Len() == 0 {
		return nil, nil
	}
	return ps, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key md.CacheKey, ps *series.PriceSeries) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache.Put %q: begin: %w", key.String(), err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO bars (cache_key, ts, open, high, low, close, volume)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cache.Put %q: prepare: %w", key.String(), err)
	}
	defer stmt.Close()

	for i := 0; i < ps.Len(); i++ {
		bar := ps.Bar(i)
		if _, err := stmt.ExecContext(ctx, key.String(), bar.Time.UTC(),
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			return fmt.Errorf("cache.Put %q: insert: %w", key.String(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache.Put %q: commit: %w", key.String(), err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
