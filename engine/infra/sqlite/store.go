package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5 * time.Second

// Store owns the database handle.
type Store struct {
	db  *sql.DB
	cfg Config
}

// NewStore opens the database at path and applies pending migrations.
func NewStore(ctx context.Context, path string) (*Store, error) {
	return NewStoreWithConfig(ctx, &Config{Path: path})
}

// NewStoreWithConfig opens a database described by cfg and migrates it.
func NewStoreWithConfig(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: database path is required")
	}
	if !cfg.isMemory() {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	switch {
	case cfg.isMemory():
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, cfg: *cfg}, nil
}

// buildDSN renders a modernc DSN with WAL, foreign keys and a busy timeout.
// Transactions take the write lock up front so concurrent writers queue
// instead of failing on upgrade.
func buildDSN(cfg *Config) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(ON)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	params.Set("_txlock", "immediate")
	if cfg.isMemory() {
		return "file::memory:?" + params.Encode()
	}
	params.Add("_pragma", "journal_mode(WAL)")
	return "file:" + cfg.Path + "?" + params.Encode()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}
