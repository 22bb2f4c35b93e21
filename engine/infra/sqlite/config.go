package sqlite

import "time"

const memoryPath = ":memory:"

// Config captures SQLite store configuration.
type Config struct {
	// Path is the database location or ":memory:" for in-memory deployments.
	Path string

	// MaxOpenConns controls the pool size exposed by database/sql.
	MaxOpenConns int

	// BusyTimeout configures sqlite busy timeout via PRAGMA busy_timeout.
	BusyTimeout time.Duration
}

func (c *Config) isMemory() bool {
	return c.Path == memoryPath
}
