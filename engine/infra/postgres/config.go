package postgres

import "time"

// Config holds PostgreSQL connection settings for the registry driver.
type Config struct {
	ConnString     string
	MaxConns       int
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
}
