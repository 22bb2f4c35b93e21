package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/compozy/basic-cleaning/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns       = 4
	defaultConnectTimeout = 5 * time.Second
	defaultPingTimeout    = 3 * time.Second
)

// Store owns the pgx pool used by the registry.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens the pool and verifies the connection.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postgres: config is required")
	}
	poolCfg, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	pingTimeout := defaultPingTimeout
	if cfg.PingTimeout > 0 {
		pingTimeout = cfg.PingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	logger.FromContext(ctx).With(
		"store_driver", "postgres",
		"host", poolCfg.ConnConfig.Host,
		"db_name", poolCfg.ConnConfig.Database,
		"max_conns", poolCfg.MaxConns,
	).Debug("Registry store initialized")
	return &Store{pool: pool}, nil
}

// Pool exposes the pool to the registry. Keep pgx types inside this package.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close shuts down the connection pool.
func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	logger.FromContext(ctx).Debug("Postgres store closed")
	return nil
}

func buildPoolConfig(cfg *Config) (*pgxpool.Config, error) {
	if cfg.ConnString == "" {
		return nil, fmt.Errorf("postgres: conn string is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	poolCfg.MaxConns = clampConns(cfg.MaxConns)
	poolCfg.MinConns = 0
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	} else {
		poolCfg.ConnConfig.ConnectTimeout = defaultConnectTimeout
	}
	return poolCfg, nil
}

// clampConns maps non-positive values to the default and caps at MaxInt32.
func clampConns(n int) int32 {
	if n <= 0 {
		return defaultMaxConns
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}
