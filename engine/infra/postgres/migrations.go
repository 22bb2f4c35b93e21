package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"hash/crc64"
	"io/fs"

	"github.com/compozy/basic-cleaning/pkg/logger"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"

	// Register pgx stdlib driver for database/sql usage in migrations.
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// lockWaitSeconds bounds how long a step waits for another step migrating
// the same database.
const lockWaitSeconds = 45

// registryLockID keys the advisory lock of the registry schema. It differs
// from goose's default so other goose users of the database do not block us.
var registryLockID = int64(crc64.Checksum([]byte("basic_cleaning.registry"), crc64.MakeTable(crc64.ECMA)))

// ApplyMigrations brings the registry schema behind dsn to the newest
// version. Steps starting together against a fresh database serialize on a
// session advisory lock.
func ApplyMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer db.Close()
	return migrate(ctx, db)
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	locker, err := lock.NewPostgresSessionLocker(
		lock.WithLockID(registryLockID),
		lock.WithLockTimeout(1, lockWaitSeconds),
	)
	if err != nil {
		return fmt.Errorf("migration lock: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys,
		goose.WithSessionLocker(locker),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	for _, r := range results {
		logger.FromContext(ctx).Info("Registry migration applied",
			"driver", "postgres", "version", r.Source.Version, "took", r.Duration)
	}
	return nil
}
