package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/compozy/basic-cleaning/pkg/logger"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ApplyMigrations brings the registry schema in db to the newest version.
// The provider is scoped to db so concurrent stores never share goose state.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: open migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys, goose.WithDisableGlobalRegistry(true))
	if err != nil {
		return fmt.Errorf("sqlite: migration provider: %w", err)
	}
	// provider.Close would close db, which the store owns.
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	for _, r := range results {
		logger.FromContext(ctx).Debug("Registry migration applied",
			"driver", "sqlite", "version", r.Source.Version, "took", r.Duration)
	}
	return nil
}
