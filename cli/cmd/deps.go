package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/basic-cleaning/engine/artifact"
	"github.com/compozy/basic-cleaning/engine/infra/blob"
	"github.com/compozy/basic-cleaning/engine/infra/monitoring"
	"github.com/compozy/basic-cleaning/engine/infra/postgres"
	"github.com/compozy/basic-cleaning/engine/infra/sqlite"
	"github.com/compozy/basic-cleaning/pkg/config"
	"github.com/compozy/basic-cleaning/pkg/logger"
	"github.com/spf13/afero"
)

// Deps are the long-lived resources a command borrows.
type Deps struct {
	Config   *config.Config
	Fs       afero.Fs
	Registry artifact.Registry
	Store    *artifact.Store
	Monitor  *monitoring.Service

	closeRegistry func(context.Context) error
}

// OpenDeps opens the registry, the configured bucket and the metrics
// service.
func OpenDeps(ctx context.Context, cfg *config.Config) (*Deps, error) {
	log := logger.FromContext(ctx)
	registry, closeRegistry, err := openRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	bucket, err := openBucket(ctx, cfg)
	if err != nil {
		_ = closeRegistry(ctx)
		return nil, err
	}
	fs := afero.NewOsFs()
	store := artifact.NewStore(registry, bucket, artifact.Options{
		Fs:            fs,
		CacheDir:      cfg.Store.CacheDir,
		Entity:        cfg.Store.Entity,
		Project:       cfg.Store.Project,
		PollInterval:  cfg.Store.PollInterval,
		UploadTimeout: cfg.Store.UploadTimeout,
	})
	monitor := monitoring.NewMonitoringServiceWithFallback(ctx, &monitoring.Config{
		Enabled:        cfg.Metrics.Enabled,
		PushgatewayURL: cfg.Metrics.PushgatewayURL,
		Job:            cfg.Step.JobType,
	})
	log.Debug("Artifact store opened",
		"backend", cfg.Store.Backend,
		"registry", cfg.Store.Registry,
		"cache", cfg.Store.CacheDir,
	)
	return &Deps{
		Config:   cfg,
		Fs:       fs,
		Registry: registry,
		Store:    store,
		Monitor:  monitor,

		closeRegistry: closeRegistry,
	}, nil
}

func openRegistry(ctx context.Context, cfg *config.Config) (artifact.Registry, func(context.Context) error, error) {
	switch cfg.Store.Registry {
	case "postgres":
		dsn := cfg.Postgres.ConnString.Value()
		if err := postgres.ApplyMigrations(ctx, dsn); err != nil {
			return nil, nil, err
		}
		pg, err := postgres.NewStore(ctx, &postgres.Config{
			ConnString:     dsn,
			MaxConns:       cfg.Postgres.MaxConns,
			ConnectTimeout: cfg.Postgres.ConnectTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewRegistry(pg.Pool()), pg.Close, nil
	case "sqlite", "":
		db, err := sqlite.NewStore(ctx, cfg.Store.RegistryPath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewRegistry(db.DB()), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown registry driver %q", cfg.Store.Registry)
	}
}

func openBucket(ctx context.Context, cfg *config.Config) (blob.Bucket, error) {
	switch cfg.Store.Backend {
	case "s3":
		return blob.NewS3(ctx, blob.S3Config{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			Bucket:       cfg.S3.Bucket,
			Prefix:       cfg.S3.Prefix,
			AccessKey:    cfg.S3.AccessKey.Value(),
			SecretKey:    cfg.S3.SecretKey.Value(),
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	case "local", "":
		return blob.NewLocal(cfg.Store.Root)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Close shuts down the metrics service and the registry database.
func (d *Deps) Close(ctx context.Context) error {
	var errs []error
	if d.Monitor != nil {
		if err := d.Monitor.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down monitoring: %w", err))
		}
	}
	if d.closeRegistry != nil {
		if err := d.closeRegistry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing registry: %w", err))
		}
	}
	return errors.Join(errs...)
}
