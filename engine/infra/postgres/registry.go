package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/compozy/basic-cleaning/engine/artifact"
	"github.com/compozy/basic-cleaning/engine/core"
	"github.com/compozy/basic-cleaning/pkg/logger"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var artifactColumns = []string{
	"a.id", "a.name", "a.type", "a.description", "a.version", "a.state",
	"a.file_name", "a.file_key", "a.file_size", "a.file_digest", "a.media_type",
	"a.created_at", "a.committed_at",
}

var runColumns = []string{
	"id", "name", "job_type", "config", "status", "error", "started_at", "finished_at",
}

// DB is the minimal database interface the registry depends on (pgxpool or pgxmock).
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Registry implements artifact.Registry on PostgreSQL.
type Registry struct {
	db DB
}

var _ artifact.Registry = (*Registry)(nil)

func NewRegistry(db DB) *Registry {
	return &Registry{db: db}
}

type artifactRow struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	Type        string     `db:"type"`
	Description string     `db:"description"`
	Version     int        `db:"version"`
	State       string     `db:"state"`
	FileName    string     `db:"file_name"`
	FileKey     string     `db:"file_key"`
	FileSize    int64      `db:"file_size"`
	FileDigest  string     `db:"file_digest"`
	MediaType   string     `db:"media_type"`
	CreatedAt   time.Time  `db:"created_at"`
	CommittedAt *time.Time `db:"committed_at"`
}

func (r *artifactRow) toDomain() *artifact.Artifact {
	return &artifact.Artifact{
		ID:          core.ID(r.ID),
		Name:        r.Name,
		Type:        r.Type,
		Description: r.Description,
		Version:     r.Version,
		State:       artifact.State(r.State),
		File: &artifact.File{
			Name:      r.FileName,
			Key:       r.FileKey,
			Size:      r.FileSize,
			Digest:    r.FileDigest,
			MediaType: r.MediaType,
		},
		CreatedAt:   r.CreatedAt,
		CommittedAt: r.CommittedAt,
	}
}

type runRow struct {
	ID         string     `db:"id"`
	Name       string     `db:"name"`
	JobType    string     `db:"job_type"`
	Config     []byte     `db:"config"`
	Status     string     `db:"status"`
	Error      string     `db:"error"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

func (r *runRow) toDomain() (*artifact.Run, error) {
	run := &artifact.Run{
		ID:         core.ID(r.ID),
		Name:       r.Name,
		JobType:    r.JobType,
		Status:     artifact.RunStatus(r.Status),
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if len(r.Config) > 0 {
		if err := json.Unmarshal(r.Config, &run.Config); err != nil {
			return nil, fmt.Errorf("decoding run config: %w", err)
		}
	}
	return run, nil
}

func selectArtifacts() sq.SelectBuilder {
	return sq.Select(artifactColumns...).From("artifacts a").PlaceholderFormat(sq.Dollar)
}

func (r *Registry) withTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.FromContext(ctx).Warn("Transaction rollback failed after panic", "error", rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.FromContext(ctx).Warn("Transaction rollback failed", "error", rbErr)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()
	err = fn(tx)
	return err
}

// CreatePending allocates the next version for the artifact name under a
// transaction scoped advisory lock keyed by the name.
func (r *Registry) CreatePending(ctx context.Context, a *artifact.Artifact) error {
	if a.File == nil {
		return fmt.Errorf("artifact %q has no file", a.Name)
	}
	id, err := core.NewID()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	var version int
	err = r.withTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", a.Name); err != nil {
			return fmt.Errorf("locking artifact name: %w", err)
		}
		query, args, err := sq.Select("type").From("artifacts").
			Where(sq.Eq{"name": a.Name}).
			Limit(1).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("building type query: %w", err)
		}
		var existingType string
		switch err := tx.QueryRow(ctx, query, args...).Scan(&existingType); {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return fmt.Errorf("checking artifact type: %w", err)
		case existingType != a.Type:
			return fmt.Errorf("%w: %q is of type %q, not %q", artifact.ErrTypeMismatch, a.Name, existingType, a.Type)
		}
		query, args, err = sq.Select("COALESCE(MAX(version), -1) + 1").From("artifacts").
			Where(sq.Eq{"name": a.Name}).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("building version query: %w", err)
		}
		if err := tx.QueryRow(ctx, query, args...).Scan(&version); err != nil {
			return fmt.Errorf("allocating version: %w", err)
		}
		query, args, err = sq.Insert("artifacts").
			Columns(
				"id", "name", "type", "description", "version", "state",
				"file_name", "file_key", "file_size", "file_digest", "media_type", "created_at",
			).
			Values(
				id.String(), a.Name, a.Type, a.Description, version, string(artifact.StatePending),
				a.File.Name, a.File.Key, a.File.Size, a.File.Digest, a.File.MediaType, now,
			).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("building insert query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting artifact version: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.ID = id
	a.Version = version
	a.State = artifact.StatePending
	a.CreatedAt = now
	return nil
}

// Commit marks a pending version committed and points LatestAlias at it.
func (r *Registry) Commit(ctx context.Context, id core.ID) error {
	return r.withTransaction(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		query, args, err := sq.Update("artifacts").
			Set("state", string(artifact.StateCommitted)).
			Set("committed_at", now).
			Where(sq.Eq{"id": id.String(), "state": string(artifact.StatePending)}).
			Suffix("RETURNING name").
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("building commit query: %w", err)
		}
		var name string
		if err := tx.QueryRow(ctx, query, args...).Scan(&name); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: no pending artifact %s", artifact.ErrRecordNotFound, id)
			}
			return fmt.Errorf("committing artifact %s: %w", id, err)
		}
		query, args, err = sq.Insert("artifact_aliases").
			Columns("name", "alias", "artifact_id", "updated_at").
			Values(name, artifact.LatestAlias, id.String(), now).
			Suffix("ON CONFLICT (name, alias) DO UPDATE SET artifact_id = EXCLUDED.artifact_id, updated_at = EXCLUDED.updated_at").
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("building alias query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("moving %s alias: %w", artifact.LatestAlias, err)
		}
		return nil
	})
}

// MarkFailed moves a pending version to the failed state.
func (r *Registry) MarkFailed(ctx context.Context, id core.ID) error {
	query, args, err := sq.Update("artifacts").
		Set("state", string(artifact.StateFailed)).
		Where(sq.Eq{"id": id.String(), "state": string(artifact.StatePending)}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("marking artifact %s failed: %w", id, err)
	}
	return nil
}

func (r *Registry) Get(ctx context.Context, id core.ID) (*artifact.Artifact, error) {
	query, args, err := selectArtifacts().Where(sq.Eq{"a.id": id.String()}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	return r.getOne(ctx, query, args)
}

func (r *Registry) Resolve(ctx context.Context, ref artifact.Reference) (*artifact.Artifact, error) {
	qb := selectArtifacts().Where(sq.Eq{"a.state": string(artifact.StateCommitted)})
	if ref.HasVersion() {
		qb = qb.Where(sq.Eq{"a.name": ref.Name, "a.version": ref.Version})
	} else {
		qb = qb.Join("artifact_aliases al ON al.artifact_id = a.id").
			Where(sq.Eq{"al.name": ref.Name, "al.alias": ref.Alias})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building resolve query: %w", err)
	}
	return r.getOne(ctx, query, args)
}

func (r *Registry) Versions(ctx context.Context, name string) ([]*artifact.Artifact, error) {
	query, args, err := selectArtifacts().
		Where(sq.Eq{"a.name": name}).
		OrderBy("a.version ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building versions query: %w", err)
	}
	return r.getMany(ctx, query, args)
}

func (r *Registry) getOne(ctx context.Context, query string, args []any) (*artifact.Artifact, error) {
	var row artifactRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, artifact.ErrRecordNotFound
		}
		return nil, fmt.Errorf("scanning artifact: %w", err)
	}
	a := row.toDomain()
	if err := r.attachAliases(ctx, []*artifact.Artifact{a}); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Registry) getMany(ctx context.Context, query string, args []any) ([]*artifact.Artifact, error) {
	var rows []artifactRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("scanning artifacts: %w", err)
	}
	out := make([]*artifact.Artifact, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	if err := r.attachAliases(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Registry) attachAliases(ctx context.Context, list []*artifact.Artifact) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[string]*artifact.Artifact, len(list))
	ids := make([]string, 0, len(list))
	for _, a := range list {
		byID[a.ID.String()] = a
		ids = append(ids, a.ID.String())
	}
	query, args, err := sq.Select("artifact_id", "alias").
		From("artifact_aliases").
		Where(sq.Eq{"artifact_id": ids}).
		OrderBy("alias").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building alias query: %w", err)
	}
	var rows []struct {
		ArtifactID string `db:"artifact_id"`
		Alias      string `db:"alias"`
	}
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return fmt.Errorf("scanning aliases: %w", err)
	}
	for _, row := range rows {
		if a, ok := byID[row.ArtifactID]; ok {
			a.Aliases = append(a.Aliases, row.Alias)
		}
	}
	return nil
}

func encodeConfig(cfg map[string]any) ([]byte, error) {
	if cfg == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding run config: %w", err)
	}
	return data, nil
}

func (r *Registry) CreateRun(ctx context.Context, run *artifact.Run) error {
	if run.ID.IsZero() {
		id, err := core.NewID()
		if err != nil {
			return err
		}
		run.ID = id
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = artifact.RunRunning
	}
	cfg, err := encodeConfig(run.Config)
	if err != nil {
		return err
	}
	query, args, err := sq.Insert("runs").
		Columns("id", "name", "job_type", "config", "status", "error", "started_at").
		Values(run.ID.String(), run.Name, run.JobType, cfg, string(run.Status), run.Error, run.StartedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting run %s: %w", run.Name, err)
	}
	return nil
}

func (r *Registry) FinishRun(ctx context.Context, run *artifact.Run) error {
	qb := sq.Update("runs").
		Set("status", string(run.Status)).
		Set("error", run.Error).
		Where(sq.Eq{"id": run.ID.String()}).
		PlaceholderFormat(sq.Dollar)
	if run.FinishedAt != nil {
		qb = qb.Set("finished_at", *run.FinishedAt)
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("building update query: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", run.Name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", run.Name, artifact.ErrRecordNotFound)
	}
	return nil
}

func (r *Registry) GetRun(ctx context.Context, name string) (*artifact.Run, error) {
	query, args, err := sq.Select(runColumns...).
		From("runs").
		Where(sq.Eq{"name": name}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var row runRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, artifact.ErrRecordNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return row.toDomain()
}

// LinkArtifact records lineage between a run and an artifact version.
// Linking the same pair twice is a no-op.
func (r *Registry) LinkArtifact(ctx context.Context, runID, artifactID core.ID, dir artifact.Direction) error {
	query, args, err := sq.Insert("run_artifacts").
		Columns("run_id", "artifact_id", "direction").
		Values(runID.String(), artifactID.String(), string(dir)).
		Suffix("ON CONFLICT DO NOTHING").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("linking artifact %s to run %s: %w", artifactID, runID, err)
	}
	return nil
}

func (r *Registry) RunArtifacts(ctx context.Context, runID core.ID, dir artifact.Direction) ([]*artifact.Artifact, error) {
	query, args, err := selectArtifacts().
		Join("run_artifacts ra ON ra.artifact_id = a.id").
		Where(sq.Eq{"ra.run_id": runID.String(), "ra.direction": string(dir)}).
		OrderBy("a.name", "a.version").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building lineage query: %w", err)
	}
	return r.getMany(ctx, query, args)
}
