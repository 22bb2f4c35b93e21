package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/compozy/basic-cleaning/engine/artifact"
	"github.com/compozy/basic-cleaning/engine/core"
	"github.com/compozy/basic-cleaning/engine/infra/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var artifactRowColumns = []string{
	"id", "name", "type", "description", "version", "state",
	"file_name", "file_key", "file_size", "file_digest", "media_type",
	"created_at", "committed_at",
}

func newMockRegistry(t *testing.T) (pgxmock.PgxPoolIface, *postgres.Registry) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, postgres.NewRegistry(mockPool)
}

func pendingArtifact() *artifact.Artifact {
	return &artifact.Artifact{
		Name:        "clean_sample.csv",
		Type:        "clean_sample",
		Description: "Data with outliers and null values removed",
		File: &artifact.File{
			Name:      "clean_sample.csv",
			Key:       "clean_sample.csv/abc123/clean_sample.csv",
			Size:      128,
			Digest:    "abc123",
			MediaType: "text/csv",
		},
	}
}

func TestRegistry_CreatePending(t *testing.T) {
	t.Run("Should allocate the next version under an advisory lock", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		ctx := context.Background()
		a := pendingArtifact()
		mockPool.ExpectBegin()
		mockPool.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(a.Name).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mockPool.ExpectQuery("SELECT type FROM artifacts WHERE name = \\$1 LIMIT 1").
			WithArgs(a.Name).
			WillReturnRows(mockPool.NewRows([]string{"type"}).AddRow("clean_sample"))
		mockPool.ExpectQuery("SELECT COALESCE\\(MAX\\(version\\), -1\\) \\+ 1 FROM artifacts WHERE name = \\$1").
			WithArgs(a.Name).
			WillReturnRows(mockPool.NewRows([]string{"next"}).AddRow(2))
		mockPool.ExpectExec("INSERT INTO artifacts").
			WithArgs(
				pgxmock.AnyArg(), // ID
				a.Name,
				a.Type,
				a.Description,
				2,
				"pending",
				a.File.Name,
				a.File.Key,
				a.File.Size,
				a.File.Digest,
				a.File.MediaType,
				pgxmock.AnyArg(), // CreatedAt
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		require.NoError(t, repo.CreatePending(ctx, a))
		assert.Equal(t, 2, a.Version)
		assert.Equal(t, artifact.StatePending, a.State)
		assert.False(t, a.ID.IsZero())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should start at version zero for a new name", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		ctx := context.Background()
		a := pendingArtifact()
		mockPool.ExpectBegin()
		mockPool.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(a.Name).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mockPool.ExpectQuery("SELECT type FROM artifacts").
			WithArgs(a.Name).
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectQuery("SELECT COALESCE").
			WithArgs(a.Name).
			WillReturnRows(mockPool.NewRows([]string{"next"}).AddRow(0))
		mockPool.ExpectExec("INSERT INTO artifacts").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		require.NoError(t, repo.CreatePending(ctx, a))
		assert.Equal(t, 0, a.Version)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should roll back when the type differs", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		ctx := context.Background()
		a := pendingArtifact()
		mockPool.ExpectBegin()
		mockPool.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(a.Name).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mockPool.ExpectQuery("SELECT type FROM artifacts").
			WithArgs(a.Name).
			WillReturnRows(mockPool.NewRows([]string{"type"}).AddRow("raw_data"))
		mockPool.ExpectRollback()

		err := repo.CreatePending(ctx, a)
		require.Error(t, err)
		assert.ErrorIs(t, err, artifact.ErrTypeMismatch)
		assert.True(t, a.ID.IsZero())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should reject artifacts without a file", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		a := pendingArtifact()
		a.File = nil
		assert.Error(t, repo.CreatePending(context.Background(), a))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRegistry_Commit(t *testing.T) {
	t.Run("Should commit and move the latest alias", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		ctx := context.Background()
		id := core.MustNewID()
		mockPool.ExpectBegin()
		mockPool.ExpectQuery("UPDATE artifacts SET state = \\$1, committed_at = \\$2 WHERE (.+) RETURNING name").
			WithArgs("committed", pgxmock.AnyArg(), id.String(), "pending").
			WillReturnRows(mockPool.NewRows([]string{"name"}).AddRow("clean_sample.csv"))
		mockPool.ExpectExec("INSERT INTO artifact_aliases (.+) ON CONFLICT \\(name, alias\\) DO UPDATE").
			WithArgs("clean_sample.csv", artifact.LatestAlias, id.String(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		require.NoError(t, repo.Commit(ctx, id))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should report versions that are not pending", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		ctx := context.Background()
		id := core.MustNewID()
		mockPool.ExpectBegin()
		mockPool.ExpectQuery("UPDATE artifacts SET state").
			WithArgs("committed", pgxmock.AnyArg(), id.String(), "pending").
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectRollback()

		err := repo.Commit(ctx, id)
		assert.ErrorIs(t, err, artifact.ErrRecordNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRegistry_Resolve(t *testing.T) {
	t.Run("Should resolve an alias and attach aliases", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		ctx := context.Background()
		id := core.MustNewID()
		now := time.Now().UTC()
		committed := now.Add(time.Second)
		mockPool.ExpectQuery("SELECT (.+) FROM artifacts a JOIN artifact_aliases al ON al.artifact_id = a.id").
			WithArgs("committed", artifact.LatestAlias, "sample.csv").
			WillReturnRows(mockPool.NewRows(artifactRowColumns).AddRow(
				id.String(), "sample.csv", "raw_data", "", 3, "committed",
				"sample.csv", "sample.csv/d1/sample.csv", int64(64), "d1", "text/csv",
				now, &committed,
			))
		mockPool.ExpectQuery("SELECT artifact_id, alias FROM artifact_aliases").
			WithArgs(id.String()).
			WillReturnRows(mockPool.NewRows([]string{"artifact_id", "alias"}).AddRow(id.String(), "latest"))

		ref, err := artifact.ParseReference("sample.csv:latest")
		require.NoError(t, err)
		a, err := repo.Resolve(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, id, a.ID)
		assert.Equal(t, 3, a.Version)
		assert.Equal(t, []string{"latest"}, a.Aliases)
		require.NotNil(t, a.CommittedAt)
		assert.Equal(t, committed, *a.CommittedAt)
		assert.Equal(t, int64(64), a.File.Size)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should map missing versions to record not found", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		ctx := context.Background()
		mockPool.ExpectQuery("SELECT (.+) FROM artifacts a WHERE").
			WithArgs("committed", "sample.csv", 7).
			WillReturnError(pgx.ErrNoRows)

		ref, err := artifact.ParseReference("sample.csv:v7")
		require.NoError(t, err)
		a, err := repo.Resolve(ctx, ref)
		assert.Nil(t, a)
		assert.ErrorIs(t, err, artifact.ErrRecordNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRegistry_Runs(t *testing.T) {
	t.Run("Should store the run config as JSON", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		ctx := context.Background()
		run := &artifact.Run{
			Name:    "basic_cleaning_0a1b2c3d",
			JobType: "basic_cleaning",
			Config:  map[string]any{"min_price": 10},
		}
		mockPool.ExpectExec("INSERT INTO runs").
			WithArgs(
				pgxmock.AnyArg(), // ID
				run.Name,
				run.JobType,
				[]byte(`{"min_price":10}`),
				"running",
				"",
				pgxmock.AnyArg(), // StartedAt
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.CreateRun(ctx, run))
		assert.False(t, run.ID.IsZero())
		assert.Equal(t, artifact.RunRunning, run.Status)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should decode a stored run", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		ctx := context.Background()
		id := core.MustNewID()
		started := time.Now().UTC()
		var finished *time.Time
		mockPool.ExpectQuery("SELECT (.+) FROM runs WHERE name = \\$1").
			WithArgs("basic_cleaning_0a1b2c3d").
			WillReturnRows(mockPool.NewRows([]string{
				"id", "name", "job_type", "config", "status", "error", "started_at", "finished_at",
			}).AddRow(
				id.String(), "basic_cleaning_0a1b2c3d", "basic_cleaning", []byte(`{"min_price":10}`),
				"running", "", started, finished,
			))

		run, err := repo.GetRun(ctx, "basic_cleaning_0a1b2c3d")
		require.NoError(t, err)
		assert.Equal(t, id, run.ID)
		assert.Equal(t, float64(10), run.Config["min_price"])
		assert.Nil(t, run.FinishedAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should report finishing an unknown run", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		ctx := context.Background()
		finished := time.Now().UTC()
		run := &artifact.Run{
			ID:         core.MustNewID(),
			Name:       "basic_cleaning_ffffffff",
			Status:     artifact.RunFinished,
			FinishedAt: &finished,
		}
		mockPool.ExpectExec("UPDATE runs SET status = \\$1, error = \\$2, finished_at = \\$3 WHERE id = \\$4").
			WithArgs("finished", "", finished, run.ID.String()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.FinishRun(ctx, run)
		assert.ErrorIs(t, err, artifact.ErrRecordNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should ignore duplicate lineage links", func(t *testing.T) {
		mockPool, repo := newMockRegistry(t)
		ctx := context.Background()
		runID := core.MustNewID()
		artifactID := core.MustNewID()
		mockPool.ExpectExec("INSERT INTO run_artifacts (.+) ON CONFLICT DO NOTHING").
			WithArgs(runID.String(), artifactID.String(), "input").
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		require.NoError(t, repo.LinkArtifact(ctx, runID, artifactID, artifact.DirectionInput))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
