package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	t.Run("Should enable WAL and foreign keys for file databases", func(t *testing.T) {
		dsn := buildDSN(&Config{Path: "/tmp/registry.db", BusyTimeout: 2 * time.Second})
		assert.True(t, strings.HasPrefix(dsn, "file:/tmp/registry.db?"))
		assert.Contains(t, dsn, "journal_mode%28WAL%29")
		assert.Contains(t, dsn, "foreign_keys%28ON%29")
		assert.Contains(t, dsn, "busy_timeout%282000%29")
		assert.Contains(t, dsn, "_txlock=immediate")
	})
	t.Run("Should skip WAL for in-memory databases", func(t *testing.T) {
		dsn := buildDSN(&Config{Path: memoryPath})
		assert.True(t, strings.HasPrefix(dsn, "file::memory:?"))
		assert.NotContains(t, dsn, "journal_mode")
		assert.Contains(t, dsn, "busy_timeout%285000%29")
	})
}

func TestNewStore(t *testing.T) {
	t.Run("Should reject empty path", func(t *testing.T) {
		_, err := NewStore(context.Background(), "")
		require.Error(t, err)
	})
	t.Run("Should create the database file and apply migrations", func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "nested", "registry.db")
		store, err := NewStore(ctx, path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close(ctx) })
		var count int
		err = store.DB().QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('artifacts', 'artifact_aliases', 'runs', 'run_artifacts')",
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 4, count)
	})
	t.Run("Should reapply migrations idempotently", func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "registry.db")
		first, err := NewStore(ctx, path)
		require.NoError(t, err)
		require.NoError(t, first.Close(ctx))
		second, err := NewStore(ctx, path)
		require.NoError(t, err)
		require.NoError(t, second.Close(ctx))
	})
}
