package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader()
	require.NoError(t, err)
	return l
}

func TestLoader_Load(t *testing.T) {
	t.Run("Should return defaults when no sources are given", func(t *testing.T) {
		cfg, err := newTestLoader(t).Load(t.Context())
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("Should apply YAML over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "basic-cleaning.yaml")
		content := "store:\n  root: /data/blobs\n  upload_timeout: 30s\nstep:\n  delimiter: \";\"\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := newTestLoader(t).Load(t.Context(), NewYAMLProvider(path))
		require.NoError(t, err)
		assert.Equal(t, "/data/blobs", cfg.Store.Root)
		assert.Equal(t, 30*time.Second, cfg.Store.UploadTimeout)
		assert.Equal(t, ";", cfg.Step.Delimiter)
		assert.Equal(t, "clean_sample.csv", cfg.Step.OutputFile)
	})

	t.Run("Should ignore a missing YAML file", func(t *testing.T) {
		cfg, err := newTestLoader(t).Load(t.Context(), NewYAMLProvider(filepath.Join(t.TempDir(), "none.yaml")))
		require.NoError(t, err)
		assert.Equal(t, "local", cfg.Store.Backend)
	})

	t.Run("Should let environment override YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		require.NoError(t, os.WriteFile(path, []byte("runtime:\n  log_level: warn\n"), 0o600))
		t.Setenv("RUNTIME_LOG_LEVEL", "debug")
		t.Setenv("STORE_POLL_INTERVAL", "1s")

		cfg, err := newTestLoader(t).Load(t.Context(), NewYAMLProvider(path))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Runtime.LogLevel)
		assert.Equal(t, time.Second, cfg.Store.PollInterval)
	})

	t.Run("Should let CLI flags override environment", func(t *testing.T) {
		t.Setenv("RUNTIME_LOG_LEVEL", "debug")
		cfg, err := newTestLoader(t).Load(
			t.Context(),
			NewCLIProvider(map[string]any{"log-level": "error", "log-json": true, "unknown": 1}),
		)
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.Runtime.LogLevel)
		assert.True(t, cfg.Runtime.LogJSON)
	})

	t.Run("Should decode secrets from environment as sensitive strings", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "s3")
		t.Setenv("S3_BUCKET", "artifacts")
		t.Setenv("S3_SECRET_KEY", "super-secret")

		cfg, err := newTestLoader(t).Load(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "super-secret", cfg.S3.SecretKey.Value())
		assert.Equal(t, "[REDACTED]", cfg.S3.SecretKey.String())
		assert.Equal(t, "[REDACTED]", fmt.Sprint(cfg.S3.SecretKey))
	})

	t.Run("Should reject s3 backend without bucket", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "s3")
		_, err := newTestLoader(t).Load(t.Context())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "s3 bucket is required")
	})

	t.Run("Should reject postgres registry without conn string", func(t *testing.T) {
		t.Setenv("STORE_REGISTRY", "postgres")
		_, err := newTestLoader(t).Load(t.Context())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres conn_string is required")
	})

	t.Run("Should accept day units in durations", func(t *testing.T) {
		t.Setenv("STORE_UPLOAD_TIMEOUT", "1d2h")
		cfg, err := newTestLoader(t).Load(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 26*time.Hour, cfg.Store.UploadTimeout)
	})

	t.Run("Should reject malformed durations", func(t *testing.T) {
		t.Setenv("STORE_POLL_INTERVAL", "soon")
		_, err := newTestLoader(t).Load(t.Context())
		assert.Error(t, err)
	})

	t.Run("Should reject unknown backend", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "ftp")
		_, err := newTestLoader(t).Load(t.Context())
		assert.Error(t, err)
	})

	t.Run("Should reject invalid delimiter", func(t *testing.T) {
		t.Setenv("STEP_DELIMITER", "::")
		_, err := newTestLoader(t).Load(t.Context())
		assert.Error(t, err)
	})

	t.Run("Should reject malformed YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("store: [unterminated"), 0o600))
		_, err := newTestLoader(t).Load(t.Context(), NewYAMLProvider(path))
		assert.Error(t, err)
	})
}

func TestSensitiveString_MarshalJSON(t *testing.T) {
	t.Run("Should redact value in JSON", func(t *testing.T) {
		out, err := json.Marshal(S3Config{SecretKey: "abc"})
		require.NoError(t, err)
		assert.NotContains(t, string(out), "abc")
		assert.Contains(t, string(out), "[REDACTED]")
	})
}

func TestEnvPath(t *testing.T) {
	t.Run("Should derive nested paths from struct tags", func(t *testing.T) {
		for name, want := range map[string]string{
			"STORE_UPLOAD_TIMEOUT":    "store.upload_timeout",
			"S3_SECRET_KEY":           "s3.secret_key",
			"METRICS_PUSHGATEWAY_URL": "metrics.pushgateway_url",
			"POSTGRES_CONN_STRING":    "postgres.conn_string",
			"STEP_PRICE_COLUMN":       "step.price_column",
		} {
			path, ok := EnvPath(name)
			require.True(t, ok, name)
			assert.Equal(t, want, path)
		}
	})
	t.Run("Should ignore undeclared variables", func(t *testing.T) {
		_, ok := EnvPath("HOME")
		assert.False(t, ok)
	})
}

func TestFromContext(t *testing.T) {
	t.Run("Should return attached configuration", func(t *testing.T) {
		cfg := Default()
		cfg.Step.OutputFile = "other.csv"
		ctx := ContextWithConfig(t.Context(), cfg)
		assert.Same(t, cfg, FromContext(ctx))
	})

	t.Run("Should fall back to defaults", func(t *testing.T) {
		assert.Equal(t, Default(), FromContext(t.Context()))
	})
}
