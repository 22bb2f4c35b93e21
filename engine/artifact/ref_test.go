package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	t.Run("Should default to the latest alias", func(t *testing.T) {
		ref, err := ParseReference("sample.csv")
		require.NoError(t, err)
		assert.Equal(t, "sample.csv", ref.Name)
		assert.Equal(t, LatestAlias, ref.Alias)
		assert.False(t, ref.HasVersion())
		assert.Equal(t, "sample.csv:latest", ref.String())
	})
	t.Run("Should parse an explicit version", func(t *testing.T) {
		ref, err := ParseReference("sample.csv:v12")
		require.NoError(t, err)
		assert.Equal(t, 12, ref.Version)
		assert.True(t, ref.HasVersion())
		assert.Empty(t, ref.Alias)
		assert.Equal(t, "v12", ref.Selector())
	})
	t.Run("Should parse entity and project", func(t *testing.T) {
		ref, err := ParseReference("acme/nyc_airbnb/sample.csv:prod")
		require.NoError(t, err)
		assert.Equal(t, "acme", ref.Entity)
		assert.Equal(t, "nyc_airbnb", ref.Project)
		assert.Equal(t, "prod", ref.Alias)
		assert.Equal(t, "acme/nyc_airbnb/sample.csv:prod", ref.String())
	})
	t.Run("Should parse project only", func(t *testing.T) {
		ref, err := ParseReference("nyc_airbnb/sample.csv:v0")
		require.NoError(t, err)
		assert.Empty(t, ref.Entity)
		assert.Equal(t, "nyc_airbnb", ref.Project)
		assert.Equal(t, 0, ref.Version)
	})
	t.Run("Should treat malformed version-like selectors as aliases", func(t *testing.T) {
		ref, err := ParseReference("sample.csv:v01")
		require.NoError(t, err)
		assert.Equal(t, "v01", ref.Alias)
		assert.False(t, ref.HasVersion())
	})
	for _, raw := range []string{"", "  ", "a/b/c/d", "sample.csv:", "/sample.csv", "sample csv", "sample.csv:bad alias"} {
		t.Run("Should reject "+raw, func(t *testing.T) {
			_, err := ParseReference(raw)
			assert.ErrorIs(t, err, ErrInvalidReference)
		})
	}
}

func TestArtifact_AddFile(t *testing.T) {
	t.Run("Should wrap exactly one file", func(t *testing.T) {
		a := New("clean_sample.csv", "clean_sample", "Data with outliers and null values removed")
		assert.Equal(t, -1, a.Version)
		assert.Empty(t, a.VersionTag())
		require.NoError(t, a.AddFile("/tmp/out/clean_sample.csv"))
		assert.Equal(t, "clean_sample.csv", a.File.Name)
		path, err := a.LocalFile()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/out/clean_sample.csv", path)
		assert.Error(t, a.AddFile("/tmp/other.csv"))
	})
	t.Run("Should reject empty paths", func(t *testing.T) {
		a := New("clean_sample.csv", "clean_sample", "")
		assert.Error(t, a.AddFile(""))
		_, err := a.LocalFile()
		assert.Error(t, err)
	})
}

func TestErrors(t *testing.T) {
	t.Run("Should match sentinel errors", func(t *testing.T) {
		nf := notFound("sample.csv:latest", nil)
		assert.ErrorIs(t, nf, ErrNotFound)
		assert.NotErrorIs(t, nf, ErrUpload)
		assert.Contains(t, nf.Error(), "sample.csv:latest")

		up := uploadFailed("clean_sample.csv", "confirm", ErrTypeMismatch)
		assert.ErrorIs(t, up, ErrUpload)
		assert.ErrorIs(t, up, ErrTypeMismatch)
		var uploadErr *UploadError
		require.ErrorAs(t, up, &uploadErr)
		assert.Equal(t, "confirm", uploadErr.Op)
	})
}
