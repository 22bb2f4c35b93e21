package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Run("Should prefer injected build variables", func(t *testing.T) {
		prevVersion, prevCommit, prevDate := Version, CommitHash, BuildDate
		t.Cleanup(func() { Version, CommitHash, BuildDate = prevVersion, prevCommit, prevDate })
		Version, CommitHash, BuildDate = "v1.2.3", "abc123", "2025-03-01T12:00:00Z"
		info := Get()
		assert.Equal(t, "v1.2.3", info.Version)
		assert.Equal(t, "abc123", info.CommitHash)
		assert.Equal(t, "2025-03-01T12:00:00Z", info.BuildDate)
		assert.Equal(t, runtime.Version(), info.GoVersion)
		assert.Contains(t, info.String(), "v1.2.3 (commit abc123")
	})
}
