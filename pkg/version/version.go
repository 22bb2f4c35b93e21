package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build variables to be set via ldflags during compilation:
// -X 'github.com/compozy/basic-cleaning/pkg/version.Version=v1.0.0'
// -X 'github.com/compozy/basic-cleaning/pkg/version.CommitHash=abc123'
// -X 'github.com/compozy/basic-cleaning/pkg/version.BuildDate=2024-01-01T00:00:00Z'
var (
	// Version is the semantic version of the binary (e.g., "1.0.0")
	Version = "unknown"
	// CommitHash is the git commit hash used to build the binary
	CommitHash = "unknown"
	// BuildDate is the timestamp when the binary was built (RFC3339 format)
	BuildDate = "unknown"
)

const unknown = "unknown"

// Info returns build information in a structured format
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
}

// Get returns the current build information. Values not injected at build
// time fall back to the module and VCS data embedded by the Go toolchain.
func Get() Info {
	info := Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == unknown && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, setting := range bi.Settings {
		switch {
		case setting.Key == "vcs.revision" && info.CommitHash == unknown:
			info.CommitHash = setting.Value
		case setting.Key == "vcs.time" && info.BuildDate == unknown:
			info.BuildDate = setting.Value
		}
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s)", i.Version, i.CommitHash, i.BuildDate, i.GoVersion)
}
