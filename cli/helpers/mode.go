package helpers

import (
	"os"

	"github.com/compozy/basic-cleaning/pkg/config"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Mode selects how command results and errors are rendered.
type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
)

// isRunningInCI checks if we're running in a CI/CD environment
func isRunningInCI() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	ciVars := []string{
		"JENKINS_HOME",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"TRAVIS",
		"BUILDKITE",
		"DRONE",
		"TF_BUILD",           // Azure DevOps
		"BITBUCKET_COMMIT",   // Bitbucket Pipelines
		"CODEBUILD_BUILD_ID", // AWS CodeBuild
		"TEAMCITY_VERSION",
		"CONTINUOUS_INTEGRATION",
	}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// DetectMode returns JSON when structured logging is configured and text
// otherwise.
func DetectMode(cmd *cobra.Command) Mode {
	ctx := cmd.Context()
	if ctx == nil {
		return ModeText
	}
	if config.FromContext(ctx).Runtime.LogJSON {
		return ModeJSON
	}
	return ModeText
}

// ShouldUseColor determines if colored output should be used
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	if isRunningInCI() {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != ""
}
