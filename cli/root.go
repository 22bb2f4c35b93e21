package cli

import (
	"os"

	"github.com/compozy/basic-cleaning/cli/cmd/artifacts"
	"github.com/compozy/basic-cleaning/cli/cmd/clean"
	"github.com/compozy/basic-cleaning/cli/helpers"
	"github.com/compozy/basic-cleaning/pkg/version"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFile = "basic-cleaning.yaml"
	defaultEnvFile    = ".env"
)

// RootCmd builds the command tree. The root command runs the cleaning step.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "basic_cleaning",
		Short: "Clean a raw dataset artifact and publish the result",
		Long: `Download the input artifact, drop rows whose price falls outside
[min_price, max_price], normalize last_review dates and log the cleaned
table as a new artifact version.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", defaultConfigFile, "Path to the YAML configuration file")
	pf.String("env-file", defaultEnvFile, "Path to an optional .env file")
	pf.String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	pf.Bool("log-json", false, "Emit logs and command output as JSON")
	pf.Bool("log-source", false, "Include source locations in logs")

	clean.Configure(root)
	root.AddCommand(artifacts.NewCommand())
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	root := RootCmd()
	executed, err := root.ExecuteC()
	if err != nil {
		if executed == nil {
			executed = root
		}
		helpers.OutputError(os.Stderr, err, helpers.DetectMode(executed))
	}
	return helpers.ExitCode(err)
}
