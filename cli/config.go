package cli

import (
	"fmt"

	"github.com/compozy/basic-cleaning/pkg/config"
	"github.com/compozy/basic-cleaning/pkg/logger"
	"github.com/spf13/cobra"
)

// SetupGlobalConfig loads the layered configuration and installs the
// configured logger. Both are attached to the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	envFile, err := loadEnvFile(cmd)
	if err != nil {
		return err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	flags := make(map[string]any)
	extractCLIFlags(cmd, flags)

	loader, err := config.NewLoader()
	if err != nil {
		return fmt.Errorf("failed to create config loader: %w", err)
	}
	ctx := cmd.Context()
	cfg, err := loader.Load(ctx, config.NewYAMLProvider(configFile), config.NewCLIProvider(flags))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, cfg.Runtime.LogSource)
	log.Debug("Configuration loaded", "config_file", configFile, "env_file", envFile, "backend", cfg.Store.Backend)

	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)
	cmd.SetContext(ctx)
	return nil
}

// extractCLIFlags copies the global flags the user set explicitly.
func extractCLIFlags(cmd *cobra.Command, flags map[string]any) {
	addFlag := func(flagName string, getter func(string) (any, error)) {
		if cmd.Flags().Changed(flagName) {
			if value, err := getter(flagName); err == nil {
				flags[flagName] = value
			}
		}
	}
	getString := func(name string) (any, error) { return cmd.Flags().GetString(name) }
	getBool := func(name string) (any, error) { return cmd.Flags().GetBool(name) }

	addFlag("log-level", getString)
	addFlag("log-json", getBool)
	addFlag("log-source", getBool)
}
