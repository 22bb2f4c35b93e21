package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// loadEnvFile loads the --env-file into the process environment and
// returns the loaded path, or "" when there was nothing to load. Variables
// already set win over the file. The implicit default must stay inside
// the working directory; an explicit path may point anywhere.
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	path := envFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(wd, path)
	}
	path = filepath.Clean(path)
	if !cmd.Flags().Changed("env-file") && !withinDir(path, wd) {
		return "", fmt.Errorf("env file %q resolves outside the working directory", envFile)
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("failed to stat env file: %w", err)
	case !info.Mode().IsRegular():
		return "", fmt.Errorf("env file %q is not a regular file", envFile)
	}
	if err := godotenv.Load(path); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return path, nil
}

// withinDir reports whether path is dir or lies below it.
func withinDir(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
