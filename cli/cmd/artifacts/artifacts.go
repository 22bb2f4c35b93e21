// Package artifacts implements commands logging and inspecting artifacts.
package artifacts

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/compozy/basic-cleaning/cli/cmd"
	"github.com/compozy/basic-cleaning/cli/helpers"
	"github.com/compozy/basic-cleaning/engine/artifact"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewCommand creates the artifacts command group.
func NewCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "artifacts",
		Short: "Log and inspect artifacts",
	}
	c.AddCommand(newLogCommand(), newListCommand(), newShowCommand())
	return c
}

const (
	flagName        = "name"
	flagType        = "type"
	flagDescription = "description"
)

func newLogCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "log <file>",
		Short: "Publish a local file as a new artifact version",
		Long: `Publish a local file as a new artifact version and wait until it is committed.
The name defaults to the file's base name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true}, cmd.ModeHandlers{
				JSON: handleLogJSON,
				Text: handleLogText,
			}, args)
		},
	}
	c.Flags().String(flagName, "", "Artifact name (defaults to the file name)")
	c.Flags().String(flagType, "", "Artifact type")
	c.Flags().String(flagDescription, "", "Artifact description")
	_ = c.MarkFlagRequired(flagType)
	return c
}

func logFile(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, file string) (*artifact.Artifact, error) {
	f := c.Flags()
	name, err := f.GetString(flagName)
	if err != nil {
		return nil, err
	}
	typ, err := f.GetString(flagType)
	if err != nil {
		return nil, err
	}
	desc, err := f.GetString(flagDescription)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = filepath.Base(file)
	}
	deps := executor.Deps()
	ok, err := afero.Exists(deps.Fs, file)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("file %s does not exist", file)
	}
	a := artifact.New(name, typ, desc)
	if err := a.AddFile(file); err != nil {
		return nil, err
	}
	upload, err := deps.Store.Log(ctx, nil, a)
	if err != nil {
		return nil, err
	}
	if err := upload.Wait(ctx); err != nil {
		return nil, err
	}
	return upload.Artifact(), nil
}

func handleLogJSON(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	a, err := logFile(ctx, c, executor, args[0])
	if err != nil {
		return err
	}
	return helpers.OutputJSON(c.OutOrStdout(), a)
}

func handleLogText(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	a, err := logFile(ctx, c, executor, args[0])
	if err != nil {
		return err
	}
	color := helpers.ShouldUseColor()
	fmt.Fprintln(c.OutOrStdout(), helpers.Field("Logged", a.QualifiedName(), color))
	return nil
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <name>",
		Short: "List every version logged under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true}, cmd.ModeHandlers{
				JSON: handleListJSON,
				Text: handleListText,
			}, args)
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <reference>",
		Short: "Show the committed version a reference resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true}, cmd.ModeHandlers{
				JSON: handleShowJSON,
				Text: handleShowText,
			}, args)
		},
	}
}

func handleListJSON(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	versions, err := executor.Deps().Store.Versions(ctx, args[0])
	if err != nil {
		return err
	}
	return helpers.OutputJSON(c.OutOrStdout(), map[string]any{
		"name":     args[0],
		"versions": versions,
	})
}

func handleListText(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	versions, err := executor.Deps().Store.Versions(ctx, args[0])
	if err != nil {
		return err
	}
	out := c.OutOrStdout()
	if len(versions) == 0 {
		fmt.Fprintf(out, "No versions logged for %s\n", args[0])
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tALIASES\tSIZE\tCREATED\tID")
	for _, a := range versions {
		size := "-"
		if a.File != nil {
			size = humanize.Bytes(uint64(a.File.Size))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.VersionTag(),
			a.State,
			aliases(a),
			size,
			humanize.Time(a.CreatedAt),
			a.ID,
		)
	}
	return w.Flush()
}

func handleShowJSON(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	a, err := executor.Deps().Store.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	return helpers.OutputJSON(c.OutOrStdout(), a)
}

func handleShowText(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	a, err := executor.Deps().Store.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	color := helpers.ShouldUseColor()
	lines := []string{
		helpers.Field("Artifact", a.QualifiedName(), color),
		helpers.Field("ID", a.ID, color),
		helpers.Field("Type", a.Type, color),
		helpers.Field("Description", a.Description, color),
		helpers.Field("State", a.State, color),
		helpers.Field("Aliases", aliases(a), color),
		helpers.Field("Created", a.CreatedAt.Format(time.RFC3339), color),
	}
	if a.File != nil {
		lines = append(lines,
			helpers.Field("File", a.File.Name, color),
			helpers.Field("Size", humanize.Bytes(uint64(a.File.Size)), color),
			helpers.Field("Digest", a.File.Digest, color),
			helpers.Field("Media type", a.File.MediaType, color),
		)
	}
	out := c.OutOrStdout()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}

func aliases(a *artifact.Artifact) string {
	if len(a.Aliases) == 0 {
		return "-"
	}
	return strings.Join(a.Aliases, ",")
}
