// Package clean implements the command running the basic_cleaning step.
package clean

import (
	"context"
	"fmt"

	"github.com/compozy/basic-cleaning/cli/cmd"
	"github.com/compozy/basic-cleaning/cli/helpers"
	"github.com/compozy/basic-cleaning/engine/cleaning"
	"github.com/compozy/basic-cleaning/engine/dataset"
	"github.com/compozy/basic-cleaning/pkg/config"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const (
	flagInputArtifact     = "input_artifact"
	flagOutputArtifact    = "output_artifact"
	flagOutputType        = "output_type"
	flagOutputDescription = "output_description"
	flagMinPrice          = "min_price"
	flagMaxPrice          = "max_price"
)

// Configure adds the step flags and handler to c.
func Configure(c *cobra.Command) {
	f := c.Flags()
	f.String(flagInputArtifact, "", "Fully-qualified name for the input artifact")
	f.String(flagOutputArtifact, "", "Name for the output artifact")
	f.String(flagOutputType, "", "Type for the output artifact")
	f.String(flagOutputDescription, "", "Description for the output artifact")
	f.Float64(flagMinPrice, 0, "Minimum price to keep")
	f.Float64(flagMaxPrice, 0, "Maximum price to keep")
	for _, name := range []string{
		flagInputArtifact, flagOutputArtifact, flagOutputType,
		flagOutputDescription, flagMinPrice, flagMaxPrice,
	} {
		_ = c.MarkFlagRequired(name)
	}
	c.RunE = run
}

func run(c *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true}, cmd.ModeHandlers{
		JSON: handleJSON,
		Text: handleText,
	}, args)
}

func paramsFromFlags(c *cobra.Command) (cleaning.Params, error) {
	f := c.Flags()
	var p cleaning.Params
	var err error
	if p.InputArtifact, err = f.GetString(flagInputArtifact); err != nil {
		return p, err
	}
	if p.OutputArtifact, err = f.GetString(flagOutputArtifact); err != nil {
		return p, err
	}
	if p.OutputType, err = f.GetString(flagOutputType); err != nil {
		return p, err
	}
	if p.OutputDescription, err = f.GetString(flagOutputDescription); err != nil {
		return p, err
	}
	if p.MinPrice, err = f.GetFloat64(flagMinPrice); err != nil {
		return p, err
	}
	if p.MaxPrice, err = f.GetFloat64(flagMaxPrice); err != nil {
		return p, err
	}
	return p, nil
}

func runStep(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor) (*cleaning.Result, error) {
	p, err := paramsFromFlags(c)
	if err != nil {
		return nil, err
	}
	cfg := config.FromContext(ctx)
	delim, err := dataset.Delimiter(cfg.Step.Delimiter)
	if err != nil {
		return nil, err
	}
	deps := executor.Deps()
	step, err := cleaning.NewStep(deps.Store, cleaning.Options{
		Fs:          deps.Fs,
		JobType:     cfg.Step.JobType,
		OutputFile:  cfg.Step.OutputFile,
		Delimiter:   delim,
		PriceColumn: cfg.Step.PriceColumn,
		DateColumn:  cfg.Step.DateColumn,
	}, deps.Monitor)
	if err != nil {
		return nil, err
	}
	return step.Run(ctx, p)
}

type summary struct {
	Run          string `json:"run"`
	Input        string `json:"input"`
	Output       string `json:"output"`
	ArtifactID   string `json:"artifact_id"`
	Digest       string `json:"digest"`
	Size         int64  `json:"size"`
	RowsIn       int    `json:"rows_in"`
	RowsOut      int    `json:"rows_out"`
	OutOfRange   int    `json:"rows_out_of_range"`
	InvalidPrice int    `json:"rows_invalid_price"`
	DatesNulled  int    `json:"dates_nulled"`
}

func summarize(res *cleaning.Result) summary {
	return summary{
		Run:          res.RunName,
		Input:        res.Input.QualifiedName(),
		Output:       res.Output.QualifiedName(),
		ArtifactID:   res.Output.ID.String(),
		Digest:       res.Output.File.Digest,
		Size:         res.Output.File.Size,
		RowsIn:       res.RowsIn,
		RowsOut:      res.Filter.Kept,
		OutOfRange:   res.Filter.OutOfRange,
		InvalidPrice: res.Filter.Invalid,
		DatesNulled:  res.Dates.Nulled,
	}
}

func handleJSON(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	res, err := runStep(ctx, c, executor)
	if err != nil {
		return err
	}
	return helpers.OutputJSON(c.OutOrStdout(), summarize(res))
}

func handleText(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	res, err := runStep(ctx, c, executor)
	if err != nil {
		return err
	}
	s := summarize(res)
	color := helpers.ShouldUseColor()
	out := c.OutOrStdout()
	for _, line := range []string{
		helpers.Field("Run", s.Run, color),
		helpers.Field("Input", s.Input, color),
		helpers.Field("Output", fmt.Sprintf("%s (%s)", s.Output, humanize.Bytes(uint64(s.Size))), color),
		helpers.Field("Rows", fmt.Sprintf("%d in, %d kept, %d dropped", s.RowsIn, s.RowsOut, res.Filter.Dropped()), color),
		helpers.Field("Dates nulled", s.DatesNulled, color),
	} {
		fmt.Fprintln(out, line)
	}
	return nil
}
