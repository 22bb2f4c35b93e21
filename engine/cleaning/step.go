// Package cleaning implements the basic_cleaning pipeline step: fetch a raw
// dataset artifact, drop price outliers, normalize review dates and publish
// the result as a new artifact version.
package cleaning

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/basic-cleaning/engine/artifact"
	"github.com/compozy/basic-cleaning/engine/core"
	"github.com/compozy/basic-cleaning/engine/dataset"
	"github.com/compozy/basic-cleaning/engine/infra/monitoring"
	"github.com/compozy/basic-cleaning/pkg/logger"
	"github.com/spf13/afero"
)

// Store is the part of the artifact store the step borrows for one run.
type Store interface {
	StartRun(ctx context.Context, name, jobType string, config map[string]any) (*artifact.Run, error)
	FinishRun(ctx context.Context, run *artifact.Run, runErr error) error
	Use(ctx context.Context, run *artifact.Run, ref string) (*artifact.Artifact, error)
	Log(ctx context.Context, run *artifact.Run, a *artifact.Artifact) (*artifact.Upload, error)
}

// Options are the deployment settings of the step.
type Options struct {
	// Fs must be the filesystem the store downloads into.
	Fs          afero.Fs
	JobType     string
	OutputFile  string
	Delimiter   rune
	PriceColumn string
	DateColumn  string
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		Fs:          afero.NewOsFs(),
		JobType:     "basic_cleaning",
		OutputFile:  "clean_sample.csv",
		Delimiter:   ',',
		PriceColumn: "price",
		DateColumn:  "last_review",
	}
}

// Result summarizes a finished run.
type Result struct {
	RunName string
	Input   *artifact.Artifact
	Output  *artifact.Artifact
	RowsIn  int
	Filter  dataset.FilterStats
	Dates   dataset.DateStats
}

// Step runs the cleaning pipeline against a store.
type Step struct {
	store   Store
	opts    Options
	monitor *monitoring.Service
	metrics *monitoring.StepMetrics
}

// NewStep creates a step. A nil monitor disables metrics.
func NewStep(store Store, opts Options, monitor *monitoring.Service) (*Step, error) {
	defaults := DefaultOptions()
	if opts.Fs == nil {
		opts.Fs = defaults.Fs
	}
	if opts.JobType == "" {
		opts.JobType = defaults.JobType
	}
	if opts.OutputFile == "" {
		opts.OutputFile = defaults.OutputFile
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = defaults.Delimiter
	}
	if opts.PriceColumn == "" {
		opts.PriceColumn = defaults.PriceColumn
	}
	if opts.DateColumn == "" {
		opts.DateColumn = defaults.DateColumn
	}
	if monitor == nil {
		var err error
		if monitor, err = monitoring.NewMonitoringService(context.Background(), &monitoring.Config{Job: opts.JobType}); err != nil {
			return nil, err
		}
	}
	metrics, err := monitoring.NewStepMetrics(monitor.Meter())
	if err != nil {
		return nil, err
	}
	return &Step{store: store, opts: opts, monitor: monitor, metrics: metrics}, nil
}

// Run executes the step once. Failures to resolve or download the input
// match artifact.ErrNotFound; failures to publish match artifact.ErrUpload.
func (s *Step) Run(ctx context.Context, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	res := &Result{RunName: core.RunName(s.opts.JobType)}
	log := logger.FromContext(ctx).With("run", res.RunName)
	ctx = logger.ContextWithLogger(ctx, log)

	run, err := s.store.StartRun(ctx, res.RunName, s.opts.JobType, p.RunConfig())
	if err != nil {
		return nil, err
	}
	log.Info("Run started", "job_type", s.opts.JobType)
	runErr := s.execute(ctx, run, p, res)

	outcome := monitoring.OutcomeSuccess
	if runErr != nil {
		outcome = monitoring.OutcomeFailure
	}
	s.metrics.RecordRun(ctx, time.Since(started), outcome)
	if err := s.store.FinishRun(context.WithoutCancel(ctx), run, runErr); err != nil {
		log.Warn("Failed to record run outcome", "error", err)
	}
	if err := s.monitor.Push(context.WithoutCancel(ctx), res.RunName); err != nil {
		log.Warn("Failed to push metrics", "error", err)
	}
	if runErr != nil {
		return res, runErr
	}
	log.Info("Run finished",
		"output", res.Output.QualifiedName(),
		"rows_in", res.RowsIn,
		"rows_out", res.Filter.Kept,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return res, nil
}

func (s *Step) execute(ctx context.Context, run *artifact.Run, p Params, res *Result) error {
	log := logger.FromContext(ctx)

	log.Info("Downloading artifact", "artifact", p.InputArtifact)
	input, err := s.store.Use(ctx, run, p.InputArtifact)
	if err != nil {
		return err
	}
	res.Input = input
	s.metrics.RecordTransfer(ctx, string(artifact.DirectionInput), input.File.Size)
	localPath, err := input.LocalFile()
	if err != nil {
		return err
	}
	table, err := dataset.Load(s.opts.Fs, localPath, s.opts.Delimiter)
	if err != nil {
		return fmt.Errorf("loading %s: %w", input.QualifiedName(), err)
	}
	if err := table.Require(s.opts.PriceColumn, s.opts.DateColumn); err != nil {
		return fmt.Errorf("input %s: %w", input.QualifiedName(), err)
	}
	res.RowsIn = table.Len()

	log.Info("Dropping outliers", "column", s.opts.PriceColumn, "min", recordedBound(p.MinPrice), "max", recordedBound(p.MaxPrice))
	lower, err := dataset.BoundFromFloat(p.MinPrice)
	if err != nil {
		return fmt.Errorf("min_price: %w", err)
	}
	upper, err := dataset.BoundFromFloat(p.MaxPrice)
	if err != nil {
		return fmt.Errorf("max_price: %w", err)
	}
	filtered, fstats, err := dataset.FilterByRange(table, s.opts.PriceColumn, lower, upper)
	if err != nil {
		return err
	}
	res.Filter = fstats
	s.metrics.RecordFilter(ctx, res.RowsIn, fstats.Kept, fstats.OutOfRange, fstats.Invalid)
	log.Debug("Outliers dropped", "kept", fstats.Kept, "out_of_range", fstats.OutOfRange, "invalid", fstats.Invalid)

	log.Info("Converting dates", "column", s.opts.DateColumn)
	normalized, dstats, err := dataset.NormalizeDate(filtered, s.opts.DateColumn)
	if err != nil {
		return err
	}
	res.Dates = dstats
	s.metrics.RecordDates(ctx, dstats.Nulled)
	if dstats.Nulled > 0 {
		log.Debug("Unparseable dates nulled", "count", dstats.Nulled)
	}

	log.Info("Saving cleaned data", "path", s.opts.OutputFile)
	if err := dataset.Persist(s.opts.Fs, s.opts.OutputFile, normalized, s.opts.Delimiter); err != nil {
		return fmt.Errorf("saving %s: %w", s.opts.OutputFile, err)
	}

	log.Info("Logging artifact", "artifact", p.OutputArtifact, "type", p.OutputType)
	output := artifact.New(p.OutputArtifact, p.OutputType, p.OutputDescription)
	if err := output.AddFile(s.opts.OutputFile); err != nil {
		return &artifact.UploadError{Name: p.OutputArtifact, Op: "validate", Cause: err}
	}
	upload, err := s.store.Log(ctx, run, output)
	if err != nil {
		return err
	}
	if err := upload.Wait(ctx); err != nil {
		return err
	}
	res.Output = upload.Artifact()
	s.metrics.RecordTransfer(ctx, string(artifact.DirectionOutput), res.Output.File.Size)
	return nil
}
