package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/basic-cleaning/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	ReasonOutOfRange = "out_of_range"
	ReasonInvalid    = "invalid"
)

// StepMetrics records row and timing metrics for one cleaning step.
type StepMetrics struct {
	rowsRead    metric.Int64Counter
	rowsKept    metric.Int64Counter
	rowsDropped metric.Int64Counter
	datesNulled metric.Int64Counter
	transferred metric.Int64Histogram
	duration    metric.Float64Histogram
}

// NewStepMetrics creates the step instruments on meter.
func NewStepMetrics(meter metric.Meter) (*StepMetrics, error) {
	m := &StepMetrics{}
	var err error
	if m.rowsRead, err = meter.Int64Counter(
		"basic_cleaning_rows_read",
		metric.WithDescription("Rows read from the input artifact"),
	); err != nil {
		return nil, fmt.Errorf("creating rows read counter: %w", err)
	}
	if m.rowsKept, err = meter.Int64Counter(
		"basic_cleaning_rows_kept",
		metric.WithDescription("Rows kept by the price filter"),
	); err != nil {
		return nil, fmt.Errorf("creating rows kept counter: %w", err)
	}
	if m.rowsDropped, err = meter.Int64Counter(
		"basic_cleaning_rows_dropped",
		metric.WithDescription("Rows dropped by the price filter, by reason"),
	); err != nil {
		return nil, fmt.Errorf("creating rows dropped counter: %w", err)
	}
	if m.datesNulled, err = meter.Int64Counter(
		"basic_cleaning_dates_nulled",
		metric.WithDescription("Date values that could not be parsed and were nulled"),
	); err != nil {
		return nil, fmt.Errorf("creating dates nulled counter: %w", err)
	}
	if m.transferred, err = meter.Int64Histogram(
		"basic_cleaning_artifact_bytes",
		metric.WithDescription("Artifact payload sizes, by direction"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(metrics.TransferSizeBucketBoundaries...),
	); err != nil {
		return nil, fmt.Errorf("creating artifact size histogram: %w", err)
	}
	if m.duration, err = meter.Float64Histogram(
		"basic_cleaning_step_duration",
		metric.WithDescription("Wall time of a cleaning step"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.StepDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("creating step duration histogram: %w", err)
	}
	return m, nil
}

// RecordFilter records the outcome of the price filter.
func (m *StepMetrics) RecordFilter(ctx context.Context, read, kept, outOfRange, invalid int) {
	m.rowsRead.Add(ctx, int64(read))
	m.rowsKept.Add(ctx, int64(kept))
	m.rowsDropped.Add(ctx, int64(outOfRange), metric.WithAttributes(attribute.String("reason", ReasonOutOfRange)))
	m.rowsDropped.Add(ctx, int64(invalid), metric.WithAttributes(attribute.String("reason", ReasonInvalid)))
}

func (m *StepMetrics) RecordDates(ctx context.Context, nulled int) {
	m.datesNulled.Add(ctx, int64(nulled))
}

// RecordTransfer records an artifact payload moved in the given direction.
func (m *StepMetrics) RecordTransfer(ctx context.Context, direction string, size int64) {
	m.transferred.Record(ctx, size, metric.WithAttributes(attribute.String("direction", direction)))
}

func (m *StepMetrics) RecordRun(ctx context.Context, elapsed time.Duration, outcome string) {
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}
