package monitoring

import (
	"context"

	"github.com/compozy/basic-cleaning/pkg/logger"
	"github.com/compozy/basic-cleaning/pkg/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// recordBuildInfo records build information as a gauge metric with labels
func recordBuildInfo(ctx context.Context, meter metric.Meter) {
	log := logger.FromContext(ctx)
	gauge, err := meter.Float64Gauge(
		"basic_cleaning_build_info",
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		log.Error("Failed to create build info gauge", "error", err)
		return
	}
	info := version.Get()
	gauge.Record(ctx, 1,
		metric.WithAttributes(
			attribute.String("version", info.Version),
			attribute.String("commit_hash", info.CommitHash),
			attribute.String("go_version", info.GoVersion),
		),
	)
}
