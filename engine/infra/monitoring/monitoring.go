package monitoring

import (
	"context"
	"fmt"

	"github.com/compozy/basic-cleaning/pkg/logger"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "basic_cleaning"

// Service owns the meter used by the step and the Prometheus registry its
// instruments are exported to.
type Service struct {
	meter             metric.Meter
	exporter          *prometheus.Exporter
	provider          *sdkmetric.MeterProvider
	registry          *prom.Registry
	config            *Config
	initialized       bool
	initializationErr error
}

// newDisabledService creates a service instance with no-op implementations
func newDisabledService(cfg *Config, initErr error) *Service {
	return &Service{
		config:            cfg,
		meter:             noop.NewMeterProvider().Meter(meterName),
		initialized:       false,
		initializationErr: initErr,
	}
}

// NewMonitoringService creates a monitoring service exporting into a private
// Prometheus registry.
func NewMonitoringService(ctx context.Context, cfg *Config) (*Service, error) {
	log := logger.FromContext(ctx)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		log.Debug("Monitoring disabled, using no-op meter")
		return newDisabledService(cfg, nil), nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)
	recordBuildInfo(ctx, meter)
	return &Service{
		meter:       meter,
		exporter:    exporter,
		provider:    provider,
		registry:    registry,
		config:      cfg,
		initialized: true,
	}, nil
}

// NewMonitoringServiceWithFallback returns a no-op service when the real one
// cannot be built. Metrics never fail a step.
func NewMonitoringServiceWithFallback(ctx context.Context, cfg *Config) *Service {
	service, err := NewMonitoringService(ctx, cfg)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to initialize monitoring, using no-op implementation", "error", err)
		if cfg == nil {
			cfg = DefaultConfig()
		}
		return newDisabledService(cfg, err)
	}
	return service
}

// Meter returns the OpenTelemetry meter for step instrumentation
func (s *Service) Meter() metric.Meter {
	return s.meter
}

// Gatherer exposes the registry for pushes and tests. Nil when disabled.
func (s *Service) Gatherer() prom.Gatherer {
	if s.registry == nil {
		return nil
	}
	return s.registry
}

// Push sends the registry to the configured Pushgateway, replacing the
// metrics previously pushed for the same job and run.
func (s *Service) Push(ctx context.Context, runName string) error {
	if !s.initialized || s.config.PushgatewayURL == "" {
		return nil
	}
	pusher := push.New(s.config.PushgatewayURL, s.config.Job).Gatherer(s.registry)
	if runName != "" {
		pusher = pusher.Grouping("run", runName)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", s.config.PushgatewayURL, err)
	}
	logger.FromContext(ctx).Debug("Metrics pushed", "url", s.config.PushgatewayURL, "job", s.config.Job, "run", runName)
	return nil
}

// Shutdown gracefully shuts down the monitoring service
func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider != nil {
		return s.provider.Shutdown(ctx)
	}
	return nil
}

// IsInitialized returns whether the monitoring service was successfully initialized
func (s *Service) IsInitialized() bool {
	return s.initialized
}

// InitializationError returns any error that occurred during initialization
func (s *Service) InitializationError() error {
	return s.initializationErr
}
