package monitoring

import (
	"fmt"
	"net/url"
)

const defaultJob = "basic_cleaning"

// Config holds configuration for step metrics.
type Config struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	// PushgatewayURL receives the collected metrics once the step ends. Empty
	// keeps metrics local.
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url" mapstructure:"pushgateway_url"`
	Job            string `json:"job"             yaml:"job"             mapstructure:"job"`
}

// DefaultConfig returns default monitoring configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Job:     defaultJob,
	}
}

// Validate validates the monitoring configuration
func (c *Config) Validate() error {
	if c.Job == "" {
		return fmt.Errorf("monitoring job cannot be empty")
	}
	if c.PushgatewayURL == "" {
		return nil
	}
	u, err := url.Parse(c.PushgatewayURL)
	if err != nil {
		return fmt.Errorf("invalid pushgateway url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("pushgateway url must use http or https: got %s", c.PushgatewayURL)
	}
	if u.Host == "" {
		return fmt.Errorf("pushgateway url must include a host: got %s", c.PushgatewayURL)
	}
	return nil
}
