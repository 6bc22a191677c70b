package core

import (
	"fmt"
	"strings"
	"time"
)

type OAuthConfig struct {
	CallbackBaseURL       string `koanf:"callback_base_url" mapstructure:"callback_base_url"`
	CorrelationTTLMinutes int    `koanf:"correlation_ttl_minutes" mapstructure:"correlation_ttl_minutes"`
}

type WidgetConfig struct {
	Scheme          string   `koanf:"scheme" mapstructure:"scheme"`
	DefaultJobTypes []string `koanf:"default_job_types" mapstructure:"default_job_types"`
}

type Config struct {
	ServiceName string       `koanf:"service_name" mapstructure:"service_name"`
	OAuth       OAuthConfig  `koanf:"oauth" mapstructure:"oauth"`
	Widget      WidgetConfig `koanf:"widget" mapstructure:"widget"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "connect",
		OAuth: OAuthConfig{
			CorrelationTTLMinutes: 15,
		},
		Widget: WidgetConfig{
			Scheme:          "vcs",
			DefaultJobTypes: []string{string(JobTypeAggregate)},
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.OAuth.CorrelationTTLMinutes < 0 {
		return fmt.Errorf("core: oauth.correlation_ttl_minutes must not be negative")
	}
	if _, err := MapJobTypes(c.Widget.DefaultJobTypes); err != nil {
		return fmt.Errorf("core: widget.default_job_types: %w", err)
	}
	return nil
}

func (c Config) CorrelationTTL() time.Duration {
	if c.OAuth.CorrelationTTLMinutes <= 0 {
		return defaultCorrelationTTL
	}
	return time.Duration(c.OAuth.CorrelationTTLMinutes) * time.Minute
}
