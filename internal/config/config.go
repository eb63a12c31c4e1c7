// Package config loads and validates the YAML service configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			Port: 8732,
			Bind: "127.0.0.1",
		},
		Logging: LoggingConfig{
			Level: "info",
			Style: "pretty",
		},
		Session: SessionConfig{
			TTLMinutes:    60,
			SweepMinutes:  5,
			HistoryLength: 40,
		},
		Billing: BillingConfig{
			MaxRetries:  3,
			BaseDelayMS: 1000,
			TimeoutSecs: 30,
		},
		Store: StoreConfig{
			Path: "ventanilla.db",
		},
	}
}
