package config

import (
	"fmt"
	"net/url"
)

// Issue describes a single configuration problem.
type Issue struct {
	Path    string
	Message string
}

// Validate checks the config for problems and returns all issues found.
// An empty slice means the config is usable.
func Validate(cfg *Config) []Issue {
	var issues []Issue

	if cfg.Gateway.Port < 1 || cfg.Gateway.Port > 65535 {
		issues = append(issues, Issue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port %d out of range", cfg.Gateway.Port),
		})
	}

	switch cfg.Logging.Style {
	case "", "pretty", "json":
	default:
		issues = append(issues, Issue{
			Path:    "logging.style",
			Message: fmt.Sprintf("unknown style %q (want pretty or json)", cfg.Logging.Style),
		})
	}

	if cfg.Session.TTLMinutes < 1 {
		issues = append(issues, Issue{
			Path:    "session.ttlMinutes",
			Message: "must be at least 1",
		})
	}
	if cfg.Session.SweepMinutes < 1 {
		issues = append(issues, Issue{
			Path:    "session.sweepMinutes",
			Message: "must be at least 1",
		})
	}

	if cfg.Billing.Endpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Billing.Endpoint); err != nil {
			issues = append(issues, Issue{
				Path:    "billing.endpoint",
				Message: "not a valid URL: " + err.Error(),
			})
		}
	}
	if cfg.Billing.ProxyURL != "" {
		if _, err := url.ParseRequestURI(cfg.Billing.ProxyURL); err != nil {
			issues = append(issues, Issue{
				Path:    "billing.proxyUrl",
				Message: "not a valid URL: " + err.Error(),
			})
		}
	}
	if cfg.Billing.ProxyURL != "" && cfg.Billing.PartnerDomain == "" {
		issues = append(issues, Issue{
			Path:    "billing.partnerDomain",
			Message: "proxyUrl is set but partnerDomain is empty; proxy would never be used",
		})
	}

	if cfg.Oracle.APIKey == "" {
		issues = append(issues, Issue{
			Path:    "oracle.apiKey",
			Message: "missing API key; classification will be unavailable",
		})
	}

	return issues
}
