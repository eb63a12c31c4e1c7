package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Oracle.APIKey = "sk-test"
	return cfg
}

func findIssue(issues []Issue, path string) *Issue {
	for i := range issues {
		if issues[i].Path == path {
			return &issues[i]
		}
	}
	return nil
}

func TestValidate_CleanConfig(t *testing.T) {
	cfg := validConfig()
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_PortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.Port = 70000
	assert.NotNil(t, findIssue(Validate(&cfg), "gateway.port"))
}

func TestValidate_LoggingStyle(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Style = "fancy"
	assert.NotNil(t, findIssue(Validate(&cfg), "logging.style"))
}

func TestValidate_ProxyWithoutPartnerDomain(t *testing.T) {
	cfg := validConfig()
	cfg.Billing.ProxyURL = "http://egress.internal:3128"
	cfg.Billing.PartnerDomain = ""
	assert.NotNil(t, findIssue(Validate(&cfg), "billing.partnerDomain"))
}

func TestValidate_BadEndpointURL(t *testing.T) {
	cfg := validConfig()
	cfg.Billing.Endpoint = "::not-a-url"
	assert.NotNil(t, findIssue(Validate(&cfg), "billing.endpoint"))
}

func TestValidate_MissingOracleKey(t *testing.T) {
	cfg := Defaults()
	assert.NotNil(t, findIssue(Validate(&cfg), "oracle.apiKey"))
}
