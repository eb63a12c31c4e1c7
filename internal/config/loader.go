package config

import (
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so tokens and API keys can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Gateway.Token = expandEnvVars(cfg.Gateway.Token)
	cfg.Oracle.APIKey = expandEnvVars(cfg.Oracle.APIKey)
	cfg.Billing.ProxyURL = expandEnvVars(cfg.Billing.ProxyURL)
}

// Load reads the config file, applies environment overrides, and returns a
// merged Config. A missing file produces defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = def.Gateway.Port
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = def.Gateway.Bind
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = def.Logging.Style
	}
	if cfg.Session.TTLMinutes == 0 {
		cfg.Session.TTLMinutes = def.Session.TTLMinutes
	}
	if cfg.Session.SweepMinutes == 0 {
		cfg.Session.SweepMinutes = def.Session.SweepMinutes
	}
	if cfg.Session.HistoryLength == 0 {
		cfg.Session.HistoryLength = def.Session.HistoryLength
	}
	if cfg.Billing.MaxRetries == 0 {
		cfg.Billing.MaxRetries = def.Billing.MaxRetries
	}
	if cfg.Billing.BaseDelayMS == 0 {
		cfg.Billing.BaseDelayMS = def.Billing.BaseDelayMS
	}
	if cfg.Billing.TimeoutSecs == 0 {
		cfg.Billing.TimeoutSecs = def.Billing.TimeoutSecs
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
}

// applyEnvOverrides reads VENTANILLA_* environment variables over config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VENTANILLA_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("VENTANILLA_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}
	if v := os.Getenv("VENTANILLA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VENTANILLA_ORACLE_API_KEY"); v != "" {
		cfg.Oracle.APIKey = v
	}
	if v := os.Getenv("VENTANILLA_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
}
