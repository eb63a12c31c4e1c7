package config

// Config is the root configuration for the ventanilla service.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Session SessionConfig `yaml:"session,omitempty"`
	Oracle  OracleConfig  `yaml:"oracle,omitempty"`
	Billing BillingConfig `yaml:"billing,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
	Handoff HandoffConfig `yaml:"handoff,omitempty"`
}

// GatewayConfig controls the HTTP/WebSocket turn API server.
type GatewayConfig struct {
	Port  int    `yaml:"port,omitempty"`
	Bind  string `yaml:"bind,omitempty"` // listen address, default loopback
	Token string `yaml:"token,omitempty"` // bearer token; empty disables auth
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent".."trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}

// SessionConfig defines session lifecycle behavior.
type SessionConfig struct {
	TTLMinutes    int `yaml:"ttlMinutes,omitempty"`    // idle eviction threshold
	SweepMinutes  int `yaml:"sweepMinutes,omitempty"`  // eviction sweep interval
	HistoryLength int `yaml:"historyLength,omitempty"` // max retained exchanges
}

// OracleConfig configures the external classification/response capability.
type OracleConfig struct {
	APIKey          string  `yaml:"apiKey,omitempty"`
	BaseURL         string  `yaml:"baseUrl,omitempty"`
	ClassifierModel string  `yaml:"classifierModel,omitempty"`
	ResponderModel  string  `yaml:"responderModel,omitempty"`
	MaxTokens       int     `yaml:"maxTokens,omitempty"`
	Temperature     float32 `yaml:"temperature,omitempty"`
}

// BillingConfig configures the legacy account-lookup backend.
type BillingConfig struct {
	Endpoint      string `yaml:"endpoint,omitempty"`      // XML service URL
	PartnerDomain string `yaml:"partnerDomain,omitempty"` // IP-restricted host
	ProxyURL      string `yaml:"proxyUrl,omitempty"`      // egress proxy for partner calls
	MaxRetries    int    `yaml:"maxRetries,omitempty"`
	BaseDelayMS   int    `yaml:"baseDelayMs,omitempty"`
	TimeoutSecs   int    `yaml:"timeoutSeconds,omitempty"`
}

// StoreConfig configures the SQLite case-tracking store.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // ":memory:" for tests
}

// HandoffConfig is the contact card returned when a turn is redirected to the
// external utility-billing channel.
type HandoffConfig struct {
	FullName     string `yaml:"fullName,omitempty"`
	PhoneNumber  string `yaml:"phoneNumber,omitempty"`
	Organization string `yaml:"organization,omitempty"`
}
