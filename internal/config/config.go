package config

import (
	"time"

	"github.com/korjavin/tienda/internal/notify"
)

// Config is the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Session   SessionConfig   `yaml:"session"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// DataConfig points at the directory built by the importer.
type DataConfig struct {
	Dir string `yaml:"dir" env:"DATA_DIR" env-required:"true"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// AuthConfig lists accepted API keys; empty accepts every request.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys" env:"API_KEYS" env-separator:","`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	Origins string `yaml:"origins" env:"CORS_ORIGINS" env-default:"*"`
}

// RateLimitConfig is the per-client request budget.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"   env:"RATE_LIMIT_RPS"   env-default:"20"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"40"`
	// TrustProxy keys clients by X-Forwarded-For / X-Real-IP. Enable only
	// behind a reverse proxy that overwrites those headers.
	TrustProxy bool `yaml:"trust_proxy" env:"TRUST_PROXY_HEADERS" env-default:"false"`
}

// SessionConfig holds cart session settings.
type SessionConfig struct {
	IdleTTL time.Duration `yaml:"idle_ttl" env:"SESSION_IDLE_TTL" env-default:"2h"`
}

// NotifyConfig configures order delivery. With no Twilio credentials orders
// are only logged.
type NotifyConfig struct {
	Destination      string        `yaml:"destination"        env:"ORDER_DESTINATION"`
	TwilioBaseURL    string        `yaml:"twilio_base_url"    env:"TWILIO_BASE_URL"    env-default:"https://api.twilio.com"`
	TwilioAccountSID string        `yaml:"twilio_account_sid" env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string        `yaml:"twilio_auth_token"  env:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string        `yaml:"twilio_from"        env:"TWILIO_FROM"`
	Timeout          time.Duration `yaml:"timeout"            env:"NOTIFY_TIMEOUT"     env-default:"15s"`
	SendsPerSecond   float64       `yaml:"sends_per_second"   env:"NOTIFY_SENDS_PER_SECOND" env-default:"1"`
}

// TwilioEnabled reports whether all Twilio credentials are present.
func (c NotifyConfig) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != ""
}

// Twilio converts the settings for notify.NewTwilioNotifier.
func (c NotifyConfig) Twilio() notify.TwilioConfig {
	return notify.TwilioConfig{
		BaseURL:        c.TwilioBaseURL,
		AccountSID:     c.TwilioAccountSID,
		AuthToken:      c.TwilioAuthToken,
		From:           c.TwilioFrom,
		Timeout:        c.Timeout,
		SendsPerSecond: c.SendsPerSecond,
	}
}
