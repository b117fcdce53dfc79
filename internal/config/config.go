package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP       HTTPConfig
	Graph      GraphConfig
	Logging    LoggingConfig
	Lookup     LookupConfig
	Accounts   AccountsConfig
	Billing    BillingConfig
	Session    SessionConfig
	Onboarding OnboardingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MetricsEnabled  bool          `env:"SERVER_METRICS_ENABLED" envDefault:"false"`
	AllowedOrigins  []string      `env:"SERVER_ALLOWED_ORIGINS" envSeparator:","`
}

// GraphConfig describes connectivity to the referral graph (Neo4j).
// An empty URI disables the referral ledger.
type GraphConfig struct {
	URI            string `env:"GRAPH_URI"`
	Database       string `env:"GRAPH_DATABASE"`
	Username       string `env:"GRAPH_USERNAME"`
	Password       string `env:"GRAPH_PASSWORD"`
	MaxConnections int    `env:"GRAPH_MAX_CONNECTIONS" envDefault:"10"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `env:"LOG_LEVEL" envDefault:"info"`
	Format        string `env:"LOG_FORMAT" envDefault:"text"` // text|json
	IncludeCaller bool   `env:"LOG_INCLUDE_CALLER" envDefault:"false"`
}

// LookupConfig points at the postal code (CEP) lookup service.
type LookupConfig struct {
	BaseURL string        `env:"LOOKUP_BASE_URL" envDefault:"https://viacep.com.br"`
	Timeout time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"5s"`
}

// AccountsConfig points at the remote account registration service.
type AccountsConfig struct {
	BaseURL string        `env:"ACCOUNTS_BASE_URL" envDefault:"http://localhost:3333"`
	APIKey  string        `env:"ACCOUNTS_API_KEY"`
	Timeout time.Duration `env:"ACCOUNTS_TIMEOUT" envDefault:"15s"`
}

// BillingConfig points at the installment plan (carnê) service and fixes the plan terms.
type BillingConfig struct {
	BaseURL       string        `env:"BILLING_BASE_URL" envDefault:"http://localhost:3333"`
	APIKey        string        `env:"BILLING_API_KEY"`
	Timeout       time.Duration `env:"BILLING_TIMEOUT" envDefault:"20s"`
	PlanLabel     string        `env:"BILLING_PLAN_LABEL" envDefault:"Clube Indica"`
	Installments  int           `env:"BILLING_INSTALLMENTS" envDefault:"12"`
	AmountCents   int64         `env:"BILLING_AMOUNT_CENTS" envDefault:"4990"`
	FirstDueAfter time.Duration `env:"BILLING_FIRST_DUE_AFTER" envDefault:"72h"`
}

// SessionConfig controls the browsing-session cookie and the referral code cache.
type SessionConfig struct {
	Secret     string        `env:"SESSION_SECRET"`
	CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"indica_session"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	SecureOnly bool          `env:"SESSION_SECURE_COOKIE" envDefault:"true"`
	StorePath  string        `env:"SESSION_STORE_PATH"` // empty keeps sessions in memory
}

// OnboardingConfig holds settings for the signup wizard entry point.
type OnboardingConfig struct {
	FrontendURL string `env:"ONBOARDING_FRONTEND_URL" envDefault:"/cadastro"`
}

const minSecretLength = 32

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.HTTP.AllowedOrigins = trimAll(cfg.HTTP.AllowedOrigins)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.HTTP.Port)
	}
	for key, raw := range map[string]string{
		"LOOKUP_BASE_URL":   c.Lookup.BaseURL,
		"ACCOUNTS_BASE_URL": c.Accounts.BaseURL,
		"BILLING_BASE_URL":  c.Billing.BaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s value %q", key, raw)
		}
	}
	if c.Billing.Installments <= 0 {
		return fmt.Errorf("BILLING_INSTALLMENTS must be positive")
	}
	if strings.TrimSpace(c.Billing.PlanLabel) == "" {
		return fmt.Errorf("BILLING_PLAN_LABEL is required")
	}
	return nil
}

// Validate checks the settings only the HTTP server needs to issue session
// cookies. Load does not call it so operator commands run without a secret.
func (s SessionConfig) Validate() error {
	if len(s.Secret) < minSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSecretLength)
	}
	if s.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
