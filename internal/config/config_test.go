package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Lookup.BaseURL != "https://viacep.com.br" {
		t.Fatalf("lookup base url = %q", cfg.Lookup.BaseURL)
	}
	if cfg.Billing.Installments != 12 {
		t.Fatalf("installments = %d, want 12", cfg.Billing.Installments)
	}
	if cfg.Session.TTL != 2*time.Hour {
		t.Fatalf("session ttl = %s, want 2h", cfg.Session.TTL)
	}
	if cfg.Graph.URI != "" {
		t.Fatalf("graph uri should default to empty, got %q", cfg.Graph.URI)
	}
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://indica.example, ,http://localhost:5173")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 {
		t.Fatalf("origins = %v, want 2 entries", cfg.HTTP.AllowedOrigins)
	}
	if cfg.HTTP.AllowedOrigins[1] != "http://localhost:5173" {
		t.Fatalf("origins[1] = %q", cfg.HTTP.AllowedOrigins[1])
	}
}

func TestSessionValidateRejectsShortSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "short")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load without a usable secret: %v", err)
	}
	if err := cfg.Session.Validate(); err == nil || !strings.Contains(err.Error(), "SESSION_SECRET") {
		t.Fatalf("expected secret error, got %v", err)
	}
}

func TestLoadWithoutSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Session.Secret != "" {
		t.Fatalf("secret = %q", cfg.Session.Secret)
	}
}

func TestSessionValidateRejectsZeroTTL(t *testing.T) {
	s := SessionConfig{Secret: testSecret}
	if err := s.Validate(); err == nil || !strings.Contains(err.Error(), "SESSION_TTL") {
		t.Fatalf("expected ttl error, got %v", err)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatal("expected port range error")
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("LOOKUP_TIMEOUT", "soon")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestLoadRejectsRelativeServiceURL(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("ACCOUNTS_BASE_URL", "/api")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "ACCOUNTS_BASE_URL") {
		t.Fatalf("expected base url error, got %v", err)
	}
}
