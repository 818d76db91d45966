package config

import (
	"log/slog"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:            "postgres://localhost:5432/portfolio",
		MercadoPagoAccessToken: "APP_USR-test-token",
		BaseURL:                "https://example.com",
		GeoAPIURL:              "https://ipapi.co",
		ExchangeAPIURL:         "https://open.er-api.com/v6",
		FallbackCountry:        "AR",
		AdminEmail:             "admin@example.com",
		AdminPassword:          "correct-horse-battery",
		JWTSecret:              strings.Repeat("s", 32),
		CacheProvider:          "memory",
		RedisConnectionString:  "redis://localhost:6379/0",
		EmailFrom:              "tienda@example.com",
		CatalogPath:            "catalog.yaml",
		LogLevel:               slog.LevelInfo,
		LogFormat:              "text",
		Port:                   "8080",
	}
}

func TestValidateJWTSecretLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{
			name:    "valid 32-byte secret",
			secret:  strings.Repeat("k", 32),
			wantErr: false,
		},
		{
			name:    "short secret",
			secret:  "short",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.JWTSecret = tt.secret

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateBaseURLRequiresHTTPS(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.BaseURL = "http://shop.example.com"

	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for http base URL outside localhost")
	}

	cfg.BaseURL = "http://localhost:8080"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected localhost http to be allowed, got %v", err)
	}
}

func TestValidateNormalizesFallbackCountry(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.FallbackCountry = "ar"

	if err := cfg.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FallbackCountry != "AR" {
		t.Fatalf("expected AR, got %q", cfg.FallbackCountry)
	}
}

func TestValidateCacheProvider(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CacheProvider = "invalid"

	err := cfg.validate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "CacheProvider") || !strings.Contains(err.Error(), "oneof") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedirectURLs(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.BaseURL = "https://example.com/"

	if got := cfg.SuccessURL(); got != "https://example.com/payment/success" {
		t.Fatalf("unexpected success URL: %q", got)
	}
	if got := cfg.FailureURL(); got != "https://example.com/payment/failure" {
		t.Fatalf("unexpected failure URL: %q", got)
	}
	if got := cfg.PendingURL(); got != "https://example.com/payment/pending" {
		t.Fatalf("unexpected pending URL: %q", got)
	}
}
