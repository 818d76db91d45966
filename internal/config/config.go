package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	MercadoPagoAccessToken   string `env:"MERCADOPAGO_ACCESS_TOKEN,required" validate:"required"`
	MercadoPagoPublicKey     string `env:"MERCADOPAGO_PUBLIC_KEY"`
	MercadoPagoWebhookSecret string `env:"MERCADOPAGO_WEBHOOK_SECRET"`
	StripeSecretKey          string `env:"STRIPE_SECRET_KEY"`

	// BaseURL builds the provider redirect URLs (/payment/success,
	// /payment/failure, /payment/pending).
	BaseURL string `env:"BASE_URL,required" validate:"required,url"`

	GeoAPIURL       string `env:"GEO_API_URL" envDefault:"https://ipapi.co" validate:"required,url"`
	ExchangeAPIURL  string `env:"EXCHANGE_API_URL" envDefault:"https://open.er-api.com/v6" validate:"required,url"`
	FallbackCountry string `env:"FALLBACK_COUNTRY" envDefault:"AR" validate:"required,len=2"`

	AdminEmail    string `env:"ADMIN_EMAIL,required" validate:"required,email"`
	AdminPassword string `env:"ADMIN_PASSWORD,required" validate:"required,min=12"`
	JWTSecret     string `env:"JWT_SECRET,required" validate:"required,min=32"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"tienda@portfolio-fotografo.com" validate:"omitempty,email"`

	CatalogPath string `env:"CATALOG_PATH" envDefault:"catalog.yaml" validate:"required"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	baseURL := strings.TrimSpace(c.BaseURL)
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("BASE_URL must be a valid absolute URL")
	}
	if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("BASE_URL must use https outside local development")
	}

	c.FallbackCountry = strings.ToUpper(strings.TrimSpace(c.FallbackCountry))
	return nil
}

// SuccessURL and friends are where the provider sends the customer back
// after hosted checkout.
func (c *Config) SuccessURL() string { return c.redirectURL("success") }
func (c *Config) FailureURL() string { return c.redirectURL("failure") }
func (c *Config) PendingURL() string { return c.redirectURL("pending") }

func (c *Config) redirectURL(outcome string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/payment/" + outcome
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
