package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fblasco1/portfolio-fotografo/internal/auth"
	"github.com/fblasco1/portfolio-fotografo/internal/cache"
	"github.com/fblasco1/portfolio-fotografo/internal/catalog"
	"github.com/fblasco1/portfolio-fotografo/internal/config"
	"github.com/fblasco1/portfolio-fotografo/internal/currency"
	"github.com/fblasco1/portfolio-fotografo/internal/db"
	"github.com/fblasco1/portfolio-fotografo/internal/email"
	"github.com/fblasco1/portfolio-fotografo/internal/handlers"
	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/payment"
	"github.com/fblasco1/portfolio-fotografo/internal/region"
	"github.com/fblasco1/portfolio-fotografo/internal/services"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	priceList, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	regionResolver := region.NewResolver(cfg.GeoAPIURL, cfg.FallbackCountry, logger.With("component", "region_resolver"))
	converter := currency.NewConverter(cfg.ExchangeAPIURL, cacheProvider, logger.With("component", "currency_converter"))

	mercadoPago := payment.NewMercadoPago(cfg.MercadoPagoAccessToken, payment.RedirectURLs{
		Success: cfg.SuccessURL(),
		Failure: cfg.FailureURL(),
		Pending: cfg.PendingURL(),
	}, logger.With("component", "mercadopago"))

	providers := []payment.Provider{mercadoPago}
	if cfg.StripeSecretKey != "" {
		providers = append(providers, payment.NewStripe(cfg.StripeSecretKey))
	}
	factory := payment.NewFactory(models.ProviderMercadoPago, providers...)

	var emailProvider email.Provider = email.NoopProvider{}
	if cfg.ResendAPIKey != "" {
		emailProvider = email.NewResendProvider(cfg.ResendAPIKey, cfg.EmailFrom)
	}

	orderStore := db.NewOrderStore(database)
	pricer := catalog.NewPricer(priceList)

	checkoutService := services.NewCheckoutService(pricer, converter, factory, orderStore, logger.With("component", "checkout_service"))
	reconciler := services.NewReconcilerService(factory, orderStore, emailProvider, cacheProvider, logger.With("component", "reconciler"))
	adminService := services.NewAdminService(orderStore, factory, logger.With("component", "admin_service"))
	authManager := auth.NewManager(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword)

	h, err := handlers.New(handlers.Dependencies{
		Config:          cfg,
		DB:              database,
		CacheProvider:   cacheProvider,
		RegionResolver:  regionResolver,
		PaymentFactory:  factory,
		CheckoutService: checkoutService,
		Reconciler:      reconciler,
		AdminService:    adminService,
		AuthManager:     authManager,
		Logger:          logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	case "text", "":
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel}))
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
