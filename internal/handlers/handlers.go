package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fblasco1/portfolio-fotografo/internal/auth"
	"github.com/fblasco1/portfolio-fotografo/internal/cache"
	"github.com/fblasco1/portfolio-fotografo/internal/config"
	"github.com/fblasco1/portfolio-fotografo/internal/logging"
	"github.com/fblasco1/portfolio-fotografo/internal/payment"
	"github.com/fblasco1/portfolio-fotografo/internal/region"
	"github.com/fblasco1/portfolio-fotografo/internal/services"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MB
const maxRequestBodyBytes = 1 << 20

// Handlers provides the JSON API surface of the store backend.
type Handlers struct {
	config          *config.Config
	db              *pgxpool.Pool
	cacheProvider   cache.Provider
	regionResolver  *region.Resolver
	paymentFactory  *payment.Factory
	checkoutService *services.CheckoutService
	reconciler      *services.ReconcilerService
	adminService    *services.AdminService
	authManager     *auth.Manager
	logger          *slog.Logger
}

type Dependencies struct {
	Config          *config.Config
	DB              *pgxpool.Pool
	CacheProvider   cache.Provider
	RegionResolver  *region.Resolver
	PaymentFactory  *payment.Factory
	CheckoutService *services.CheckoutService
	Reconciler      *services.ReconcilerService
	AdminService    *services.AdminService
	AuthManager     *auth.Manager
	Logger          *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.RegionResolver == nil {
		return nil, fmt.Errorf("handlers dependencies: regionResolver is required")
	}
	if deps.PaymentFactory == nil {
		return nil, fmt.Errorf("handlers dependencies: paymentFactory is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.Reconciler == nil {
		return nil, fmt.Errorf("handlers dependencies: reconciler is required")
	}
	if deps.AdminService == nil {
		return nil, fmt.Errorf("handlers dependencies: adminService is required")
	}
	if deps.AuthManager == nil {
		return nil, fmt.Errorf("handlers dependencies: authManager is required")
	}

	return &Handlers{
		config:          deps.Config,
		db:              deps.DB,
		cacheProvider:   deps.CacheProvider,
		regionResolver:  deps.RegionResolver,
		paymentFactory:  deps.PaymentFactory,
		checkoutService: deps.CheckoutService,
		reconciler:      deps.Reconciler,
		adminService:    deps.AdminService,
		authManager:     deps.AuthManager,
		logger:          logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, map[string]string{"error": message})
}

func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// requestValidator reports field names from json tags so validation errors
// name the field the client actually sent.
var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		tag := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return field.Name
		}
		return tag
	})
	return v
}

// validationMessage flattens a validator error into a client-facing message
// naming the first offending field.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return fmt.Sprintf("missing required field: %s", fe.Field())
		}
		return fmt.Sprintf("invalid value for field: %s", fe.Field())
	}
	return "invalid request"
}
