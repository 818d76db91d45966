package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fblasco1/portfolio-fotografo/internal/config"
	"github.com/fblasco1/portfolio-fotografo/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/payment/create-intent", h.CreateIntent).Methods("POST").Name("payment.create_intent")
	api.HandleFunc("/payment/create-payment", h.CreatePayment).Methods("POST").Name("payment.create_payment")
	api.HandleFunc("/payment/installments", h.Installments).Methods("GET").Name("payment.installments")
	api.HandleFunc("/payment/issuers", h.Issuers).Methods("GET").Name("payment.issuers")
	api.HandleFunc("/payment/methods", h.PaymentMethods).Methods("GET").Name("payment.methods")
	api.HandleFunc("/payment/region", h.Region).Methods("GET").Name("payment.region")
	api.HandleFunc("/payment/region", h.RegionOverride).Methods("POST").Name("payment.region_override")
	api.HandleFunc("/payment/webhook/mercadopago", h.MercadoPagoWebhook).Methods("POST").Name("webhooks.mercadopago")

	api.HandleFunc("/cart/quote", h.CartQuote).Methods("GET").Name("cart.quote")

	// Public admin route
	api.HandleFunc("/admin/login", h.AdminLogin).Methods("POST").Name("admin.login")

	// Protected admin routes - require a bearer token
	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(h.RequireAuth)
	adminRouter.HandleFunc("/orders", h.AdminOrders).Methods("GET").Name("admin.orders")
	adminRouter.HandleFunc("/orders/{id}", h.AdminOrder).Methods("GET").Name("admin.orders.get")
	adminRouter.HandleFunc("/orders/{id}/refund", h.AdminRefundOrder).Methods("POST").Name("admin.orders.refund")
	adminRouter.HandleFunc("/payments/{id}", h.AdminPayment).Methods("GET").Name("admin.payments.get")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})

	return r
}
