package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/payment"
	"github.com/fblasco1/portfolio-fotografo/internal/services"
)

type createIntentRequest struct {
	Items    []models.CartItem       `json:"items" validate:"required,min=1,dive"`
	Customer services.CustomerInfo   `json:"customer"`
	Shipping *models.ShippingAddress `json:"shipping_address,omitempty"`
	Country  string                  `json:"country,omitempty"`
}

func (h *Handlers) CreateIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var req createIntentRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := requestValidator.Struct(req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	reg := h.resolveRegion(r, req.Country)
	req.Customer.Address = req.Shipping

	intent, err := h.checkoutService.CreateIntent(ctx, reg, req.Items, req.Customer)
	if err != nil {
		logger.Error("failed to create payment intent", "error", err, "provider", reg.Provider)
		h.writeError(w, r, http.StatusInternalServerError, normalizeProviderMessage(err))
		return
	}

	h.writeJSON(w, r, http.StatusOK, intent)
}

type createPaymentRequest struct {
	payment.Request
	Items    []models.CartItem       `json:"items,omitempty"`
	Customer services.CustomerInfo   `json:"customer"`
	Shipping *models.ShippingAddress `json:"shipping_address,omitempty"`
	Country  string                  `json:"country,omitempty"`
}

func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var req createPaymentRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := requestValidator.Struct(req.Request); err != nil {
		h.writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	reg := h.resolveRegion(r, req.Country)
	req.Customer.Address = req.Shipping

	pay, err := h.checkoutService.CreatePayment(ctx, reg, req.Request, req.Items, req.Customer)
	if err != nil {
		logger.Error("failed to create payment", "error", err, "provider", reg.Provider)
		h.writeError(w, r, http.StatusInternalServerError, normalizeProviderMessage(err))
		return
	}

	h.writeJSON(w, r, http.StatusOK, pay)
}

func (h *Handlers) Installments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	amountParam := r.URL.Query().Get("amount")
	bin := r.URL.Query().Get("bin")
	if amountParam == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing required field: amount")
		return
	}
	if bin == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing required field: bin")
		return
	}
	amount, err := strconv.ParseFloat(amountParam, 64)
	if err != nil || amount <= 0 {
		h.writeError(w, r, http.StatusBadRequest, "invalid value for field: amount")
		return
	}

	provider, err := h.providerForRequest(r)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	options, err := provider.Installments(ctx, amount, bin)
	if err != nil {
		h.capabilityError(w, r, provider, err, "installments")
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"installments": options})
}

func (h *Handlers) Issuers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paymentMethodID := r.URL.Query().Get("payment_method_id")
	bin := r.URL.Query().Get("bin")
	if paymentMethodID == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing required field: payment_method_id")
		return
	}

	provider, err := h.providerForRequest(r)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	issuers, err := provider.Issuers(ctx, paymentMethodID, bin)
	if err != nil {
		h.capabilityError(w, r, provider, err, "issuers")
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"issuers": issuers})
}

func (h *Handlers) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provider, err := h.providerForRequest(r)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	methods, err := provider.PaymentMethods(ctx)
	if err != nil {
		h.capabilityError(w, r, provider, err, "payment methods")
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"payment_methods": methods})
}

// providerForRequest selects the adapter for the caller's region, honoring
// an explicit ?country= override.
func (h *Handlers) providerForRequest(r *http.Request) (payment.Provider, error) {
	reg := h.resolveRegion(r, r.URL.Query().Get("country"))
	return h.paymentFactory.ForRegion(reg)
}

// capabilityError distinguishes "this provider cannot do that" from a real
// upstream failure.
func (h *Handlers) capabilityError(w http.ResponseWriter, r *http.Request, provider payment.Provider, err error, capability string) {
	if errors.Is(err, payment.ErrUnsupported) {
		h.writeError(w, r, http.StatusBadRequest, capability+" are not available for provider "+string(provider.Name()))
		return
	}
	h.loggerFromContext(r.Context()).Error("provider capability call failed",
		"error", err, "capability", capability, "provider", provider.Name())
	h.writeError(w, r, http.StatusInternalServerError, normalizeProviderMessage(err))
}

// normalizeProviderMessage keeps upstream failures readable without leaking
// raw response bodies.
func normalizeProviderMessage(err error) string {
	var providerErr *payment.ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Message
	}
	return "payment processing failed"
}
