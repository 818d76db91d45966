package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/fblasco1/portfolio-fotografo/internal/db"
	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/services"
)

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminLogin exchanges credentials for a bearer token. Failures are
// deliberately uniform so the response never reveals which part was wrong.
func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromContext(r.Context())

	var req adminLoginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := requestValidator.Struct(req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	token, expiresAt, err := h.authManager.Login(req.Email, req.Password)
	if err != nil {
		logger.Warn("rejected admin login", "email", req.Email, "remote_ip", clientIP(r))
		h.writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

// RequireAuth guards the admin API with bearer tokens.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			h.writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		if err := h.authManager.Verify(strings.TrimSpace(token)); err != nil {
			h.loggerFromContext(r.Context()).Warn("rejected admin token", "error", err, "remote_ip", clientIP(r))
			h.writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) AdminOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	begin, err := parseDateParam(query.Get("begin_date"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid value for field: begin_date")
		return
	}
	end, err := parseDateParam(query.Get("end_date"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid value for field: end_date")
		return
	}
	if !end.IsZero() {
		// An end date filters through the whole day, not up to midnight.
		end = end.Add(24*time.Hour - time.Nanosecond)
	}

	orders, err := h.adminService.ListOrders(r.Context(), query.Get("status"), begin, end)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handlers) AdminOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, err := h.adminService.GetOrder(r.Context(), id)
	if err != nil {
		h.orderLookupError(w, r, id, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

func (h *Handlers) AdminRefundOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	id := mux.Vars(r)["id"]

	order, err := h.adminService.RefundOrder(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			h.writeError(w, r, http.StatusNotFound, "order not found")
			return
		}
		if errors.Is(err, services.ErrOrderNotRefundable) {
			h.writeError(w, r, http.StatusConflict, "order is not in a refundable state")
			return
		}
		logger.Error("refund failed", "error", err, "order", id)
		h.writeError(w, r, http.StatusInternalServerError, normalizeProviderMessage(err))
		return
	}

	logger.Info("order refunded", "order_id", order.ID, "payment_id", order.PaymentID)
	h.writeJSON(w, r, http.StatusOK, order)
}

func (h *Handlers) AdminPayment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	pay, err := h.adminService.GetPayment(r.Context(), id)
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to fetch payment", "error", err, "payment_id", id)
		h.writeError(w, r, http.StatusInternalServerError, normalizeProviderMessage(err))
		return
	}
	h.writeJSON(w, r, http.StatusOK, pay)
}

func (h *Handlers) orderLookupError(w http.ResponseWriter, r *http.Request, id string, err error) {
	if errors.Is(err, db.ErrOrderNotFound) {
		h.writeError(w, r, http.StatusNotFound, "order not found")
		return
	}
	h.loggerFromContext(r.Context()).Error("failed to fetch order", "error", err, "order", id)
	h.writeError(w, r, http.StatusInternalServerError, "failed to fetch order")
}

// parseDateParam accepts plain dates and RFC3339 timestamps.
func parseDateParam(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
