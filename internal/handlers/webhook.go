package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/fblasco1/portfolio-fotografo/internal/cache"
	"github.com/fblasco1/portfolio-fotografo/internal/logging"
	"github.com/fblasco1/portfolio-fotografo/internal/mercadopago"
	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/observability"
)

// webhookIdempotencyTTL is how long notification IDs are kept for
// deduplication.
const webhookIdempotencyTTL = 24 * time.Hour

// webhookProcessTimeout bounds the reconciliation that runs after the ack.
const webhookProcessTimeout = 30 * time.Second

// MercadoPagoWebhook acknowledges the notification fast and reconciles in
// the background. The provider retries on non-2xx, so the response only
// says "received", never "fully processed".
func (h *Handlers) MercadoPagoWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read webhook payload", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	if secret := h.config.MercadoPagoWebhookSecret; secret != "" {
		if err := mercadopago.VerifySignature(r, secret); err != nil {
			meter.Count("webhook.signature_rejected", 1)
			logger.Warn("rejected webhook with invalid signature", "error", err, "remote_ip", clientIP(r))
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}
	}

	notification, err := mercadopago.ParseNotification(r, body)
	if err != nil {
		logger.Error("failed to parse webhook notification", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	// Deduplicate by delivery only when the notification carries a real
	// event id. The legacy query form reuses the resource id for every
	// status change, so those always go through; the upsert keyed on the
	// provider id keeps replays convergent anyway.
	var cacheKey string
	if notification.ID != "" {
		cacheKey = cache.WebhookKey("mercadopago", notification.ID)
		if _, err := h.cacheProvider.Get(ctx, cacheKey); err == nil {
			logger.Info("webhook already processed", "notification_id", notification.ID)
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	meter.Count("webhook.accepted", 1, sentry.WithAttributes(
		attribute.String("webhook.type", notification.Type),
	))

	// Ack first, reconcile after. The authoritative state is re-fetched
	// from the provider, so a lost goroutine only means waiting for the
	// provider's retry.
	processCtx := logging.WithLogger(context.WithoutCancel(ctx), logger)
	go h.processWebhook(processCtx, notification, cacheKey)

	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) processWebhook(ctx context.Context, notification *mercadopago.Notification, cacheKey string) {
	ctx, cancel := context.WithTimeout(ctx, webhookProcessTimeout)
	defer cancel()
	logger := h.loggerFromContext(ctx)

	if err := h.reconciler.Handle(ctx, models.ProviderMercadoPago, notification); err != nil {
		logger.Error("failed to reconcile webhook notification",
			"error", err, "notification_id", notification.ID,
			"data_id", notification.DataID, "type", notification.Type)
		return
	}

	if cacheKey == "" {
		return
	}
	if err := h.cacheProvider.Set(ctx, cacheKey, "processed", webhookIdempotencyTTL); err != nil {
		logger.Error("failed to mark webhook as processed in cache", "error", err)
	}
}
