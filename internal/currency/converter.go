package currency

// Package currency converts base-currency (USD) prices into the shopper's
// local currency for display.

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fblasco1/portfolio-fotografo/internal/cache"
	"github.com/fblasco1/portfolio-fotografo/internal/logging"
	"github.com/fblasco1/portfolio-fotografo/internal/observability"
)

const (
	lookupTimeout = 3 * time.Second
	rateCacheTTL  = time.Hour
)

type Converter struct {
	apiURL     string
	httpClient *http.Client
	cache      cache.Provider
	logger     *slog.Logger
}

func NewConverter(apiURL string, cacheProvider cache.Provider, logger *slog.Logger) *Converter {
	return &Converter{
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: observability.NewHTTPClient(lookupTimeout),
		cache:      cacheProvider,
		logger:     logger,
	}
}

// Convert returns amountUSD in the target currency, rounded to two
// decimals. On any upstream failure it returns 0: the caller treats 0 as
// "price unknown" and keeps rendering; a rate outage must never take the
// cart down with it.
func (c *Converter) Convert(ctx context.Context, amountUSD float64, targetCurrency, country string) float64 {
	if amountUSD < 0 {
		return 0
	}

	targetCurrency = strings.ToUpper(strings.TrimSpace(targetCurrency))
	if targetCurrency == "" || targetCurrency == "USD" {
		return round2(amountUSD)
	}

	rate := c.rateFor(ctx, targetCurrency, country)
	if rate <= 0 {
		return 0
	}
	return round2(amountUSD * rate)
}

func (c *Converter) rateFor(ctx context.Context, targetCurrency, country string) float64 {
	logger := logging.FromContext(ctx, c.logger)

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cache.RateKey(targetCurrency)); err == nil {
			if rate, parseErr := strconv.ParseFloat(cached, 64); parseErr == nil && rate > 0 {
				return rate
			}
		}
	}

	rate, err := c.fetchRate(ctx, targetCurrency)
	if err != nil {
		logger.Warn("exchange rate lookup failed, price reported as unknown",
			"error", err, "currency", targetCurrency, "country", country)
		return 0
	}

	if c.cache != nil {
		value := strconv.FormatFloat(rate, 'f', -1, 64)
		if err := c.cache.Set(ctx, cache.RateKey(targetCurrency), value, rateCacheTTL); err != nil {
			logger.Warn("failed to cache exchange rate", "error", err, "currency", targetCurrency)
		}
	}

	return rate
}

type ratesResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

func (c *Converter) fetchRate(ctx context.Context, targetCurrency string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/latest/USD", nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &statusError{status: resp.StatusCode}
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}

	rate, ok := payload.Rates[targetCurrency]
	if !ok || rate <= 0 {
		return 0, &unknownCurrencyError{currency: targetCurrency}
	}
	return rate, nil
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return "exchange rate service returned status " + strconv.Itoa(e.status)
}

type unknownCurrencyError struct {
	currency string
}

func (e *unknownCurrencyError) Error() string {
	return "no exchange rate for currency " + e.currency
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
