package region

// Package region resolves a client country into currency and payment
// provider context for a checkout session.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fblasco1/portfolio-fotografo/internal/logging"
	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/observability"
)

const geoLookupTimeout = 3 * time.Second

type countryProfile struct {
	currency     string
	latinAmerica bool
}

// Countries the shop actively serves. The MercadoPago set matches the
// countries where card checkout is available with the shop's credentials.
var countries = map[string]countryProfile{
	"AR": {currency: "ARS", latinAmerica: true},
	"BR": {currency: "BRL", latinAmerica: true},
	"CL": {currency: "CLP", latinAmerica: true},
	"CO": {currency: "COP", latinAmerica: true},
	"MX": {currency: "MXN", latinAmerica: true},
	"PE": {currency: "PEN", latinAmerica: true},
	"UY": {currency: "UYU", latinAmerica: true},

	"US": {currency: "USD"},
	"CA": {currency: "CAD"},
	"GB": {currency: "GBP"},
	"DE": {currency: "EUR"},
	"ES": {currency: "EUR"},
	"FR": {currency: "EUR"},
	"IT": {currency: "EUR"},
	"NL": {currency: "EUR"},
	"PT": {currency: "EUR"},
	"AU": {currency: "AUD"},
	"JP": {currency: "JPY"},
}

type Resolver struct {
	geoAPIURL       string
	fallbackCountry string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewResolver(geoAPIURL, fallbackCountry string, logger *slog.Logger) *Resolver {
	return &Resolver{
		geoAPIURL:       strings.TrimRight(geoAPIURL, "/"),
		fallbackCountry: strings.ToUpper(fallbackCountry),
		httpClient:      observability.NewHTTPClient(geoLookupTimeout),
		logger:          logger,
	}
}

// Resolve maps a country code to region context. Unknown countries are
// flagged unsupported but still get a working (fallback) provider so the
// storefront can degrade instead of breaking.
func (r *Resolver) Resolve(countryCode string) models.RegionInfo {
	country := strings.ToUpper(strings.TrimSpace(countryCode))
	if country == "" {
		country = r.fallbackCountry
	}

	profile, ok := countries[country]
	if !ok {
		return models.RegionInfo{
			Country:     country,
			Currency:    "USD",
			IsSupported: false,
			Provider:    models.ProviderStripe,
		}
	}

	provider := models.ProviderStripe
	if profile.latinAmerica {
		provider = models.ProviderMercadoPago
	}

	return models.RegionInfo{
		Country:        country,
		Currency:       profile.currency,
		IsLatinAmerica: profile.latinAmerica,
		IsSupported:    true,
		Provider:       provider,
	}
}

// Fallback is the home region used whenever detection is unavailable.
func (r *Resolver) Fallback() models.RegionInfo {
	return r.Resolve(r.fallbackCountry)
}

type geoResponse struct {
	CountryCode string `json:"country_code"`
}

// DetectFromIP resolves the caller's region from its IP. The lookup is
// best effort: any failure falls back to the home region, because region
// detection must never block checkout.
func (r *Resolver) DetectFromIP(ctx context.Context, ip string) models.RegionInfo {
	logger := logging.FromContext(ctx, r.logger)

	ip = strings.TrimSpace(ip)
	if ip == "" || isPrivateAddress(ip) {
		return r.Fallback()
	}

	url := fmt.Sprintf("%s/%s/json/", r.geoAPIURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logger.Warn("failed to build geolocation request", "error", err)
		return r.Fallback()
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		logger.Warn("geolocation lookup failed, using fallback region", "error", err, "ip", ip)
		return r.Fallback()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("geolocation lookup returned non-200, using fallback region", "status", resp.StatusCode, "ip", ip)
		return r.Fallback()
	}

	var geo geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		logger.Warn("failed to decode geolocation response, using fallback region", "error", err)
		return r.Fallback()
	}
	if geo.CountryCode == "" {
		return r.Fallback()
	}

	return r.Resolve(geo.CountryCode)
}

func isPrivateAddress(ip string) bool {
	switch {
	case strings.HasPrefix(ip, "10."),
		strings.HasPrefix(ip, "192.168."),
		strings.HasPrefix(ip, "127."),
		ip == "::1", ip == "localhost":
		return true
	}
	return false
}
