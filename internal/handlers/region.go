package handlers

import (
	"net/http"

	"github.com/fblasco1/portfolio-fotografo/internal/models"
)

// Region reports the caller's resolved region: country, currency and which
// payment provider will take the charge.
func (h *Handlers) Region(w http.ResponseWriter, r *http.Request) {
	reg := h.regionResolver.DetectFromIP(r.Context(), clientIP(r))
	h.writeJSON(w, r, http.StatusOK, reg)
}

type regionOverrideRequest struct {
	CountryCode string `json:"country_code" validate:"required,len=2"`
}

// RegionOverride lets the client pin a country instead of trusting IP
// geolocation, e.g. a traveler paying with a home-country card.
func (h *Handlers) RegionOverride(w http.ResponseWriter, r *http.Request) {
	var req regionOverrideRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := requestValidator.Struct(req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	h.writeJSON(w, r, http.StatusOK, h.regionResolver.Resolve(req.CountryCode))
}

// resolveRegion picks the region for a checkout call: explicit country
// override first, IP geolocation otherwise. Both paths degrade to the
// configured fallback rather than failing the request.
func (h *Handlers) resolveRegion(r *http.Request, countryOverride string) models.RegionInfo {
	if countryOverride != "" {
		return h.regionResolver.Resolve(countryOverride)
	}
	return h.regionResolver.DetectFromIP(r.Context(), clientIP(r))
}
