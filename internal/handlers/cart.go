package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fblasco1/portfolio-fotografo/internal/models"
)

// CartQuote prices a cart without creating anything. Items come in the
// query string as a comma separated list of product:size[:quantity]
// triples, e.g. ?items=andes-01:medium:2,rio-04:custom.
func (h *Handlers) CartQuote(w http.ResponseWriter, r *http.Request) {
	itemsParam := r.URL.Query().Get("items")
	if itemsParam == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing required field: items")
		return
	}

	items, err := parseCartItems(itemsParam)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	reg := h.resolveRegion(r, r.URL.Query().Get("country"))
	quote := h.checkoutService.QuoteCart(r.Context(), reg, items)
	h.writeJSON(w, r, http.StatusOK, quote)
}

func parseCartItems(param string) ([]models.CartItem, error) {
	var items []models.CartItem
	for _, entry := range strings.Split(param, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid cart item %q, want product:size[:quantity]", entry)
		}

		size := models.PrintSize(strings.ToLower(parts[1]))
		if !size.Valid() {
			return nil, fmt.Errorf("invalid print size %q", parts[1])
		}

		quantity := 1
		if len(parts) >= 3 {
			parsed, err := strconv.Atoi(parts[2])
			if err != nil || parsed < 1 {
				return nil, fmt.Errorf("invalid quantity %q", parts[2])
			}
			quantity = parsed
		}

		items = append(items, models.CartItem{
			ProductID: parts[0],
			Size:      size,
			Quantity:  quantity,
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("missing required field: items")
	}
	return items, nil
}
