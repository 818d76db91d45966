// Package mercadopago provides MercadoPago webhook validation and parsing.
package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Notification is the parsed inbound webhook. Its body status is never
// trusted; the reconciler re-fetches the authoritative record using DataID.
type Notification struct {
	// ID is the provider's per-event id, set only when the delivery
	// carries one (the JSON body form). The legacy query form reuses the
	// resource id across status changes, so it yields no ID and must not
	// be deduplicated by delivery.
	ID string
	// Type is "payment" or "merchant_order".
	Type string
	// DataID is the provider payment or merchant-order id to re-fetch.
	DataID string
}

type webhookBody struct {
	ID     json.Number `json:"id"`
	Action string      `json:"action"`
	Type   string      `json:"type"`
	Topic  string      `json:"topic"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
	Resource string `json:"resource"`
}

// ParseNotification handles both notification formats the provider sends:
// the JSON body form (type + data.id) and the legacy query-parameter form
// (topic + id).
func ParseNotification(r *http.Request, body []byte) (*Notification, error) {
	n := &Notification{}

	if len(body) > 0 {
		var payload webhookBody
		if err := json.Unmarshal(body, &payload); err == nil {
			n.ID = payload.ID.String()
			n.Type = payload.Type
			if n.Type == "" {
				n.Type = payload.Topic
			}
			n.DataID = payload.Data.ID.String()
			if n.DataID == "" && payload.Resource != "" {
				n.DataID = lastPathSegment(payload.Resource)
			}
		}
	}

	query := r.URL.Query()
	if n.Type == "" {
		n.Type = query.Get("topic")
	}
	if n.Type == "" {
		n.Type = query.Get("type")
	}
	if n.DataID == "" {
		n.DataID = query.Get("data.id")
	}
	if n.DataID == "" {
		n.DataID = query.Get("id")
	}

	if n.DataID == "" {
		return nil, fmt.Errorf("notification carries no payment or order id")
	}
	return n, nil
}

// VerifySignature checks the provider's HMAC scheme: the x-signature header
// carries ts and v1, and v1 must equal HMAC-SHA256(secret) over the
// manifest "id:<data.id>;request-id:<x-request-id>;ts:<ts>;". Parts whose
// source value is absent are omitted from the manifest, matching the
// provider's canonical-string rules.
func VerifySignature(r *http.Request, secret string) error {
	signature := r.Header.Get("x-signature")
	if signature == "" {
		return fmt.Errorf("missing x-signature header")
	}

	ts, v1 := parseSignatureHeader(signature)
	if ts == "" || v1 == "" {
		return fmt.Errorf("malformed x-signature header")
	}

	dataID := strings.ToLower(r.URL.Query().Get("data.id"))
	requestID := r.Header.Get("x-request-id")

	var manifest strings.Builder
	if dataID != "" {
		fmt.Fprintf(&manifest, "id:%s;", dataID)
	}
	if requestID != "" {
		fmt.Fprintf(&manifest, "request-id:%s;", requestID)
	}
	fmt.Fprintf(&manifest, "ts:%s;", ts)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest.String()))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return fmt.Errorf("webhook signature validation failed")
	}
	return nil
}

func parseSignatureHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	return ts, v1
}

func lastPathSegment(resource string) string {
	trimmed := strings.TrimRight(resource, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
