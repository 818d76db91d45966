package models

// PaymentProvider identifies which backing processor serves a region.
type PaymentProvider string

const (
	ProviderMercadoPago PaymentProvider = "mercadopago"
	ProviderStripe      PaymentProvider = "stripe"
)

// RegionInfo is resolved once per checkout session and immutable afterwards.
type RegionInfo struct {
	Country        string          `json:"country"`
	Currency       string          `json:"currency"`
	IsLatinAmerica bool            `json:"is_latin_america"`
	IsSupported    bool            `json:"is_supported"`
	Provider       PaymentProvider `json:"payment_provider"`
}
