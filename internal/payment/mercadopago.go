package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/observability"
)

const (
	mercadoPagoAPIURL  = "https://api.mercadopago.com"
	mercadoPagoTimeout = 8 * time.Second
)

// RedirectURLs are where the provider sends the customer back after a
// hosted checkout.
type RedirectURLs struct {
	Success string
	Failure string
	Pending string
}

// MercadoPago serves the Latin-American regions with the full capability
// set: hosted preferences, card token payments, installments and issuers.
type MercadoPago struct {
	accessToken string
	baseURL     string
	redirects   RedirectURLs
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewMercadoPago(accessToken string, redirects RedirectURLs, logger *slog.Logger) *MercadoPago {
	return &MercadoPago{
		accessToken: accessToken,
		baseURL:     mercadoPagoAPIURL,
		redirects:   redirects,
		httpClient:  observability.NewHTTPClient(mercadoPagoTimeout),
		logger:      logger,
	}
}

func (m *MercadoPago) Name() models.PaymentProvider {
	return models.ProviderMercadoPago
}

type mpPreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type mpPreferenceRequest struct {
	Items             []mpPreferenceItem `json:"items"`
	ExternalReference string             `json:"external_reference"`
	BackURLs          mpBackURLs         `json:"back_urls"`
	AutoReturn        string             `json:"auto_return"`
	Metadata          map[string]any     `json:"metadata,omitempty"`
}

type mpBackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type mpPreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

func (m *MercadoPago) CreateIntent(ctx context.Context, region models.RegionInfo, amount float64, items []models.OrderItem) (*Intent, error) {
	prefItems := make([]mpPreferenceItem, 0, len(items))
	for _, item := range items {
		prefItems = append(prefItems, mpPreferenceItem{
			ID:         item.ProductID + "/" + item.Size,
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			CurrencyID: region.Currency,
		})
	}

	body := mpPreferenceRequest{
		Items:             prefItems,
		ExternalReference: uuid.NewString(),
		BackURLs: mpBackURLs{
			Success: m.redirects.Success,
			Failure: m.redirects.Failure,
			Pending: m.redirects.Pending,
		},
		AutoReturn: "approved",
		Metadata: map[string]any{
			"country": region.Country,
		},
	}

	var pref mpPreferenceResponse
	if err := m.do(ctx, http.MethodPost, "/checkout/preferences", body, &pref); err != nil {
		return nil, err
	}

	return &Intent{
		ID:          pref.ID,
		Amount:      amount,
		Currency:    region.Currency,
		Provider:    string(m.Name()),
		CheckoutURL: pref.InitPoint,
		Payload: map[string]any{
			"external_reference": body.ExternalReference,
			"sandbox_init_point": pref.SandboxInitPoint,
		},
	}, nil
}

type mpPaymentRequest struct {
	Token             string         `json:"token"`
	TransactionAmount float64        `json:"transaction_amount"`
	Installments      int            `json:"installments"`
	PaymentMethodID   string         `json:"payment_method_id"`
	Payer             mpPayer        `json:"payer"`
	Description       string         `json:"description,omitempty"`
	ExternalReference string         `json:"external_reference,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

type mpPayer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type mpPayment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	PaymentMethodID   string      `json:"payment_method_id"`
	Installments      int         `json:"installments"`
	ExternalReference string      `json:"external_reference"`
	Order             struct {
		ID json.Number `json:"id"`
	} `json:"order"`
	Payer struct {
		Email string `json:"email"`
	} `json:"payer"`
	Metadata map[string]any `json:"metadata"`
}

func (m *MercadoPago) CreatePayment(ctx context.Context, region models.RegionInfo, req Request) (*Payment, error) {
	payer := mpPayer{}
	if req.Payer != nil {
		payer = mpPayer{
			Email:     req.Payer.Email,
			FirstName: req.Payer.FirstName,
			LastName:  req.Payer.LastName,
		}
	}

	body := mpPaymentRequest{
		Token:             req.Token,
		TransactionAmount: req.TransactionAmount,
		Installments:      req.Installments,
		PaymentMethodID:   req.PaymentMethodID,
		Payer:             payer,
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
		Metadata: map[string]any{
			"country": region.Country,
		},
	}

	var mp mpPayment
	if err := m.do(ctx, http.MethodPost, "/v1/payments", body, &mp); err != nil {
		return nil, err
	}
	return mp.toPayment(), nil
}

type mpPaymentMethod struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PaymentTypeID string `json:"payment_type_id"`
	Thumbnail     string `json:"thumbnail"`
}

func (m *MercadoPago) PaymentMethods(ctx context.Context) ([]Method, error) {
	var mpMethods []mpPaymentMethod
	if err := m.do(ctx, http.MethodGet, "/v1/payment_methods", nil, &mpMethods); err != nil {
		return nil, err
	}

	methods := make([]Method, 0, len(mpMethods))
	for _, method := range mpMethods {
		methods = append(methods, Method{
			ID:        method.ID,
			Name:      method.Name,
			Type:      method.PaymentTypeID,
			Thumbnail: method.Thumbnail,
		})
	}
	return methods, nil
}

type mpInstallmentsResponse struct {
	PaymentMethodID string `json:"payment_method_id"`
	PayerCosts      []struct {
		Installments       int     `json:"installments"`
		InstallmentRate    float64 `json:"installment_rate"`
		InstallmentAmount  float64 `json:"installment_amount"`
		TotalAmount        float64 `json:"total_amount"`
		RecommendedMessage string  `json:"recommended_message"`
	} `json:"payer_costs"`
}

func (m *MercadoPago) Installments(ctx context.Context, amount float64, bin string) ([]InstallmentOption, error) {
	query := url.Values{}
	query.Set("amount", strconv.FormatFloat(amount, 'f', 2, 64))
	query.Set("bin", bin)

	var results []mpInstallmentsResponse
	if err := m.do(ctx, http.MethodGet, "/v1/payment_methods/installments?"+query.Encode(), nil, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []InstallmentOption{}, nil
	}

	costs := results[0].PayerCosts
	options := make([]InstallmentOption, 0, len(costs))
	for _, cost := range costs {
		options = append(options, InstallmentOption{
			Installments:       cost.Installments,
			InstallmentRate:    cost.InstallmentRate,
			InstallmentAmount:  cost.InstallmentAmount,
			TotalAmount:        cost.TotalAmount,
			RecommendedMessage: cost.RecommendedMessage,
		})
	}
	return options, nil
}

type mpIssuer struct {
	ID        json.Number `json:"id"`
	Name      string      `json:"name"`
	Thumbnail string      `json:"thumbnail"`
}

func (m *MercadoPago) Issuers(ctx context.Context, paymentMethodID, bin string) ([]Issuer, error) {
	query := url.Values{}
	query.Set("payment_method_id", paymentMethodID)
	query.Set("bin", bin)

	var mpIssuers []mpIssuer
	if err := m.do(ctx, http.MethodGet, "/v1/payment_methods/card_issuers?"+query.Encode(), nil, &mpIssuers); err != nil {
		return nil, err
	}

	issuers := make([]Issuer, 0, len(mpIssuers))
	for _, issuer := range mpIssuers {
		issuers = append(issuers, Issuer{
			ID:        issuer.ID.String(),
			Name:      issuer.Name,
			Thumbnail: issuer.Thumbnail,
		})
	}
	return issuers, nil
}

func (m *MercadoPago) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var mp mpPayment
	if err := m.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, &mp); err != nil {
		return nil, err
	}
	return mp.toPayment(), nil
}

type mpMerchantOrder struct {
	ID          json.Number `json:"id"`
	OrderStatus string      `json:"order_status"`
	TotalAmount float64     `json:"total_amount"`
	CurrencyID  string      `json:"currency_id"`
	Payments    []struct {
		ID json.Number `json:"id"`
	} `json:"payments"`
	ExternalReference string `json:"external_reference"`
}

func (m *MercadoPago) GetMerchantOrder(ctx context.Context, id string) (*MerchantOrder, error) {
	var mp mpMerchantOrder
	if err := m.do(ctx, http.MethodGet, "/merchant_orders/"+url.PathEscape(id), nil, &mp); err != nil {
		return nil, err
	}

	paymentIDs := make([]string, 0, len(mp.Payments))
	for _, p := range mp.Payments {
		paymentIDs = append(paymentIDs, p.ID.String())
	}

	return &MerchantOrder{
		ID:                mp.ID.String(),
		Status:            mp.OrderStatus,
		TotalAmount:       mp.TotalAmount,
		Currency:          mp.CurrencyID,
		PaymentIDs:        paymentIDs,
		ExternalReference: mp.ExternalReference,
	}, nil
}

func (m *MercadoPago) RefundPayment(ctx context.Context, id string) error {
	// Empty body requests a full refund.
	return m.do(ctx, http.MethodPost, "/v1/payments/"+url.PathEscape(id)+"/refunds", struct{}{}, nil)
}

func (m *MercadoPago) RefundOrder(ctx context.Context, id string) error {
	return m.do(ctx, http.MethodPost, "/v1/orders/"+url.PathEscape(id)+"/refund", struct{}{}, nil)
}

func (m *MercadoPago) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("X-Idempotency-Key", uuid.NewString())
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mercadopago request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read mercadopago response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newProviderError(string(m.Name()), resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode mercadopago response: %w", err)
	}
	return nil
}

func (p *mpPayment) toPayment() *Payment {
	return &Payment{
		ID:                p.ID.String(),
		Status:            p.Status,
		StatusDetail:      p.StatusDetail,
		TransactionAmount: p.TransactionAmount,
		Currency:          p.CurrencyID,
		PaymentMethodID:   p.PaymentMethodID,
		Installments:      p.Installments,
		OrderID:           p.Order.ID.String(),
		ExternalReference: p.ExternalReference,
		PayerEmail:        p.Payer.Email,
		Metadata:          p.Metadata,
	}
}
