package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fblasco1/portfolio-fotografo/internal/region"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegionResolver() *region.Resolver {
	return region.NewResolver("http://127.0.0.1:0", "AR", discardLogger())
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body["error"]
}

func TestCreatePaymentValidationNamesMissingField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing installments",
			body: `{"token":"tok_1","transaction_amount":100,"payment_method_id":"visa","payer":{"email":"a@b.com"}}`,
			want: "installments",
		},
		{
			name: "missing token",
			body: `{"transaction_amount":100,"installments":1,"payment_method_id":"visa","payer":{"email":"a@b.com"}}`,
			want: "token",
		},
		{
			name: "missing payer",
			body: `{"token":"tok_1","transaction_amount":100,"installments":1,"payment_method_id":"visa"}`,
			want: "payer",
		},
		{
			name: "zero amount",
			body: `{"token":"tok_1","transaction_amount":0,"installments":1,"payment_method_id":"visa","payer":{"email":"a@b.com"}}`,
			want: "transaction_amount",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := &Handlers{logger: discardLogger(), regionResolver: testRegionResolver()}

			req := httptest.NewRequest(http.MethodPost, "/api/payment/create-payment", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.CreatePayment(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if message := decodeErrorBody(t, rec); !strings.Contains(message, tc.want) {
				t.Errorf("error %q does not name field %q", message, tc.want)
			}
		})
	}
}

func TestCreateIntentRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	h := &Handlers{logger: discardLogger(), regionResolver: testRegionResolver()}

	req := httptest.NewRequest(http.MethodPost, "/api/payment/create-intent", strings.NewReader(`{"items":[]}`))
	rec := httptest.NewRecorder()
	h.CreateIntent(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if message := decodeErrorBody(t, rec); !strings.Contains(message, "items") {
		t.Errorf("error %q does not name the items field", message)
	}
}

func TestCreateIntentRejectsInvalidCartLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "zero quantity",
			body:      `{"items":[{"product_id":"andes-01","size":"medium","quantity":0}]}`,
			wantField: "quantity",
		},
		{
			name:      "negative quantity",
			body:      `{"items":[{"product_id":"andes-01","size":"medium","quantity":-2}]}`,
			wantField: "quantity",
		},
		{
			name:      "missing product id",
			body:      `{"items":[{"size":"medium","quantity":1}]}`,
			wantField: "product_id",
		},
		{
			name:      "missing size",
			body:      `{"items":[{"product_id":"andes-01","quantity":1}]}`,
			wantField: "size",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := &Handlers{logger: discardLogger(), regionResolver: testRegionResolver()}

			req := httptest.NewRequest(http.MethodPost, "/api/payment/create-intent", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.CreateIntent(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if message := decodeErrorBody(t, rec); !strings.Contains(message, tt.wantField) {
				t.Errorf("error %q does not name the %s field", message, tt.wantField)
			}
		})
	}
}

func TestInstallmentsRequiresQueryParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "missing amount", query: "bin=450995", want: "amount"},
		{name: "missing bin", query: "amount=100", want: "bin"},
		{name: "bad amount", query: "amount=abc&bin=450995", want: "amount"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := &Handlers{logger: discardLogger(), regionResolver: testRegionResolver()}

			req := httptest.NewRequest(http.MethodGet, "/api/payment/installments?"+tc.query, nil)
			rec := httptest.NewRecorder()
			h.Installments(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if message := decodeErrorBody(t, rec); !strings.Contains(message, tc.want) {
				t.Errorf("error %q does not name field %q", message, tc.want)
			}
		})
	}
}

func TestRegionOverride(t *testing.T) {
	t.Parallel()

	h := &Handlers{logger: discardLogger(), regionResolver: testRegionResolver()}

	req := httptest.NewRequest(http.MethodPost, "/api/payment/region", strings.NewReader(`{"country_code":"BR"}`))
	rec := httptest.NewRecorder()
	h.RegionOverride(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body struct {
		Country  string `json:"country"`
		Currency string `json:"currency"`
		Provider string `json:"payment_provider"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Country != "BR" || body.Currency != "BRL" || body.Provider != "mercadopago" {
		t.Errorf("region = %+v, want BR/BRL/mercadopago", body)
	}
}

func TestRegionOverrideRequiresCountryCode(t *testing.T) {
	t.Parallel()

	h := &Handlers{logger: discardLogger(), regionResolver: testRegionResolver()}

	req := httptest.NewRequest(http.MethodPost, "/api/payment/region", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.RegionOverride(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if message := decodeErrorBody(t, rec); !strings.Contains(message, "country_code") {
		t.Errorf("error %q does not name country_code", message)
	}
}
