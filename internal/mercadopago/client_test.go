package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testClient(baseURL string) *Client {
	log := zerolog.Nop()
	c := NewClient("test-token", "https://evento.example.com", &log)
	c.baseURL = baseURL
	return c
}

func TestItemDescription(t *testing.T) {
	if got := ItemDescription(2, false); got != "Inscrição Lote 2" {
		t.Errorf("description = %q", got)
	}
	if got := ItemDescription(1, true); got != "Inscrição Lote 1 + Almoço" {
		t.Errorf("description with lunch = %q", got)
	}
}

func TestCheckoutURLFallback(t *testing.T) {
	withInit := &Preference{ID: "pref-1", InitPoint: "https://mp.example/checkout"}
	if got := withInit.CheckoutURL(); got != "https://mp.example/checkout" {
		t.Errorf("CheckoutURL = %q", got)
	}

	withoutInit := &Preference{ID: "pref-2"}
	want := "https://www.mercadopago.com.br/checkout/v1/redirect?pref_id=pref-2"
	if got := withoutInit.CheckoutURL(); got != want {
		t.Errorf("CheckoutURL fallback = %q, want %q", got, want)
	}
}

func TestBuildPreferenceBody(t *testing.T) {
	c := testClient("http://unused")
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	body := c.buildPreferenceBody(PreferenceParams{
		OrderID:       "order-123",
		PayerName:     "Maria Silva",
		PayerEmail:    "maria@example.com",
		TotalAmount:   105,
		BatchNumber:   1,
		IncludesLunch: true,
	}, now)

	if body.ExternalReference != "order-123" {
		t.Errorf("external_reference = %q", body.ExternalReference)
	}
	if len(body.Items) != 1 || body.Items[0].UnitPrice != 105 || body.Items[0].Quantity != 1 {
		t.Errorf("unexpected items: %+v", body.Items)
	}
	if body.Items[0].CurrencyID != "BRL" {
		t.Errorf("currency = %q", body.Items[0].CurrencyID)
	}
	if !strings.Contains(body.BackURLs.Success, "pedido_id=order-123") {
		t.Errorf("success back_url missing order id: %q", body.BackURLs.Success)
	}
	if body.NotificationURL != "https://evento.example.com/v1/webhooks/mercadopago" {
		t.Errorf("notification_url = %q", body.NotificationURL)
	}
	if !body.Expires {
		t.Error("preference should expire")
	}
	if body.ExpirationDateTo != now.Add(30*time.Minute).Format(time.RFC3339) {
		t.Errorf("expiration window = %q", body.ExpirationDateTo)
	}
}

func TestCreatePreference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/preferences" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("auth header = %q", got)
		}
		var body preferenceBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.ExternalReference != "order-9" {
			t.Errorf("external_reference = %q", body.ExternalReference)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-9","init_point":"https://mp/checkout/9"}`))
	}))
	defer srv.Close()

	pref, err := testClient(srv.URL).CreatePreference(context.Background(), PreferenceParams{
		OrderID:     "order-9",
		PayerName:   "João",
		PayerEmail:  "joao@example.com",
		TotalAmount: 80,
		BatchNumber: 2,
	})
	if err != nil {
		t.Fatalf("CreatePreference: %v", err)
	}
	if pref.ID != "pref-9" || pref.InitPoint != "https://mp/checkout/9" {
		t.Errorf("unexpected preference: %+v", pref)
	}
}

func TestCreatePreferenceGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid token"}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).CreatePreference(context.Background(), PreferenceParams{OrderID: "x"}); err == nil {
		t.Fatal("expected error on 400 response")
	}
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/555" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":555,"status":"approved","external_reference":"order-1","payer":{"email":"maria@example.com"}}`))
	}))
	defer srv.Close()

	payment, err := testClient(srv.URL).GetPayment(context.Background(), "555")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if payment.Status != "approved" || payment.ExternalReference != "order-1" {
		t.Errorf("unexpected payment: %+v", payment)
	}
	if payment.Payer.Email != "maria@example.com" {
		t.Errorf("payer email = %q", payment.Payer.Email)
	}
	if payment.ID.String() != "555" {
		t.Errorf("payment id = %q", payment.ID.String())
	}
}
