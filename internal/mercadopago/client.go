// Package mercadopago talks to the Mercado Pago REST API: preference
// creation at checkout time and authoritative payment lookup during webhook
// reconciliation.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.mercadopago.com"

	// Window the payer has to complete checkout before the preference expires.
	PreferenceTTL = 30 * time.Minute
)

// API is what the service layer depends on.
type API interface {
	CreatePreference(ctx context.Context, p PreferenceParams) (*Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
}

type Client struct {
	baseURL     string
	accessToken string
	appBaseURL  string
	http        *http.Client
	log         *zerolog.Logger
}

func NewClient(accessToken, appBaseURL string, log *zerolog.Logger) *Client {
	return &Client{
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		appBaseURL:  appBaseURL,
		http:        &http.Client{Timeout: 15 * time.Second},
		log:         log,
	}
}

type PreferenceParams struct {
	OrderID       string
	PayerName     string
	PayerEmail    string
	TotalAmount   float64
	BatchNumber   int
	IncludesLunch bool
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CheckoutURL returns the hosted checkout page, constructing the provider
// redirect from the preference id when the API response omits init_point.
func (p *Preference) CheckoutURL() string {
	if p.InitPoint != "" {
		return p.InitPoint
	}
	return "https://www.mercadopago.com.br/checkout/v1/redirect?pref_id=" + p.ID
}

type Payment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

type item struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	CurrencyID  string  `json:"currency_id"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type methodID struct {
	ID string `json:"id"`
}

type paymentMethods struct {
	ExcludedPaymentMethods []methodID `json:"excluded_payment_methods"`
	ExcludedPaymentTypes   []methodID `json:"excluded_payment_types"`
	Installments           int        `json:"installments"`
}

type preferenceBody struct {
	Items               []item         `json:"items"`
	Payer               payerInfo      `json:"payer"`
	PaymentMethods      paymentMethods `json:"payment_methods"`
	BackURLs            backURLs       `json:"back_urls"`
	ExternalReference   string         `json:"external_reference"`
	NotificationURL     string         `json:"notification_url"`
	StatementDescriptor string         `json:"statement_descriptor"`
	Expires             bool           `json:"expires"`
	ExpirationDateFrom  string         `json:"expiration_date_from"`
	ExpirationDateTo    string         `json:"expiration_date_to"`
}

type payerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ItemDescription encodes batch and lunch inclusion the way the checkout
// receipt shows them.
func ItemDescription(batch int, includesLunch bool) string {
	if includesLunch {
		return fmt.Sprintf("Inscrição Lote %d + Almoço", batch)
	}
	return fmt.Sprintf("Inscrição Lote %d", batch)
}

func (c *Client) buildPreferenceBody(p PreferenceParams, now time.Time) preferenceBody {
	return preferenceBody{
		Items: []item{{
			ID:          p.OrderID,
			Title:       fmt.Sprintf("Inscrição - Evento MW %d", now.Year()),
			Description: ItemDescription(p.BatchNumber, p.IncludesLunch),
			Quantity:    1,
			UnitPrice:   p.TotalAmount,
			CurrencyID:  "BRL",
		}},
		Payer: payerInfo{Name: p.PayerName, Email: p.PayerEmail},
		// PIX and boleto only: cards, other tickets and ATM payments are
		// excluded, single installment.
		PaymentMethods: paymentMethods{
			ExcludedPaymentMethods: []methodID{
				{ID: "master"}, {ID: "visa"}, {ID: "amex"}, {ID: "elo"}, {ID: "hipercard"},
			},
			ExcludedPaymentTypes: []methodID{
				{ID: "credit_card"}, {ID: "debit_card"}, {ID: "prepaid_card"}, {ID: "ticket"}, {ID: "atm"},
			},
			Installments: 1,
		},
		BackURLs: backURLs{
			Success: c.appBaseURL + "/pagamento/sucesso?pedido_id=" + p.OrderID,
			Failure: c.appBaseURL + "/pagamento/falha?pedido_id=" + p.OrderID,
			Pending: c.appBaseURL + "/pagamento/pendente?pedido_id=" + p.OrderID,
		},
		ExternalReference:   p.OrderID,
		NotificationURL:     c.appBaseURL + "/v1/webhooks/mercadopago",
		StatementDescriptor: "EVENTO MW",
		Expires:             true,
		ExpirationDateFrom:  now.Format(time.RFC3339),
		ExpirationDateTo:    now.Add(PreferenceTTL).Format(time.RFC3339),
	}
}

func (c *Client) CreatePreference(ctx context.Context, p PreferenceParams) (*Preference, error) {
	body := c.buildPreferenceBody(p, time.Now())
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build preference request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("preference request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error().
			Int("status_code", resp.StatusCode).
			Str("order_id", p.OrderID).
			Str("response", string(raw)).
			Msg("Mercado Pago rejected preference creation")
		return nil, fmt.Errorf("preference creation returned status %d", resp.StatusCode)
	}

	var pref Preference
	if err := json.Unmarshal(raw, &pref); err != nil {
		return nil, fmt.Errorf("failed to decode preference response: %w", err)
	}

	c.log.Info().
		Str("preference_id", pref.ID).
		Str("order_id", p.OrderID).
		Float64("amount", p.TotalAmount).
		Msg("payment preference created")

	return &pref, nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error().
			Int("status_code", resp.StatusCode).
			Str("payment_id", paymentID).
			Str("response", string(raw)).
			Msg("Mercado Pago payment lookup failed")
		return nil, fmt.Errorf("payment lookup returned status %d", resp.StatusCode)
	}

	var payment Payment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}

	return &payment, nil
}
