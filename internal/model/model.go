package model

import "time"

// Payment statuses an order can hold. The set is closed: gateway statuses
// outside the mapping table end up as StatusPending with a warn log.
const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusCanceled = "canceled"
)

func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusPaid || s == StatusCanceled
}

type Order struct {
	ID            string  `db:"id" json:"pedido_id"`
	FullName      string  `db:"full_name" json:"nome"`
	Age           int     `db:"age" json:"idade"`
	Phone         string  `db:"phone" json:"telefone"`
	Email         string  `db:"email" json:"email"`
	Parish        string  `db:"parish" json:"paroquia"`
	City          string  `db:"city" json:"cidade"`
	ShirtSize     string  `db:"shirt_size" json:"tamanho"`
	IncludesLunch bool    `db:"includes_lunch" json:"inclui_almoco"`
	TotalAmount   float64 `db:"total_amount" json:"valor_total"`
	BatchNumber   int     `db:"batch_number" json:"lote"`
	PaymentStatus string  `db:"payment_status" json:"status_pagamento"`

	MPPreferenceID string `db:"mp_preference_id" json:"mp_preference_id,omitempty"`
	MPPaymentID    string `db:"mp_payment_id" json:"mp_payment_id,omitempty"`
	MPStatus       string `db:"mp_status" json:"mp_status,omitempty"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	PaidAt    *time.Time `db:"paid_at" json:"paid_at,omitempty"`
}

// BatchPricing is the typed snapshot of one pricing batch, resolved from the
// key/value config rows at the store boundary and threaded through order
// creation so a computed total cannot straddle a batch switch.
type BatchPricing struct {
	Number     int     `json:"lote"`
	BasePrice  float64 `json:"preco_base"`
	LunchPrice float64 `json:"preco_almoco"`
}

func (b BatchPricing) Total(includesLunch bool) float64 {
	if includesLunch {
		return b.BasePrice + b.LunchPrice
	}
	return b.BasePrice
}
