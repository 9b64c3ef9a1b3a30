package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	OrderNotFound     = "ORDER_NOT_FOUND"
	PricingIncomplete = "PRICING_INCOMPLETE"
	GatewayError      = "GATEWAY_ERROR"
)

type CreateOrderRequest struct {
	FullName      string `json:"nome" validate:"required,min=3,max=255"`
	Age           int    `json:"idade" validate:"required,positive"`
	Phone         string `json:"telefone" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Parish        string `json:"paroquia" validate:"required"`
	City          string `json:"cidade" validate:"required"`
	ShirtSize     string `json:"tamanho" validate:"required,shirtsize"`
	IncludesLunch bool   `json:"inclui_almoco"`
}

type CreateOrderResponse struct {
	OrderID     string  `json:"pedido_id"`
	TotalAmount float64 `json:"valor_total"`
	BatchNumber int     `json:"lote"`
	InitPoint   string  `json:"init_point"`
}

type UpdateOrderRequest struct {
	FullName      string `json:"nome" validate:"required,min=3,max=255"`
	Age           int    `json:"idade" validate:"required,positive"`
	Phone         string `json:"telefone" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Parish        string `json:"paroquia" validate:"required"`
	City          string `json:"cidade" validate:"required"`
	ShirtSize     string `json:"tamanho" validate:"required,shirtsize"`
	IncludesLunch bool   `json:"inclui_almoco"`
}

type UpdateStatusRequest struct {
	Status string `json:"status_pagamento" validate:"required"`
}

type SetActiveBatchRequest struct {
	BatchNumber int `json:"lote"`
}

type SetBatchPricesRequest struct {
	BasePrice  float64 `json:"preco_base" validate:"required,gt=0"`
	LunchPrice float64 `json:"preco_almoco" validate:"required,gt=0"`
}

// WebhookNotification is the push payload Mercado Pago delivers. Only the
// type and the payment id are read; the status inside is never trusted.
type WebhookNotification struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// OrderExpireMessage travels through the delayed exchange and triggers
// cancellation of orders still unpaid when the preference window closes.
type OrderExpireMessage struct {
	OrderID  string    `json:"order_id"`
	ExpireAt time.Time `json:"expire_at"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func PricingIncompleteError(c *ginext.Context, missingKey string) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: PricingIncomplete,
			Desc: "Pricing configuration '" + missingKey + "' is missing. Contact the administrator.",
		},
	})
}

func GatewayFailureError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: GatewayError,
			Desc: "Payment provider request failed. Please try again later.",
		},
	})
}

func OrderNotFoundError(c *ginext.Context) {
	c.JSON(404, Response{
		Status: "error",
		Error: &Error{
			Code: OrderNotFound,
			Desc: "Order not found",
		},
	})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}
