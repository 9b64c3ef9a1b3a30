package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"eventomw/internal/dto"
	"eventomw/internal/mailer"
	"eventomw/internal/mercadopago"
	"eventomw/internal/model"
	"eventomw/internal/pricing"
	"eventomw/internal/repo"
	"eventomw/pkg/validator"
)

type Service interface {
	CreateOrder(ctx *ginext.Context)
	ActivePricing(ctx *ginext.Context)
	Webhook(ctx *ginext.Context)
	WebhookHealth(ctx *ginext.Context)
	ListOrders(ctx *ginext.Context)
	GetOrder(ctx *ginext.Context)
	UpdateOrder(ctx *ginext.Context)
	UpdateOrderStatus(ctx *ginext.Context)
	DeleteOrder(ctx *ginext.Context)
	ExportOrdersCSV(ctx *ginext.Context)
	GetPricing(ctx *ginext.Context)
	SetActiveBatch(ctx *ginext.Context)
	SetBatchPrices(ctx *ginext.Context)
}

// Publisher is the slice of the rabbit client the service needs.
type Publisher interface {
	Publish(message []byte, delaySeconds int) error
}

type service struct {
	repo  repo.Repository
	log   *zerolog.Logger
	gw    mercadopago.API
	queue Publisher
	mail  mailer.Sender
}

func NewService(repo repo.Repository, logger *zerolog.Logger, gw mercadopago.API, queue Publisher, mail mailer.Sender) Service {
	return &service{
		repo:  repo,
		log:   logger,
		gw:    gw,
		queue: queue,
		mail:  mail,
	}
}

// CreateOrder is the registration submission flow. The total is computed
// server-side from the active batch snapshot; the request carries no price
// field at all. The gateway preference is created before the row is
// persisted, so a gateway failure leaves no orphan pending order. A
// persistence failure after that is surfaced as an error and the preference
// is simply left to expire.
func (s *service) CreateOrder(ctx *ginext.Context) {
	var req dto.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create order request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	snapshot, err := pricing.ResolveActive(ctx.Request.Context(), s.repo)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to resolve active batch pricing")
		var missing *pricing.MissingKeyError
		if errors.As(err, &missing) {
			dto.PricingIncompleteError(ctx, missing.Key)
			return
		}
		dto.InternalServerError(ctx)
		return
	}

	total := snapshot.Total(req.IncludesLunch)
	orderID := uuid.NewString()

	pref, err := s.gw.CreatePreference(ctx.Request.Context(), mercadopago.PreferenceParams{
		OrderID:       orderID,
		PayerName:     req.FullName,
		PayerEmail:    req.Email,
		TotalAmount:   total,
		BatchNumber:   snapshot.Number,
		IncludesLunch: req.IncludesLunch,
	})
	if err != nil {
		s.log.Error().Err(err).Str("order_id", orderID).Msg("failed to create payment preference")
		dto.GatewayFailureError(ctx)
		return
	}

	order := &model.Order{
		ID:             orderID,
		FullName:       req.FullName,
		Age:            req.Age,
		Phone:          req.Phone,
		Email:          req.Email,
		Parish:         req.Parish,
		City:           req.City,
		ShirtSize:      req.ShirtSize,
		IncludesLunch:  req.IncludesLunch,
		TotalAmount:    total,
		BatchNumber:    snapshot.Number,
		PaymentStatus:  model.StatusPending,
		MPPreferenceID: pref.ID,
	}

	if err := s.repo.CreateOrder(ctx.Request.Context(), order); err != nil {
		s.log.Error().Err(err).
			Str("order_id", orderID).
			Str("preference_id", pref.ID).
			Msg("failed to persist order; preference will expire on its own")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().
		Str("order_id", orderID).
		Int("batch", snapshot.Number).
		Float64("total", total).
		Bool("lunch", req.IncludesLunch).
		Msg("order created successfully")

	timeoutMinutes := int(mercadopago.PreferenceTTL.Minutes())
	msg := dto.OrderExpireMessage{
		OrderID:  orderID,
		ExpireAt: time.Now().Add(mercadopago.PreferenceTTL),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal expiry message")
	} else if err := s.queue.Publish(payload, timeoutMinutes*60); err != nil {
		s.log.Error().Err(err).Msg("failed to publish expiry message to RabbitMQ")
	}

	if err := s.mail.SendOrderEmail(model.StatusPending, order.Email, order.FullName, total, timeoutMinutes); err != nil {
		s.log.Warn().Err(err).Msg("failed to send pending notification e-mail")
	}

	dto.SuccessCreatedResponse(ctx, dto.CreateOrderResponse{
		OrderID:     orderID,
		TotalAmount: total,
		BatchNumber: snapshot.Number,
		InitPoint:   pref.CheckoutURL(),
	})
}

// ActivePricing feeds the registration form's live price preview.
func (s *service) ActivePricing(ctx *ginext.Context) {
	snapshot, err := pricing.ResolveActive(ctx.Request.Context(), s.repo)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to resolve active batch pricing")
		var missing *pricing.MissingKeyError
		if errors.As(err, &missing) {
			dto.PricingIncompleteError(ctx, missing.Key)
			return
		}
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, snapshot)
}
