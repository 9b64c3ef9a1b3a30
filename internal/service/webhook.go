package service

import (
	"errors"

	"github.com/wb-go/wbf/ginext"

	"eventomw/internal/dto"
	"eventomw/internal/mercadopago"
	"eventomw/internal/model"
	"eventomw/internal/repo"
)

// Webhook reconciles a Mercado Pago push notification against the order
// store. The notification body is only trusted for the payment id; status
// comes from the gateway's payment API. The handler acknowledges everything
// it cannot act on (wrong type, missing id, no matching order) so the
// gateway does not retry-storm deliveries that will never succeed.
func (s *service) Webhook(ctx *ginext.Context) {
	var notif dto.WebhookNotification
	if err := ctx.ShouldBindJSON(&notif); err != nil {
		s.log.Warn().Err(err).Msg("failed to parse webhook payload")
		ctx.JSON(200, map[string]any{"received": true})
		return
	}

	if notif.Type != "payment" {
		s.log.Info().Str("type", notif.Type).Msg("ignoring non-payment notification")
		ctx.JSON(200, map[string]any{"received": true})
		return
	}

	paymentID := notif.Data.ID
	if paymentID == "" {
		s.log.Warn().Msg("webhook notification without payment id")
		ctx.JSON(200, map[string]any{"received": true})
		return
	}

	payment, err := s.gw.GetPayment(ctx.Request.Context(), paymentID)
	if err != nil {
		s.log.Error().Err(err).Str("payment_id", paymentID).Msg("failed to fetch payment from gateway")
		dto.GatewayFailureError(ctx)
		return
	}

	newStatus, known := mercadopago.MapStatus(payment.Status)
	if !known {
		s.log.Warn().
			Str("payment_id", paymentID).
			Str("gateway_status", payment.Status).
			Msg("unknown gateway status; treating as pending")
	}

	order, err := s.resolveOrder(ctx, payment, paymentID)
	if err != nil {
		dto.InternalServerError(ctx)
		return
	}
	if order == nil {
		ctx.JSON(200, map[string]any{"received": true, "warning": "order not found"})
		return
	}

	previousStatus := order.PaymentStatus
	if err := s.repo.ApplyPaymentTx(ctx.Request.Context(), order.ID, newStatus, paymentID, payment.Status); err != nil {
		s.log.Error().Err(err).
			Str("order_id", order.ID).
			Str("payment_id", paymentID).
			Msg("failed to apply payment update")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().
		Str("order_id", order.ID).
		Str("payment_id", paymentID).
		Str("gateway_status", payment.Status).
		Str("status", newStatus).
		Msg("order reconciled")

	if previousStatus != newStatus && newStatus != model.StatusPending {
		if err := s.mail.SendOrderEmail(newStatus, order.Email, order.FullName, order.TotalAmount, 0); err != nil {
			s.log.Warn().Err(err).Msg("failed to send status notification e-mail")
		}
	}

	ctx.JSON(200, map[string]any{"received": true})
}

// resolveOrder locates the order a payment belongs to: strictly by external
// reference, then by the payer-email heuristic, which only exists for
// payments whose reference linkage was broken upstream. Returns (nil, nil)
// when nothing matches, so the caller can acknowledge; a database failure is
// returned as an error so the gateway retries the delivery instead of
// treating it as a reconciliation miss.
func (s *service) resolveOrder(ctx *ginext.Context, payment *mercadopago.Payment, paymentID string) (*model.Order, error) {
	if payment.ExternalReference != "" {
		order, err := s.repo.GetOrderByID(ctx.Request.Context(), payment.ExternalReference)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repo.ErrOrderNotFound) {
			s.log.Error().Err(err).Str("payment_id", paymentID).Msg("failed to look up order by external reference")
			return nil, err
		}
	}

	payerEmail := payment.Payer.Email
	if payerEmail == "" {
		s.log.Warn().
			Str("payment_id", paymentID).
			Str("external_reference", payment.ExternalReference).
			Msg("no order matched and payment has no payer e-mail")
		return nil, nil
	}

	order, err := s.repo.FindLatestPendingByEmail(ctx.Request.Context(), payerEmail)
	if err != nil {
		if !errors.Is(err, repo.ErrOrderNotFound) {
			s.log.Error().Err(err).Str("payment_id", paymentID).Msg("failed to look up pending order by payer e-mail")
			return nil, err
		}
		s.log.Warn().
			Str("payment_id", paymentID).
			Str("external_reference", payment.ExternalReference).
			Msg("no order matched by external reference or payer e-mail")
		return nil, nil
	}

	s.log.Warn().
		Str("payment_id", paymentID).
		Str("order_id", order.ID).
		Msg("external reference did not resolve; matched by payer e-mail fallback")
	return order, nil
}

func (s *service) WebhookHealth(ctx *ginext.Context) {
	ctx.JSON(200, map[string]any{"status": "ok"})
}
