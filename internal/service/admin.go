package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/wb-go/wbf/ginext"

	"eventomw/internal/dto"
	"eventomw/internal/model"
	"eventomw/internal/pricing"
	"eventomw/internal/repo"
	"eventomw/pkg/validator"
)

func (s *service) ListOrders(ctx *ginext.Context) {
	status := ctx.Query("status")
	if status != "" && !model.ValidStatus(status) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Unknown status filter")
		return
	}

	orders, err := s.repo.ListOrders(ctx.Request.Context(), status)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list orders")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, orders)
}

func (s *service) GetOrder(ctx *ginext.Context) {
	order, err := s.repo.GetOrderByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		dto.OrderNotFoundError(ctx)
		return
	}

	dto.SuccessResponse(ctx, order)
}

// UpdateOrder edits registrant fields. The total is recomputed against the
// batch the order was originally priced with, not whichever batch happens to
// be active now, so an edit never silently reprices an old registration.
func (s *service) UpdateOrder(ctx *ginext.Context) {
	var req dto.UpdateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	order, err := s.repo.GetOrderByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		dto.OrderNotFoundError(ctx)
		return
	}

	snapshot, err := pricing.ResolveBatch(ctx.Request.Context(), s.repo, order.BatchNumber)
	if err != nil {
		s.log.Error().Err(err).Int("batch", order.BatchNumber).Msg("failed to resolve batch pricing for edit")
		var missing *pricing.MissingKeyError
		if errors.As(err, &missing) {
			dto.PricingIncompleteError(ctx, missing.Key)
			return
		}
		dto.InternalServerError(ctx)
		return
	}

	order.FullName = req.FullName
	order.Age = req.Age
	order.Phone = req.Phone
	order.Email = req.Email
	order.Parish = req.Parish
	order.City = req.City
	order.ShirtSize = req.ShirtSize
	order.IncludesLunch = req.IncludesLunch
	order.TotalAmount = snapshot.Total(req.IncludesLunch)

	if err := s.repo.UpdateOrder(ctx.Request.Context(), order); err != nil {
		s.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to update order")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Str("order_id", order.ID).Msg("order updated by admin")
	dto.SuccessResponse(ctx, order)
}

// UpdateOrderStatus is the manual escape hatch: any status to any other
// status, no transition restrictions.
func (s *service) UpdateOrderStatus(ctx *ginext.Context) {
	var req dto.UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if !model.ValidStatus(req.Status) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Status must be one of pending, paid, canceled")
		return
	}

	id := ctx.Param("id")
	if err := s.repo.UpdateOrderStatusTx(ctx.Request.Context(), id, req.Status); err != nil {
		if errors.Is(err, repo.ErrOrderNotFound) {
			dto.OrderNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Str("order_id", id).Msg("failed to override order status")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Str("order_id", id).Str("status", req.Status).Msg("order status overridden by admin")
	dto.SuccessResponse(ctx, map[string]string{"pedido_id": id, "status_pagamento": req.Status})
}

func (s *service) DeleteOrder(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := s.repo.DeleteOrder(ctx.Request.Context(), id); err != nil {
		dto.OrderNotFoundError(ctx)
		return
	}

	s.log.Info().Str("order_id", id).Msg("order deleted by admin")
	dto.SuccessResponse(ctx, map[string]string{"pedido_id": id})
}

func (s *service) ExportOrdersCSV(ctx *ginext.Context) {
	orders, err := s.repo.ListOrders(ctx.Request.Context(), "")
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list orders for export")
		dto.InternalServerError(ctx)
		return
	}

	// Rendered to a buffer first so a write error becomes a 500 instead of a
	// truncated body behind an already-sent 200.
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"pedido_id", "nome", "idade", "telefone", "email", "paroquia", "cidade", "tamanho", "almoco", "lote", "valor_total", "status_pagamento", "criado_em"})
	for _, o := range orders {
		lunch := "nao"
		if o.IncludesLunch {
			lunch = "sim"
		}
		_ = w.Write([]string{
			o.ID, o.FullName, strconv.Itoa(o.Age), o.Phone, o.Email, o.Parish, o.City,
			o.ShirtSize, lunch, strconv.Itoa(o.BatchNumber),
			strconv.FormatFloat(o.TotalAmount, 'f', 2, 64), o.PaymentStatus,
			o.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		s.log.Error().Err(err).Msg("failed to render orders export")
		dto.InternalServerError(ctx)
		return
	}

	ctx.Header("Content-Disposition", `attachment; filename="pedidos.csv"`)
	ctx.Data(200, "text/csv; charset=utf-8", buf.Bytes())
}

// GetPricing returns every batch plus the active pointer for the dashboard.
// Unconfigured batches come back with zero prices rather than failing the
// whole view.
func (s *service) GetPricing(ctx *ginext.Context) {
	activeRaw, err := s.repo.ConfigValue(ctx.Request.Context(), pricing.KeyActiveBatch)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read active batch pointer")
		dto.PricingIncompleteError(ctx, pricing.KeyActiveBatch)
		return
	}
	active, _ := strconv.Atoi(activeRaw)

	batches := make([]model.BatchPricing, 0, pricing.BatchCount)
	for n := 1; n <= pricing.BatchCount; n++ {
		snapshot, err := pricing.ResolveBatch(ctx.Request.Context(), s.repo, n)
		if err != nil {
			snapshot = model.BatchPricing{Number: n}
		}
		batches = append(batches, snapshot)
	}

	dto.SuccessResponse(ctx, map[string]any{
		"lote_ativo": active,
		"lotes":      batches,
	})
}

func (s *service) SetActiveBatch(ctx *ginext.Context) {
	var req dto.SetActiveBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if req.BatchNumber < 1 || req.BatchNumber > pricing.BatchCount {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("Batch must be between 1 and %d", pricing.BatchCount))
		return
	}

	if err := s.repo.SetConfigValue(ctx.Request.Context(), pricing.KeyActiveBatch, strconv.Itoa(req.BatchNumber)); err != nil {
		s.log.Error().Err(err).Msg("failed to set active batch")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int("batch", req.BatchNumber).Msg("active batch switched")
	dto.SuccessResponse(ctx, map[string]int{"lote_ativo": req.BatchNumber})
}

func (s *service) SetBatchPrices(ctx *ginext.Context) {
	batch, err := strconv.Atoi(ctx.Param("n"))
	if err != nil || batch < 1 || batch > pricing.BatchCount {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid batch number")
		return
	}

	var req dto.SetBatchPricesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	rctx := ctx.Request.Context()
	if err := s.repo.SetConfigValue(rctx, pricing.BasePriceKey(batch), strconv.FormatFloat(req.BasePrice, 'f', 2, 64)); err != nil {
		s.log.Error().Err(err).Msg("failed to set batch base price")
		dto.InternalServerError(ctx)
		return
	}
	if err := s.repo.SetConfigValue(rctx, pricing.LunchPriceKey(batch), strconv.FormatFloat(req.LunchPrice, 'f', 2, 64)); err != nil {
		s.log.Error().Err(err).Msg("failed to set batch lunch price")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int("batch", batch).Float64("base", req.BasePrice).Float64("lunch", req.LunchPrice).Msg("batch prices updated")
	dto.SuccessResponse(ctx, model.BatchPricing{Number: batch, BasePrice: req.BasePrice, LunchPrice: req.LunchPrice})
}
