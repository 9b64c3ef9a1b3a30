package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"eventomw/internal/dto"
	"eventomw/internal/mailer"
	"eventomw/internal/model"
	"eventomw/internal/rabbit"
	"eventomw/internal/repo"
)

// Reader consumes delayed expiry messages and cancels orders whose payment
// preference window closed without a webhook confirming payment. Orders
// already paid or canceled are skipped.
type Reader struct {
	RMQ    *rabbit.Client
	repo   repo.Repository
	mail   mailer.Sender
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, repo repo.Repository, mail mailer.Sender) *Reader {
	return &Reader{
		RMQ:  rmq,
		repo: repo,
		mail: mail,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("order expiry reader started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			return r.handleMessage(cctx, body)
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("order expiry reader stopped by context")
	}()
}

func (r *Reader) handleMessage(ctx context.Context, body []byte) error {
	var msg dto.OrderExpireMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		zlog.Logger.Error().
			Err(err).
			Msgf("failed to unmarshal expiry message: %s", string(body))
		return err
	}

	zlog.Logger.Info().
		Str("order_id", msg.OrderID).
		Time("expire_at", msg.ExpireAt).
		Msg("expiry message received")

	canceled, err := r.repo.CancelIfPendingTx(ctx, msg.OrderID)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("order_id", msg.OrderID).
			Msg("failed to cancel expired order")
		return err
	}

	if !canceled {
		zlog.Logger.Info().
			Str("order_id", msg.OrderID).
			Msg("order already paid or canceled, skipping")
		return nil
	}

	order, err := r.repo.GetOrderByID(ctx, msg.OrderID)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("order_id", msg.OrderID).
			Msg("failed to load canceled order for notification")
		return nil
	}

	if err := r.mail.SendOrderEmail(model.StatusCanceled, order.Email, order.FullName, order.TotalAmount, 0); err != nil {
		zlog.Logger.Warn().
			Err(err).
			Msg("failed to send cancellation e-mail")
	} else {
		zlog.Logger.Info().
			Str("email", order.Email).
			Str("order_id", msg.OrderID).
			Msg("cancellation e-mail sent")
	}

	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
