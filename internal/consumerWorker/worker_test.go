package consumerWorker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wb-go/wbf/zlog"

	"eventomw/internal/model"
	"eventomw/internal/repo"
)

func init() {
	zlog.Init()
}

type fakeRepo struct {
	orders    map[string]*model.Order
	cancelErr error
}

func (f *fakeRepo) CancelIfPendingTx(_ context.Context, id string) (bool, error) {
	if f.cancelErr != nil {
		return false, f.cancelErr
	}
	o, ok := f.orders[id]
	if !ok {
		return false, repo.ErrOrderNotFound
	}
	if o.PaymentStatus != model.StatusPending {
		return false, nil
	}
	o.PaymentStatus = model.StatusCanceled
	return true, nil
}

func (f *fakeRepo) GetOrderByID(_ context.Context, id string) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, repo.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) CreateOrder(context.Context, *model.Order) error { return nil }
func (f *fakeRepo) ListOrders(context.Context, string) ([]model.Order, error) {
	return nil, nil
}
func (f *fakeRepo) UpdateOrder(context.Context, *model.Order) error           { return nil }
func (f *fakeRepo) UpdateOrderStatusTx(context.Context, string, string) error { return nil }
func (f *fakeRepo) ApplyPaymentTx(context.Context, string, string, string, string) error {
	return nil
}
func (f *fakeRepo) DeleteOrder(context.Context, string) error { return nil }
func (f *fakeRepo) FindLatestPendingByEmail(context.Context, string) (*model.Order, error) {
	return nil, repo.ErrOrderNotFound
}
func (f *fakeRepo) ConfigValue(context.Context, string) (string, error) {
	return "", repo.ErrConfigNotFound
}
func (f *fakeRepo) SetConfigValue(context.Context, string, string) error { return nil }
func (f *fakeRepo) MigrateUp(string) error                               { return nil }
func (f *fakeRepo) MigrateDown(string) error                             { return nil }

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) SendOrderEmail(status, _, _ string, _ float64, _ int) error {
	f.sent = append(f.sent, status)
	return nil
}

func expireBody(orderID string) []byte {
	return []byte(`{"order_id":"` + orderID + `","expire_at":"` + time.Now().Format(time.RFC3339) + `"}`)
}

func TestHandleMessageCancelsPendingOrder(t *testing.T) {
	fr := &fakeRepo{orders: map[string]*model.Order{
		"order-1": {ID: "order-1", FullName: "Maria da Silva", Email: "maria@example.com", TotalAmount: 105, PaymentStatus: model.StatusPending},
	}}
	fm := &fakeMailer{}
	r := NewReader(nil, fr, fm)

	if err := r.handleMessage(context.Background(), expireBody("order-1")); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	if got := fr.orders["order-1"].PaymentStatus; got != model.StatusCanceled {
		t.Errorf("status = %q, want canceled", got)
	}
	if len(fm.sent) != 1 || fm.sent[0] != model.StatusCanceled {
		t.Errorf("mail sent = %v, want one cancellation notice", fm.sent)
	}
}

func TestHandleMessageSkipsPaidOrder(t *testing.T) {
	fr := &fakeRepo{orders: map[string]*model.Order{
		"order-1": {ID: "order-1", Email: "maria@example.com", PaymentStatus: model.StatusPaid},
	}}
	fm := &fakeMailer{}
	r := NewReader(nil, fr, fm)

	if err := r.handleMessage(context.Background(), expireBody("order-1")); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	if got := fr.orders["order-1"].PaymentStatus; got != model.StatusPaid {
		t.Errorf("status = %q, paid orders must not be touched", got)
	}
	if len(fm.sent) != 0 {
		t.Errorf("no mail expected for a settled order, got %v", fm.sent)
	}
}

func TestHandleMessageMalformedBody(t *testing.T) {
	r := NewReader(nil, &fakeRepo{orders: map[string]*model.Order{}}, &fakeMailer{})

	if err := r.handleMessage(context.Background(), []byte("not json")); err == nil {
		t.Error("malformed message should be rejected for redelivery")
	}
}

func TestHandleMessageCancelFailureReturnsError(t *testing.T) {
	fr := &fakeRepo{
		orders:    map[string]*model.Order{},
		cancelErr: errors.New("db unavailable"),
	}
	r := NewReader(nil, fr, &fakeMailer{})

	if err := r.handleMessage(context.Background(), expireBody("order-1")); err == nil {
		t.Error("a cancellation failure must propagate so the message is redelivered")
	}
}
