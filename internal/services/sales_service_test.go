package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tailor-pos/internal/models"
	"tailor-pos/internal/notify"
	"tailor-pos/internal/pagination"
	"tailor-pos/internal/store"
)

func newSales(st store.Store) *SalesService {
	s := NewSalesService(st, &notify.Recorder{})
	s.Now = clock
	s.Retry.Backoff = time.Millisecond
	return s
}

func serviceOrder(t *testing.T, co *CheckoutService, paid int64) *models.Sale {
	t.Helper()
	amount := dec(paid)
	res, err := co.Checkout(context.Background(), &models.CheckoutRequest{
		Lines:      []models.CartLine{{ItemID: "hem", Kind: models.LineKindService, Qty: 1}},
		BranchID:   "b1",
		Operator:   "c",
		AmountPaid: &amount,
	})
	if err != nil {
		t.Fatal(err)
	}
	return res.Sale
}

func TestSaleStatusWorkflow(t *testing.T) {
	st := newShop(t)
	co := newCheckout(st, &notify.Recorder{})
	svc := newSales(st)
	ctx := context.Background()

	order := serviceOrder(t, co, 50)
	for _, next := range []string{models.SaleStatusInProgress, models.SaleStatusReady, models.SaleStatusDelivered} {
		got, err := svc.UpdateStatus(ctx, order.ID, next)
		if err != nil {
			t.Fatalf("-> %s: %v", next, err)
		}
		if got.Status != next {
			t.Fatalf("status = %s, want %s", got.Status, next)
		}
	}
	stored, _ := svc.Get(ctx, order.ID)
	if stored.Status != models.SaleStatusDelivered || !stored.RemainingAmount.Equal(dec(100)) {
		t.Fatalf("stored = %s remaining %s", stored.Status, stored.RemainingAmount)
	}
	if _, err := svc.UpdateStatus(ctx, order.ID, models.SaleStatusCancelled); !errors.Is(err, ErrValidation) {
		t.Fatalf("cancel delivered err = %v", err)
	}
}

func TestSaleStatusRejectsSkipsAndRetail(t *testing.T) {
	st := newShop(t)
	co := newCheckout(st, &notify.Recorder{})
	svc := newSales(st)
	ctx := context.Background()

	order := serviceOrder(t, co, 0)
	if _, err := svc.UpdateStatus(ctx, order.ID, models.SaleStatusDelivered); !errors.Is(err, ErrValidation) {
		t.Fatalf("skip err = %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, order.ID, models.SaleStatusCancelled); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, order.ID, models.SaleStatusPending); !errors.Is(err, ErrValidation) {
		t.Fatalf("revive cancelled err = %v", err)
	}

	res, err := co.Checkout(ctx, retailCart("c", 1, nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(ctx, res.Sale.ID, models.SaleStatusCancelled); !errors.Is(err, ErrValidation) {
		t.Fatalf("retail change err = %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "missing", models.SaleStatusReady); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing sale err = %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, order.ID, "lost"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad status err = %v", err)
	}
}

func TestSalesListNewestFirst(t *testing.T) {
	st := newShop(t)
	co := newCheckout(st, &notify.Recorder{})
	svc := newSales(st)
	svc.PageSize = 2
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		co.Now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Minute) }
		if _, err := co.Checkout(ctx, retailCart("c", 1, nil)); err != nil {
			t.Fatal(err)
		}
	}

	var all []models.Sale
	sess := pagination.NewSession(func(ctx context.Context, cursor string) (pagination.Page[models.Sale], error) {
		return svc.List(ctx, SaleFilter{BranchID: "b1"}, cursor)
	})
	page, err := sess.First(ctx)
	for err == nil {
		all = append(all, page.Items...)
		page, err = sess.Next(ctx)
	}
	if !errors.Is(err, pagination.ErrNoNextPage) {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("listed %d sales", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("sale %d is newer than sale %d", i, i-1)
		}
	}

	if _, err := svc.List(ctx, SaleFilter{Status: "lost"}, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad filter err = %v", err)
	}
}
