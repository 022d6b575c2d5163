package services

import (
	"context"
	"testing"
	"time"

	"tailor-pos/internal/models"
	"tailor-pos/internal/notify"
	"tailor-pos/internal/store"
	"tailor-pos/internal/store/memory"

	"github.com/shopspring/decimal"
)

// fixedNow is a Thursday afternoon in Cairo
var fixedNow = time.Date(2026, 10, 15, 14, 30, 0, 0, time.FixedZone("EET", 3*60*60))

func clock() time.Time { return fixedNow }

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func mustTx(t *testing.T, st store.Store, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	if err := st.RunInTx(context.Background(), fn); err != nil {
		t.Fatalf("fixture tx: %v", err)
	}
}

func seedBranch(t *testing.T, st store.Store, id, name string) {
	t.Helper()
	mustTx(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateBranch(ctx, &models.Branch{ID: id, Name: name, Type: models.BranchTypeStore, CreatedAt: fixedNow})
	})
}

func seedStock(t *testing.T, st store.Store, item models.InventoryItem) {
	t.Helper()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = fixedNow
	}
	if item.Type == "" {
		item.Type = models.ItemTypeFinished
	}
	mustTx(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateItem(ctx, &item)
	})
}

func seedService(t *testing.T, st store.Store, id, name string, price int64) {
	t.Helper()
	mustTx(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateService(ctx, &models.Service{ID: id, Type: models.ServiceTypeTailoring, Name: name, Price: dec(price), CreatedAt: fixedNow})
	})
}

// newShop returns a store with one branch "b1" holding a shirt (5 in
// stock, cost 60, price 100) and 20m of linen (cost 30/m), plus a
// hemming service priced 150.
func newShop(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	seedBranch(t, st, "b1", "Downtown")
	seedBranch(t, st, "b2", "Warehouse")
	seedStock(t, st, models.InventoryItem{
		ID: "shirt", Name: "Shirt", Type: models.ItemTypeFinished, Quantity: 5, MinQuantity: 2,
		Cost: dec(60), SellingPrice: dec(100), Barcode: "15102026001", BranchID: "b1", BranchName: "Downtown",
	})
	seedStock(t, st, models.InventoryItem{
		ID: "linen", Name: "Linen", Type: models.ItemTypeRaw, Unit: "m", Quantity: 20, MinQuantity: 3,
		Cost: dec(30), Barcode: "15102026002", BranchID: "b1", BranchName: "Downtown",
	})
	seedService(t, st, "hem", "Hemming", 150)
	return st
}

func newCheckout(st store.Store, rec *notify.Recorder) *CheckoutService {
	s := NewCheckoutService(st, rec)
	s.Now = clock
	s.Backoff = time.Millisecond
	return s
}
