package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tailor-pos/internal/models"
	"tailor-pos/internal/notify"
	"tailor-pos/internal/pagination"
	"tailor-pos/internal/store"
	"tailor-pos/internal/store/memory"
)

func newInventory(st store.Store, rec *notify.Recorder) *InventoryService {
	s := NewInventoryService(st, rec)
	s.Now = clock
	s.Retry.Backoff = time.Millisecond
	return s
}

// stockedBranch seeds n finished items at b1 named item-00..item-nn with
// quantity i and increasing creation times
func stockedBranch(t *testing.T, n int) *memory.Store {
	t.Helper()
	st := memory.New()
	seedBranch(t, st, "b1", "Downtown")
	seedBranch(t, st, "b2", "Warehouse")
	for i := 0; i < n; i++ {
		seedStock(t, st, models.InventoryItem{
			ID:          fmt.Sprintf("id-%02d", i),
			Name:        fmt.Sprintf("item-%02d", i),
			Quantity:    i,
			MinQuantity: 3,
			Cost:        dec(10),
			Barcode:     fmt.Sprintf("1510202600%d", i),
			BranchID:    "b1",
			CreatedAt:   fixedNow.Add(time.Duration(i) * time.Minute),
		})
	}
	return st
}

func TestInventoryListVisitsEveryItemOnce(t *testing.T) {
	st := stockedBranch(t, 23)
	svc := newInventory(st, &notify.Recorder{})
	ctx := context.Background()

	f := InventoryFilter{BranchID: "b1", SortBy: "name", PageSize: 5}
	seen := map[string]bool{}
	cursor := ""
	pages := 0
	var last string
	for {
		page, err := svc.List(ctx, f, cursor)
		if err != nil {
			t.Fatal(err)
		}
		pages++
		for _, it := range page.Items {
			if seen[it.ID] {
				t.Fatalf("%s returned twice", it.ID)
			}
			if it.Name < last {
				t.Fatalf("out of order: %s after %s", it.Name, last)
			}
			last = it.Name
			seen[it.ID] = true
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	if len(seen) != 23 || pages != 5 {
		t.Fatalf("saw %d items over %d pages", len(seen), pages)
	}
}

func TestInventoryListDefaultsToNewestFirst(t *testing.T) {
	st := stockedBranch(t, 4)
	svc := newInventory(st, &notify.Recorder{})
	page, err := svc.List(context.Background(), InventoryFilter{BranchID: "b1"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 4 || page.Items[0].ID != "id-03" || page.HasMore {
		t.Fatalf("page = %v has_more=%t", ids(page.Items), page.HasMore)
	}
}

func TestInventorySearchRouting(t *testing.T) {
	st := stockedBranch(t, 12)
	svc := newInventory(st, &notify.Recorder{})
	ctx := context.Background()

	// digits go to the barcode range, the page is then sorted by quantity desc
	page, err := svc.List(ctx, InventoryFilter{BranchID: "b1", Search: "1510-2026-001", SortBy: "quantity", SortDir: "desc"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(page.Items); fmt.Sprint(got) != "[id-11 id-10 id-01]" {
		t.Fatalf("barcode search = %v", got)
	}

	page, err = svc.List(ctx, InventoryFilter{BranchID: "b1", Search: "item-1"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("name search = %v", ids(page.Items))
	}
}

func TestInventoryLowStockPaging(t *testing.T) {
	st := stockedBranch(t, 10) // quantities 0..9, min 3 -> ids 00..03 are low
	svc := newInventory(st, &notify.Recorder{})
	ctx := context.Background()

	f := InventoryFilter{BranchID: "b1", LowStock: true, SortBy: "quantity", PageSize: 3}
	first, err := svc.List(ctx, f, "")
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(ids(first.Items)) != "[id-00 id-01 id-02]" || !first.HasMore {
		t.Fatalf("first = %v", ids(first.Items))
	}
	second, err := svc.List(ctx, f, first.NextCursor)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(ids(second.Items)) != "[id-03]" || second.HasMore {
		t.Fatalf("second = %v", ids(second.Items))
	}
}

func TestInventoryCursorErrors(t *testing.T) {
	st := stockedBranch(t, 6)
	svc := newInventory(st, &notify.Recorder{})
	ctx := context.Background()

	f := InventoryFilter{BranchID: "b1", SortBy: "name", PageSize: 2}
	page, err := svc.List(ctx, f, "")
	if err != nil {
		t.Fatal(err)
	}

	// a cursor from another sort is rejected
	_, err = svc.List(ctx, InventoryFilter{BranchID: "b1", SortBy: "quantity", PageSize: 2}, page.NextCursor)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("foreign cursor err = %v", err)
	}

	// the anchor vanishing makes the cursor stale
	if err := svc.Delete(ctx, page.Items[1].ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.List(ctx, f, page.NextCursor); !errors.Is(err, pagination.ErrStaleCursor) {
		t.Fatalf("stale cursor err = %v", err)
	}
}

func TestInventoryEmptyPage(t *testing.T) {
	svc := newInventory(stockedBranch(t, 0), &notify.Recorder{})
	page, err := svc.List(context.Background(), InventoryFilter{BranchID: "b1", Search: "nothing"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if page.Items == nil || len(page.Items) != 0 || page.HasMore {
		t.Fatalf("page = %+v", page)
	}
}

func TestInventorySessionBackStack(t *testing.T) {
	st := stockedBranch(t, 7)
	svc := newInventory(st, &notify.Recorder{})
	f := InventoryFilter{BranchID: "b1", SortBy: "name", PageSize: 3}
	sess := pagination.NewSession(func(ctx context.Context, cursor string) (pagination.Page[models.InventoryItem], error) {
		return svc.List(ctx, f, cursor)
	})
	ctx := context.Background()

	p1, _ := sess.First(ctx)
	p2, _ := sess.Next(ctx)
	back, err := sess.Prev(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(ids(back.Items)) != fmt.Sprint(ids(p1.Items)) || sess.PageNumber() != 1 {
		t.Fatalf("prev = %v, want %v", ids(back.Items), ids(p1.Items))
	}
	if p2.Items[0].ID != "id-03" {
		t.Fatalf("second page starts at %s", p2.Items[0].ID)
	}
}

func TestInventoryAddAllocatesBarcode(t *testing.T) {
	st := stockedBranch(t, 0)
	rec := &notify.Recorder{}
	svc := newInventory(st, rec)
	ctx := context.Background()

	req := &models.CreateItemRequest{Name: "Cotton", Type: models.ItemTypeRaw, Unit: "m", Quantity: 40, Cost: dec(25), BranchID: "b1"}
	first, err := svc.Add(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Add(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Barcode != "15102026001" || second.Barcode != "15102026002" {
		t.Fatalf("barcodes = %s, %s", first.Barcode, second.Barcode)
	}
	if first.BranchName != "Downtown" {
		t.Errorf("branch name = %q", first.BranchName)
	}
	if len(rec.Types()) != 2 {
		t.Errorf("events = %v", rec.Types())
	}

	req.Barcode = "15102026001"
	if _, err := svc.Add(ctx, req); !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate barcode err = %v", err)
	}
	req.Barcode = ""
	req.BranchID = "nowhere"
	if _, err := svc.Add(ctx, req); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown branch err = %v", err)
	}
}

func TestInventorySummaryAndScan(t *testing.T) {
	st := stockedBranch(t, 5) // quantities 0..4, cost 10
	svc := newInventory(st, &notify.Recorder{})
	ctx := context.Background()

	sum, err := svc.Summary(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if sum.ItemCount != 5 || sum.TotalUnits != 10 || !sum.StockValue.Equal(dec(100)) || sum.LowStockCount != 4 {
		t.Fatalf("summary = %+v", sum)
	}

	it, err := svc.Scan(ctx, "b1", "1510 2026 002")
	if err != nil || it.ID != "id-02" {
		t.Fatalf("scan = %v, %v", it, err)
	}
	if _, err := svc.Scan(ctx, "b2", "151020260002"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("scan at other branch err = %v", err)
	}
}

func TestTransferCreatesCloneThenTopsUp(t *testing.T) {
	st := newShop(t)
	rec := &notify.Recorder{}
	svc := newInventory(st, rec)
	ctx := context.Background()

	res, err := svc.Transfer(ctx, &models.TransferRequest{ItemID: "linen", ToBranchID: "b2", Quantity: 8}, "manager1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Source.Quantity != 12 || res.Target.Quantity != 8 || res.Target.BranchID != "b2" || res.Target.ID == "linen" {
		t.Fatalf("after first transfer: source=%+v target=%+v", res.Source, res.Target)
	}
	if res.Target.BranchName != "Warehouse" || res.Target.Barcode != "15102026002" {
		t.Errorf("clone = %+v", res.Target)
	}
	cloneID := res.Target.ID

	res, err = svc.Transfer(ctx, &models.TransferRequest{ItemID: "linen", ToBranchID: "b2", Quantity: 2}, "manager1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Target.ID != cloneID || res.Target.Quantity != 10 {
		t.Fatalf("second transfer target = %+v", res.Target)
	}

	audit, err := svc.ListTransfers(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(audit) != 2 {
		t.Fatalf("audit rows = %d", len(audit))
	}

	// total units across branches are conserved
	src, _ := st.GetItem(ctx, "linen")
	dst, _ := st.GetItem(ctx, cloneID)
	if src.Quantity+dst.Quantity != 20 {
		t.Fatalf("units = %d + %d", src.Quantity, dst.Quantity)
	}
}

func TestTransferValidation(t *testing.T) {
	st := newShop(t)
	svc := newInventory(st, &notify.Recorder{})
	ctx := context.Background()

	cases := map[string]*models.TransferRequest{
		"zero":        {ItemID: "linen", ToBranchID: "b2", Quantity: 0},
		"too many":    {ItemID: "linen", ToBranchID: "b2", Quantity: 21},
		"same branch": {ItemID: "linen", ToBranchID: "b1", Quantity: 1},
		"no branch":   {ItemID: "linen", ToBranchID: "b9", Quantity: 1},
	}
	for name, req := range cases {
		if _, err := svc.Transfer(ctx, req, "m"); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
	if _, err := svc.Transfer(ctx, &models.TransferRequest{ItemID: "ghost", ToBranchID: "b2", Quantity: 1}, "m"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing item err = %v", err)
	}
	linen, _ := st.GetItem(ctx, "linen")
	if linen.Quantity != 20 {
		t.Errorf("linen = %d after rejected transfers", linen.Quantity)
	}
}

func ids(items []models.InventoryItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
