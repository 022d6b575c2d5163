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

	"github.com/shopspring/decimal"
)

func newCatalog(st store.Store, rec *notify.Recorder) *CatalogService {
	var pub notify.Publisher
	if rec != nil {
		pub = rec
	}
	s := NewCatalogService(st, pub)
	s.Now = clock
	s.Retry.Backoff = time.Millisecond
	return s
}

func TestBranchCRUD(t *testing.T) {
	rec := &notify.Recorder{}
	svc := newCatalog(memory.New(), rec)
	ctx := context.Background()

	b, err := svc.CreateBranch(ctx, &models.BranchRequest{Name: " Heliopolis ", Location: "Cairo"})
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "Heliopolis" || b.Type != models.BranchTypeStore || b.ID == "" {
		t.Fatalf("branch = %+v", b)
	}

	svc.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	w, err := svc.CreateBranch(ctx, &models.BranchRequest{Name: "Stores", Type: models.BranchTypeWarehouse})
	if err != nil {
		t.Fatal(err)
	}

	list, err := svc.ListBranches(ctx)
	if err != nil || len(list) != 2 || list[0].ID != w.ID {
		t.Fatalf("list = %v, %v", list, err)
	}

	upd, err := svc.UpdateBranch(ctx, b.ID, &models.BranchRequest{Name: "Heliopolis 2", Location: "Korba", Type: models.BranchTypeStore})
	if err != nil || upd.Location != "Korba" || !upd.CreatedAt.Equal(fixedNow) {
		t.Fatalf("update = %+v, %v", upd, err)
	}

	if err := svc.DeleteBranch(ctx, w.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetBranch(ctx, w.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get deleted err = %v", err)
	}
	if got := rec.Types(); len(got) != 4 || got[0] != notify.CatalogChanged {
		t.Fatalf("events = %v", got)
	}
}

func TestBranchValidation(t *testing.T) {
	svc := newCatalog(memory.New(), nil)
	ctx := context.Background()
	if _, err := svc.CreateBranch(ctx, &models.BranchRequest{Name: "  "}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank name err = %v", err)
	}
	if _, err := svc.CreateBranch(ctx, &models.BranchRequest{Name: "X", Type: "kiosk"}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad type err = %v", err)
	}
	if _, err := svc.UpdateBranch(ctx, "nope", &models.BranchRequest{Name: "X"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update missing err = %v", err)
	}
}

func TestDeleteBranchWithStockIsRefused(t *testing.T) {
	st := newShop(t)
	svc := newCatalog(st, nil)
	err := svc.DeleteBranch(context.Background(), "b1")
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "branch_id" {
		t.Fatalf("err = %v", err)
	}
	if _, err := st.GetBranch(context.Background(), "b1"); err != nil {
		t.Fatalf("branch gone after refused delete: %v", err)
	}
}

func TestServiceCatalogPaging(t *testing.T) {
	st := memory.New()
	svc := newCatalog(st, nil)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		typ := models.ServiceTypeTailoring
		if i%2 == 1 {
			typ = models.ServiceTypeRepair
		}
		svc.Now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Minute) }
		if _, err := svc.CreateService(ctx, &models.ServiceRequest{Type: typ, Name: fmt.Sprintf("svc-%d", i), Price: dec(int64(50 + i))}); err != nil {
			t.Fatal(err)
		}
	}

	first, err := svc.ListServices(ctx, "", "", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Items) != 5 || !first.HasMore || first.Items[0].Name != "svc-6" {
		t.Fatalf("first page = %d items, has_more=%t", len(first.Items), first.HasMore)
	}
	second, err := svc.ListServices(ctx, "", first.NextCursor, 5)
	if err != nil || len(second.Items) != 2 || second.HasMore {
		t.Fatalf("second page = %+v, %v", second, err)
	}

	repairs, err := svc.ListServices(ctx, models.ServiceTypeRepair, "", 0)
	if err != nil || len(repairs.Items) != 3 {
		t.Fatalf("repairs = %+v, %v", repairs, err)
	}
	for _, r := range repairs.Items {
		if r.Type != models.ServiceTypeRepair {
			t.Fatalf("type filter leaked %+v", r)
		}
	}

	if _, err := svc.ListServices(ctx, models.ServiceTypeRepair, first.NextCursor, 5); !errors.Is(err, ErrValidation) {
		t.Fatalf("cursor from another filter err = %v", err)
	}
	if _, err := svc.ListServices(ctx, "laundry", "", 5); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad type err = %v", err)
	}
	if _, err := svc.ListServices(ctx, "", pagination.Encode("gone", "svc|"), 5); !errors.Is(err, pagination.ErrStaleCursor) {
		t.Fatalf("stale cursor err = %v", err)
	}
}

func TestServiceUpdateAndDelete(t *testing.T) {
	st := newShop(t)
	svc := newCatalog(st, nil)
	ctx := context.Background()

	sv, err := svc.UpdateService(ctx, "hem", &models.ServiceRequest{Type: models.ServiceTypeTailoring, Name: "Hemming", Price: decimal.RequireFromString("175.50")})
	if err != nil || !sv.Price.Equal(decimal.RequireFromString("175.5")) {
		t.Fatalf("update = %+v, %v", sv, err)
	}
	if _, err := svc.UpdateService(ctx, "hem", &models.ServiceRequest{Type: models.ServiceTypeTailoring, Name: "Hemming", Price: dec(-1)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative price err = %v", err)
	}
	if err := svc.DeleteService(ctx, "hem"); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteService(ctx, "hem"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}
