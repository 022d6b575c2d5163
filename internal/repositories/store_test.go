package repositories

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"tailor-pos/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	domain := errors.New("line 2: not enough stock")
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, store.ErrNotFound},
		{"serialization", &pgconn.PgError{Code: "40001"}, store.ErrConflict},
		{"deadlock", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"}), store.ErrConflict},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "customers_pkey"}, store.ErrDuplicate},
		{"stock check", &pgconn.PgError{Code: "23514", ConstraintName: "inventory_quantity_non_negative"}, store.ErrInsufficientStock},
		{"already mapped", store.ErrConflict, store.ErrConflict},
		{"domain error", domain, domain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapError(tc.in); !errors.Is(got, tc.want) {
				t.Fatalf("mapError(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
	if mapError(nil) != nil {
		t.Fatal("nil error mapped to non-nil")
	}
	other := &pgconn.PgError{Code: "42P01"}
	if got := mapError(other); got != error(other) {
		t.Fatalf("unrelated pg error = %v", got)
	}
}

func TestLikePrefixEscapes(t *testing.T) {
	if got := likePrefix(`50%_off\`); got != `50\%\_off\\%` {
		t.Fatalf("likePrefix = %s", got)
	}
}

func TestItemQuerySQL(t *testing.T) {
	sql, params, err := itemQuerySQL(store.ItemQuery{
		BranchID:    "b1",
		PrefixField: store.ItemSortBarcode,
		Prefix:      "1510",
		OrderBy:     store.ItemSortBarcode,
		AfterID:     "id-7",
		Limit:       16,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, frag := range []string{
		"branch_id = $1",
		"barcode LIKE $2",
		"(barcode, id) > (SELECT barcode, id FROM inventory_items WHERE id = $3)",
		"ORDER BY barcode ASC, id ASC",
		"LIMIT $4",
	} {
		if !strings.Contains(sql, frag) {
			t.Errorf("query missing %q:\n%s", frag, sql)
		}
	}
	if len(params) != 4 || params[1] != "1510%" || params[3] != 16 {
		t.Fatalf("params = %v", params)
	}

	desc, _, _ := itemQuerySQL(store.ItemQuery{OrderBy: "nonsense", Desc: true, AfterID: "x"})
	if !strings.Contains(desc, "(created_at, id) < (") || !strings.Contains(desc, "ORDER BY created_at DESC, id DESC") {
		t.Fatalf("desc query:\n%s", desc)
	}

	if _, _, err := itemQuerySQL(store.ItemQuery{PrefixField: "color", Prefix: "red"}); err == nil {
		t.Fatal("prefix on an unindexed field accepted")
	}
}

func TestCustomerAndSaleQuerySQL(t *testing.T) {
	sql, params, err := customerQuerySQL(store.CustomerQuery{PrefixField: store.CustomerSortPhone, Prefix: "0100", OrderBy: store.CustomerSortPhone, Limit: 16})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, "phone LIKE $1") || !strings.Contains(sql, "ORDER BY phone ASC, phone ASC") || len(params) != 2 {
		t.Fatalf("customer query:\n%s %v", sql, params)
	}

	sql, params = saleQuerySQL(store.SaleQuery{CustomerPhone: "01012345678", Status: "pending", AfterID: "s1", Limit: 5})
	if !strings.Contains(sql, "status = $1") || !strings.Contains(sql, "customer_phone = $2") ||
		!strings.Contains(sql, "(created_at, id) < (SELECT created_at, id FROM sales WHERE id = $3)") ||
		!strings.HasSuffix(sql, "LIMIT $4") || len(params) != 4 {
		t.Fatalf("sale query:\n%s %v", sql, params)
	}
}
