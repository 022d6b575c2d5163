package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"tailor-pos/internal/store"
	"tailor-pos/internal/store/memory"
	"tailor-pos/internal/timeutil"
)

func TestFormatCode(t *testing.T) {
	day := time.Date(2026, 10, 5, 10, 0, 0, 0, timeutil.Location)
	tests := []struct {
		seq  int
		want string
	}{
		{1, "05102026001"},
		{42, "05102026042"},
		{999, "05102026999"},
		{1000, "051020261000"},
	}
	for _, tt := range tests {
		if got := FormatCode(day, tt.seq); got != tt.want {
			t.Errorf("FormatCode(%d) = %s, want %s", tt.seq, got, tt.want)
		}
	}
}

func TestKeySeparatesScopesAndDays(t *testing.T) {
	d1 := time.Date(2026, 10, 5, 10, 0, 0, 0, timeutil.Location)
	d2 := d1.AddDate(0, 0, 1)
	if Key(ScopeBarcode, d1) == Key(ScopeOrder, d1) {
		t.Fatal("scopes share a key")
	}
	if Key(ScopeBarcode, d1) == Key(ScopeBarcode, d2) {
		t.Fatal("days share a key")
	}
	if Key(ScopeOrder, d1) != "order_2026-10-05" {
		t.Fatalf("Key = %s", Key(ScopeOrder, d1))
	}
}

func TestAllocateIsGaplessUnderConcurrency(t *testing.T) {
	s := memory.New()
	day := timeutil.Now()
	const workers = 20

	var mu sync.Mutex
	seen := make(map[int]bool)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				var got int
				err := s.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
					seq, _, err := Allocate(ctx, tx, ScopeBarcode, day)
					got = seq
					return err
				})
				if err == store.ErrConflict {
					continue
				}
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				seen[got] = true
				mu.Unlock()
				return
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers {
		t.Fatalf("allocated %d distinct codes, want %d", len(seen), workers)
	}
	for i := 1; i <= workers; i++ {
		if !seen[i] {
			t.Fatalf("sequence %d missing", i)
		}
	}
}
