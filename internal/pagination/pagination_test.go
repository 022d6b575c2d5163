package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type rec struct{ id string }

func idOf(r rec) string { return r.id }

func records(n int) []rec {
	out := make([]rec, n)
	for i := range out {
		out[i] = rec{id: fmt.Sprintf("r%03d", i)}
	}
	return out
}

func fetcher(rows []rec, size int) Fetcher[rec] {
	return func(ctx context.Context, cursor string) (Page[rec], error) {
		after, err := Decode(cursor, "sig")
		if err != nil {
			return Page[rec]{}, err
		}
		return Window(rows, after, size, idOf, "sig")
	}
}

func TestSessionVisitsEveryRecordOnce(t *testing.T) {
	for _, tc := range []struct{ n, size int }{{0, 5}, {1, 5}, {5, 5}, {6, 5}, {23, 5}, {30, 15}} {
		t.Run(fmt.Sprintf("n=%d,size=%d", tc.n, tc.size), func(t *testing.T) {
			rows := records(tc.n)
			s := NewSession(fetcher(rows, tc.size))
			ctx := context.Background()

			seen := map[string]int{}
			p, err := s.First(ctx)
			if err != nil {
				t.Fatal(err)
			}
			for {
				for _, r := range p.Items {
					seen[r.id]++
				}
				if !p.HasMore {
					break
				}
				if p, err = s.Next(ctx); err != nil {
					t.Fatal(err)
				}
			}
			if len(seen) != tc.n {
				t.Fatalf("visited %d records, want %d", len(seen), tc.n)
			}
			for id, c := range seen {
				if c != 1 {
					t.Fatalf("%s visited %d times", id, c)
				}
			}
			if _, err := s.Next(ctx); !errors.Is(err, ErrNoNextPage) {
				t.Fatalf("Next past the end err = %v", err)
			}
		})
	}
}

func TestSessionPrevUsesStack(t *testing.T) {
	s := NewSession(fetcher(records(12), 5))
	ctx := context.Background()

	p1, _ := s.First(ctx)
	p2, _ := s.Next(ctx)
	if _, err := s.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if s.PageNumber() != 3 {
		t.Fatalf("page = %d", s.PageNumber())
	}

	back, err := s.Prev(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if back.Items[0] != p2.Items[0] || s.PageNumber() != 2 {
		t.Fatalf("prev landed on %v page %d", back.Items[0], s.PageNumber())
	}
	back, _ = s.Prev(ctx)
	if back.Items[0] != p1.Items[0] || s.HasPrev() {
		t.Fatalf("second prev landed on %v", back.Items[0])
	}
	// prev on the first page reloads it
	back, _ = s.Prev(ctx)
	if back.Items[0] != p1.Items[0] {
		t.Fatalf("prev on first page = %v", back.Items[0])
	}
}

func TestEmptyResultIsAnEmptyPage(t *testing.T) {
	p := Trim([]rec(nil), 15, idOf, "sig")
	if p.Items == nil || len(p.Items) != 0 || p.HasMore || p.NextCursor != "" {
		t.Fatalf("empty page = %+v", p)
	}
}

func TestDecodeRejectsForeignCursor(t *testing.T) {
	tok := Encode("r001", "name:asc")
	if _, err := Decode(tok, "quantity:desc"); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("err = %v", err)
	}
	if _, err := Decode("%%%", "name:asc"); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("garbage err = %v", err)
	}
	id, err := Decode(tok, "name:asc")
	if err != nil || id != "r001" {
		t.Fatalf("Decode = %q, %v", id, err)
	}
}

func TestWindowStaleAnchor(t *testing.T) {
	if _, err := Window(records(3), "missing", 2, idOf, "sig"); !errors.Is(err, ErrStaleCursor) {
		t.Fatalf("err = %v", err)
	}
}
