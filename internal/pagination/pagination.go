// Package pagination implements opaque keyset cursors and the per-session
// back stack used by every list screen.
//
// The HTTP API is stateless: it hands out NextCursor and the terminal keeps
// its own stack of earlier cursors. Session is that stack for Go callers
// holding a list view open in-process, such as a terminal client or a
// batch job walking every page.
package pagination

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
)

var (
	// ErrInvalidCursor is returned for tokens that cannot be decoded or were
	// issued for a different filter/sort
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrStaleCursor means the record a cursor points after no longer exists
	ErrStaleCursor = errors.New("cursor anchor no longer exists, restart from the first page")
	ErrNoNextPage  = errors.New("no next page")
)

type token struct {
	ID  string `json:"i"`
	Sig string `json:"s"`
}

// Encode builds the opaque token for "after record id under this ordering"
func Encode(id, signature string) string {
	b, _ := json.Marshal(token{ID: id, Sig: signature})
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode returns the anchor record id. An empty token means the first page.
func Decode(raw, signature string) (string, error) {
	if raw == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return "", ErrInvalidCursor
	}
	var t token
	if err := json.Unmarshal(b, &t); err != nil || t.ID == "" {
		return "", ErrInvalidCursor
	}
	if t.Sig != signature {
		return "", ErrInvalidCursor
	}
	return t.ID, nil
}

type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// Trim turns a pageSize+1 fetch into a page. The extra row only signals
// that another page exists.
func Trim[T any](rows []T, pageSize int, idOf func(T) string, signature string) Page[T] {
	p := Page[T]{Items: rows}
	if len(rows) > pageSize {
		p.Items = rows[:pageSize]
		p.HasMore = true
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	if p.HasMore {
		p.NextCursor = Encode(idOf(p.Items[len(p.Items)-1]), signature)
	}
	return p
}

// Window pages over a slice that was already filtered and sorted in memory.
// afterID must be the id of a row in rows.
func Window[T any](rows []T, afterID string, pageSize int, idOf func(T) string, signature string) (Page[T], error) {
	start := 0
	if afterID != "" {
		start = -1
		for i, r := range rows {
			if idOf(r) == afterID {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return Page[T]{}, ErrStaleCursor
		}
	}
	end := start + pageSize + 1
	if end > len(rows) {
		end = len(rows)
	}
	return Trim(rows[start:end], pageSize, idOf, signature), nil
}

// Fetcher loads one page starting after cursor ("" for the first page)
type Fetcher[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Session keeps the navigation state of one list view: the cursor that
// produced the current page and the cursors of every page before it.
// Going back pops that stack; nothing is ever scanned in reverse.
type Session[T any] struct {
	fetch   Fetcher[T]
	current string
	stack   []string
	last    Page[T]
}

func NewSession[T any](fetch Fetcher[T]) *Session[T] {
	return &Session[T]{fetch: fetch}
}

func (s *Session[T]) First(ctx context.Context) (Page[T], error) {
	p, err := s.fetch(ctx, "")
	if err != nil {
		return Page[T]{}, err
	}
	s.current, s.stack, s.last = "", nil, p
	return p, nil
}

func (s *Session[T]) Next(ctx context.Context) (Page[T], error) {
	if !s.last.HasMore {
		return Page[T]{}, ErrNoNextPage
	}
	p, err := s.fetch(ctx, s.last.NextCursor)
	if err != nil {
		return Page[T]{}, err
	}
	s.stack = append(s.stack, s.current)
	s.current, s.last = s.last.NextCursor, p
	return p, nil
}

func (s *Session[T]) Prev(ctx context.Context) (Page[T], error) {
	if len(s.stack) == 0 {
		return s.First(ctx)
	}
	prev := s.stack[len(s.stack)-1]
	p, err := s.fetch(ctx, prev)
	if err != nil {
		return Page[T]{}, err
	}
	s.stack = s.stack[:len(s.stack)-1]
	s.current, s.last = prev, p
	return p, nil
}

// PageNumber is 1 for the first page
func (s *Session[T]) PageNumber() int {
	return len(s.stack) + 1
}

func (s *Session[T]) HasPrev() bool {
	return len(s.stack) > 0
}
