// Package sequence hands out the human-readable daily codes printed on
// barcode labels and service-order tickets.
package sequence

import (
	"context"
	"fmt"
	"time"

	"tailor-pos/internal/store"
	"tailor-pos/internal/timeutil"
)

const (
	ScopeBarcode = "barcode"
	ScopeOrder   = "order"
)

// Key is the counter document id for a scope and calendar day
func Key(scope string, day time.Time) string {
	return scope + "_" + timeutil.DayKey(day)
}

// FormatCode renders DDMMYYYY followed by the sequence padded to 3 digits
func FormatCode(day time.Time, seq int) string {
	return day.In(timeutil.Location).Format(timeutil.StampLayout) + fmt.Sprintf("%03d", seq)
}

// Allocate takes the next number of scope for day. It only exists inside a
// transaction so the counter bump commits or rolls back together with the
// write that uses the code.
func Allocate(ctx context.Context, tx store.Tx, scope string, day time.Time) (int, string, error) {
	seq, err := tx.NextCounter(ctx, Key(scope, day))
	if err != nil {
		return 0, "", fmt.Errorf("allocate %s sequence: %w", scope, err)
	}
	return seq, FormatCode(day, seq), nil
}
