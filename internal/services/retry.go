package services

import (
	"context"
	"log"
	"time"

	"tailor-pos/internal/store"
)

// RetryPolicy bounds how often a transaction that lost a race is rerun
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

var defaultRetry = RetryPolicy{MaxAttempts: 5, Backoff: 50 * time.Millisecond}

// runTx reruns fn from scratch while it fails with a retryable error.
// fn must redo its own reads; nothing from a failed attempt survives.
func runTx(ctx context.Context, st store.Store, p RetryPolicy, tag string, fn func(ctx context.Context, tx store.Tx) error) (int, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	var err error
	attempt := 1
	for ; attempt <= p.MaxAttempts; attempt++ {
		err = st.RunInTx(ctx, fn)
		if err == nil || !retryable(err) || attempt == p.MaxAttempts {
			break
		}
		log.Printf("[%s] attempt %d lost a race, retrying: %v", tag, attempt, err)
		if !sleepCtx(ctx, p.Backoff*time.Duration(attempt)) {
			return attempt, ctx.Err()
		}
	}
	return attempt, err
}
