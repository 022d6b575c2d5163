package db

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"tailor-pos/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DSN builds the connection string from the database section
func DSN(cfg *config.Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Database.User, cfg.Database.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port),
		Path:   cfg.Database.Name,
	}
	q := u.Query()
	if cfg.Database.SSLMode != "" {
		q.Set("sslmode", cfg.Database.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect opens the pool and waits for the server to answer a ping,
// retrying with a growing delay while it starts up
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}

	attempts := cfg.Database.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Second
	for i := 1; ; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			log.Printf("[DB] Connected to %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
			return pool, nil
		}
		if i >= attempts {
			break
		}
		log.Printf("[DB] Ping failed (attempt %d/%d): %v, retrying in %s", i, attempts, err, delay)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	pool.Close()
	return nil, fmt.Errorf("database not reachable after %d attempts: %w", attempts, err)
}
