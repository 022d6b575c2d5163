// Package repositories is the PostgreSQL implementation of store.Store.
// Every RunInTx is one SERIALIZABLE transaction; PostgreSQL's own conflict
// detection supplies the all-or-nothing and lost-race guarantees.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"tailor-pos/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both the pool and an open transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error {
	return mapError(s.DB.Ping(ctx))
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{q: tx}); err != nil {
		return mapError(err)
	}
	return mapError(tx.Commit(ctx))
}

// pgTx implements store.Tx on an open transaction
type pgTx struct {
	q pgx.Tx
}

const (
	sqlStateSerialization = "40001"
	sqlStateDeadlock      = "40P01"
	sqlStateUnique        = "23505"
	sqlStateCheck         = "23514"
)

// mapError translates driver errors to the store sentinels. Anything else,
// including errors returned by the caller's own transaction body, passes
// through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{store.ErrNotFound, store.ErrConflict, store.ErrUnavailable, store.ErrInsufficientStock, store.ErrDuplicate} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerialization, sqlStateDeadlock:
			return fmt.Errorf("%w (%s)", store.ErrConflict, pgErr.Code)
		case sqlStateUnique:
			return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
		case sqlStateCheck:
			if pgErr.ConstraintName == "inventory_quantity_non_negative" {
				return store.ErrInsufficientStock
			}
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || pgconn.Timeout(err) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}

// likePrefix escapes LIKE metacharacters and appends the wildcard
func likePrefix(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(p) + "%"
}

// args collects positional parameters while a statement is assembled
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

func direction(desc bool) (dir, cmp string) {
	if desc {
		return "DESC", "<"
	}
	return "ASC", ">"
}

func exists(ctx context.Context, q querier, table, keyCol, key string) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)`, table, keyCol), key).Scan(&ok)
	return ok, mapError(err)
}

func affectedOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
