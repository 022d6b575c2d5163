package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tailor-pos/internal/models"
	"tailor-pos/internal/store"

	"github.com/shopspring/decimal"
)

const customerColumns = `phone, name, order_count, total_spent, last_order_date, created_at, updated_at`

var customerOrderColumns = map[string]string{
	store.CustomerSortCreatedAt:  "created_at",
	store.CustomerSortName:       "name",
	store.CustomerSortPhone:      "phone",
	store.CustomerSortTotalSpent: "total_spent",
	store.CustomerSortOrderCount: "order_count",
}

func scanCustomer(row scanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.Phone, &c.Name, &c.OrderCount, &c.TotalSpent, &c.LastOrderDate, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func getCustomer(ctx context.Context, q querier, phone string) (*models.Customer, error) {
	return scanCustomer(q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE phone = $1`, phone))
}

// customerQuerySQL mirrors itemQuerySQL with the phone as the tie-breaker
func customerQuerySQL(q store.CustomerQuery) (string, []any, error) {
	col, ok := customerOrderColumns[q.OrderBy]
	if !ok {
		col = "created_at"
	}
	var a args
	var where []string
	if q.Prefix != "" {
		switch q.PrefixField {
		case store.CustomerSortPhone:
			where = append(where, "phone LIKE "+a.add(likePrefix(q.Prefix)))
		case store.CustomerSortName:
			where = append(where, "name LIKE "+a.add(likePrefix(q.Prefix)))
		default:
			return "", nil, fmt.Errorf("unsupported prefix field %q", q.PrefixField)
		}
	}
	dir, cmp := direction(q.Desc)
	if q.AfterID != "" {
		p := a.add(q.AfterID)
		where = append(where, fmt.Sprintf("(%s, phone) %s (SELECT %s, phone FROM customers WHERE phone = %s)", col, cmp, col, p))
	}

	sql := `SELECT ` + customerColumns + ` FROM customers`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY %s %s, phone %s", col, dir, dir)
	if q.Limit > 0 {
		sql += " LIMIT " + a.add(q.Limit)
	}
	return sql, a, nil
}

func (s *Store) GetCustomer(ctx context.Context, phone string) (*models.Customer, error) {
	return getCustomer(ctx, s.DB, phone)
}

func (s *Store) QueryCustomers(ctx context.Context, q store.CustomerQuery) ([]models.Customer, error) {
	if q.AfterID != "" {
		ok, err := exists(ctx, s.DB, "customers", "phone", q.AfterID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, store.ErrNotFound
		}
	}
	sql, params, err := customerQuerySQL(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx, sql, params...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	customers := make([]models.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, mapError(rows.Err())
}

func (s *Store) CountCustomers(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, mapError(err)
}

func (s *Store) GetGeneralStats(ctx context.Context) (*models.GeneralStats, error) {
	var st models.GeneralStats
	err := s.DB.QueryRow(ctx, `SELECT customers_count, updated_at FROM general_stats WHERE id = 1`).
		Scan(&st.CustomersCount, &st.UpdatedAt)
	if err = mapError(err); errors.Is(err, store.ErrNotFound) {
		return &st, nil
	}
	return &st, err
}

// ============================================
// Tx
// ============================================

func (t *pgTx) GetCustomer(ctx context.Context, phone string) (*models.Customer, error) {
	return getCustomer(ctx, t.q, phone)
}

func (t *pgTx) CreateCustomer(ctx context.Context, c *models.Customer) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO customers(`+customerColumns+`) VALUES($1, $2, $3, $4, $5, $6, $7)`,
		c.Phone, c.Name, c.OrderCount, c.TotalSpent, c.LastOrderDate, c.CreatedAt, c.UpdatedAt)
	return mapError(err)
}

func (t *pgTx) UpdateCustomerName(ctx context.Context, phone, name string, at time.Time) error {
	return affectedOne(t.q.Exec(ctx,
		`UPDATE customers SET name = $2, updated_at = $3 WHERE phone = $1`, phone, name, at))
}

func (t *pgTx) MergeCustomer(ctx context.Context, phone, name string, at time.Time) (bool, error) {
	var inserted bool
	err := t.q.QueryRow(ctx,
		`INSERT INTO customers(phone, name, order_count, total_spent, created_at, updated_at)
		 VALUES($1, $2, 0, 0, $3, $3)
		 ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		 RETURNING (xmax = 0)`, phone, name, at).Scan(&inserted)
	return inserted, mapError(err)
}

func (t *pgTx) IncrementCustomerTotals(ctx context.Context, phone string, orders int, spent decimal.Decimal, at time.Time) error {
	return affectedOne(t.q.Exec(ctx,
		`UPDATE customers
		 SET order_count = order_count + $2, total_spent = total_spent + $3, last_order_date = $4, updated_at = $4
		 WHERE phone = $1`, phone, orders, spent, at))
}

func (t *pgTx) DeleteCustomer(ctx context.Context, phone string) error {
	return affectedOne(t.q.Exec(ctx, `DELETE FROM customers WHERE phone = $1`, phone))
}

func (t *pgTx) IncrementCustomersCount(ctx context.Context, delta int) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO general_stats(id, customers_count, updated_at) VALUES(1, $1, NOW())
		 ON CONFLICT (id) DO UPDATE SET customers_count = general_stats.customers_count + EXCLUDED.customers_count,
		 updated_at = NOW()`, delta)
	return mapError(err)
}

func (t *pgTx) SetCustomersCount(ctx context.Context, n int) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO general_stats(id, customers_count, updated_at) VALUES(1, $1, NOW())
		 ON CONFLICT (id) DO UPDATE SET customers_count = EXCLUDED.customers_count, updated_at = NOW()`, n)
	return mapError(err)
}

func (t *pgTx) NextCounter(ctx context.Context, key string) (int, error) {
	var n int
	err := t.q.QueryRow(ctx,
		`INSERT INTO counters(key, value) VALUES($1, 1)
		 ON CONFLICT (key) DO UPDATE SET value = counters.value + 1
		 RETURNING value`, key).Scan(&n)
	return n, mapError(err)
}
