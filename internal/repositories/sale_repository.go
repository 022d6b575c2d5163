package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tailor-pos/internal/models"
	"tailor-pos/internal/store"

	"github.com/shopspring/decimal"
)

const saleColumns = `id, order_id, type, customer_name, customer_phone, items, total_amount, total_cost,
	amount_paid, remaining_amount, status, delivery_date, delivery_time, notes, branch_id, branch_name,
	operator, created_at, updated_at`

func scanSale(row scanner) (*models.Sale, error) {
	var s models.Sale
	var items []byte
	err := row.Scan(&s.ID, &s.OrderID, &s.Type, &s.CustomerName, &s.CustomerPhone, &items, &s.TotalAmount,
		&s.TotalCost, &s.AmountPaid, &s.RemainingAmount, &s.Status, &s.DeliveryDate, &s.DeliveryTime,
		&s.Notes, &s.BranchID, &s.BranchName, &s.User, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	if err := json.Unmarshal(items, &s.Items); err != nil {
		return nil, fmt.Errorf("decode items of sale %s: %w", s.ID, err)
	}
	return &s, nil
}

func getSale(ctx context.Context, q querier, id string) (*models.Sale, error) {
	return scanSale(q.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
}

func saleQuerySQL(q store.SaleQuery) (string, []any) {
	var a args
	var where []string
	if q.BranchID != "" {
		where = append(where, "branch_id = "+a.add(q.BranchID))
	}
	if q.Status != "" {
		where = append(where, "status = "+a.add(q.Status))
	}
	if q.Type != "" {
		where = append(where, "type = "+a.add(q.Type))
	}
	if q.CustomerPhone != "" {
		where = append(where, "customer_phone = "+a.add(q.CustomerPhone))
	}
	if q.AfterID != "" {
		where = append(where, "(created_at, id) < (SELECT created_at, id FROM sales WHERE id = "+a.add(q.AfterID)+")")
	}

	sql := `SELECT ` + saleColumns + ` FROM sales`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		sql += ` LIMIT ` + a.add(q.Limit)
	}
	return sql, a
}

func (s *Store) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	return getSale(ctx, s.DB, id)
}

func (s *Store) QuerySales(ctx context.Context, q store.SaleQuery) ([]models.Sale, error) {
	if q.AfterID != "" {
		ok, err := exists(ctx, s.DB, "sales", "id", q.AfterID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, store.ErrNotFound
		}
	}
	sql, params := saleQuerySQL(q)
	rows, err := s.DB.Query(ctx, sql, params...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	sales := make([]models.Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	return sales, mapError(rows.Err())
}

func (s *Store) DailyStatsBetween(ctx context.Context, startDay, endDay string) ([]models.DailyStat, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT date, total_sales, total_cost, order_count, updated_at
		 FROM daily_stats WHERE date >= $1 AND date <= $2 ORDER BY date`, startDay, endDay)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	days := make([]models.DailyStat, 0)
	for rows.Next() {
		var d models.DailyStat
		if err := rows.Scan(&d.Date, &d.TotalSales, &d.TotalCost, &d.OrderCount, &d.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		days = append(days, d)
	}
	return days, mapError(rows.Err())
}

// ============================================
// Tx
// ============================================

func (t *pgTx) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	return getSale(ctx, t.q, id)
}

func (t *pgTx) CreateSale(ctx context.Context, s *models.Sale) error {
	items, err := json.Marshal(s.Items)
	if err != nil {
		return err
	}
	_, err = t.q.Exec(ctx,
		`INSERT INTO sales(`+saleColumns+`)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		s.ID, s.OrderID, s.Type, s.CustomerName, s.CustomerPhone, items, s.TotalAmount, s.TotalCost,
		s.AmountPaid, s.RemainingAmount, s.Status, s.DeliveryDate, s.DeliveryTime, s.Notes, s.BranchID,
		s.BranchName, s.User, s.CreatedAt, s.UpdatedAt)
	return mapError(err)
}

func (t *pgTx) UpdateSaleStatus(ctx context.Context, id, status string, at time.Time) error {
	return affectedOne(t.q.Exec(ctx, `UPDATE sales SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at))
}

func (t *pgTx) IncrementDailyStat(ctx context.Context, day string, sales, cost decimal.Decimal, orders int, at time.Time) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO daily_stats(date, total_sales, total_cost, order_count, updated_at)
		 VALUES($1, $2, $3, $4, $5)
		 ON CONFLICT (date) DO UPDATE SET
		   total_sales = daily_stats.total_sales + EXCLUDED.total_sales,
		   total_cost  = daily_stats.total_cost + EXCLUDED.total_cost,
		   order_count = daily_stats.order_count + EXCLUDED.order_count,
		   updated_at  = EXCLUDED.updated_at`,
		day, sales, cost, orders, at)
	return mapError(err)
}
