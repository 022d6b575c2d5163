package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tailor-pos/internal/models"
	"tailor-pos/internal/store"
)

const itemColumns = `id, name, type, unit, color, quantity, min_quantity, cost, selling_price,
	barcode, branch_id, branch_name, created_at, updated_at`

var itemOrderColumns = map[string]string{
	store.ItemSortCreatedAt:    "created_at",
	store.ItemSortName:         "name",
	store.ItemSortQuantity:     "quantity",
	store.ItemSortCost:         "cost",
	store.ItemSortSellingPrice: "selling_price",
	store.ItemSortBarcode:      "barcode",
}

func scanItem(row scanner) (*models.InventoryItem, error) {
	var it models.InventoryItem
	err := row.Scan(&it.ID, &it.Name, &it.Type, &it.Unit, &it.Color, &it.Quantity, &it.MinQuantity,
		&it.Cost, &it.SellingPrice, &it.Barcode, &it.BranchID, &it.BranchName, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &it, nil
}

func getItem(ctx context.Context, q querier, id string) (*models.InventoryItem, error) {
	return scanItem(q.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id))
}

// itemQuerySQL builds one keyset page. The anchor row is compared on the
// (order column, id) pair so ties never skip or repeat a record.
func itemQuerySQL(q store.ItemQuery) (string, []any, error) {
	col, ok := itemOrderColumns[q.OrderBy]
	if !ok {
		col = "created_at"
	}
	var a args
	var where []string
	if q.BranchID != "" {
		where = append(where, "branch_id = "+a.add(q.BranchID))
	}
	if q.Type != "" {
		where = append(where, "type = "+a.add(q.Type))
	}
	if q.Prefix != "" {
		switch q.PrefixField {
		case store.ItemSortBarcode:
			where = append(where, "barcode LIKE "+a.add(likePrefix(q.Prefix)))
		case store.ItemSortName:
			where = append(where, "name LIKE "+a.add(likePrefix(q.Prefix)))
		default:
			return "", nil, fmt.Errorf("unsupported prefix field %q", q.PrefixField)
		}
	}
	dir, cmp := direction(q.Desc)
	if q.AfterID != "" {
		p := a.add(q.AfterID)
		where = append(where, fmt.Sprintf("(%s, id) %s (SELECT %s, id FROM inventory_items WHERE id = %s)", col, cmp, col, p))
	}

	sql := `SELECT ` + itemColumns + ` FROM inventory_items`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
	if q.Limit > 0 {
		sql += " LIMIT " + a.add(q.Limit)
	}
	return sql, a, nil
}

func collectItems(ctx context.Context, q querier, sql string, params ...any) ([]models.InventoryItem, error) {
	rows, err := q.Query(ctx, sql, params...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	items := make([]models.InventoryItem, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, mapError(rows.Err())
}

func (s *Store) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	return getItem(ctx, s.DB, id)
}

func (s *Store) QueryItems(ctx context.Context, q store.ItemQuery) ([]models.InventoryItem, error) {
	if q.AfterID != "" {
		ok, err := exists(ctx, s.DB, "inventory_items", "id", q.AfterID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, store.ErrNotFound
		}
	}
	sql, params, err := itemQuerySQL(q)
	if err != nil {
		return nil, err
	}
	return collectItems(ctx, s.DB, sql, params...)
}

func (s *Store) FindItemByBarcode(ctx context.Context, branchID, barcode string) (*models.InventoryItem, error) {
	if branchID == "" {
		return scanItem(s.DB.QueryRow(ctx,
			`SELECT `+itemColumns+` FROM inventory_items WHERE barcode = $1 ORDER BY created_at LIMIT 1`, barcode))
	}
	return scanItem(s.DB.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE branch_id = $1 AND barcode = $2 ORDER BY created_at LIMIT 1`,
		branchID, barcode))
}

func (s *Store) ListTransfers(ctx context.Context, branchID string, limit int) ([]models.StockTransfer, error) {
	sql := `SELECT id, source_item_id, target_item_id, item_name, from_branch_id, to_branch_id, quantity, operator, created_at
		FROM stock_transfers`
	var a args
	if branchID != "" {
		p := a.add(branchID)
		sql += ` WHERE from_branch_id = ` + p + ` OR to_branch_id = ` + p
	}
	sql += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		sql += ` LIMIT ` + a.add(limit)
	}

	rows, err := s.DB.Query(ctx, sql, a...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	transfers := make([]models.StockTransfer, 0)
	for rows.Next() {
		var t models.StockTransfer
		if err := rows.Scan(&t.ID, &t.SourceItemID, &t.TargetItemID, &t.ItemName, &t.FromBranchID,
			&t.ToBranchID, &t.Quantity, &t.User, &t.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		transfers = append(transfers, t)
	}
	return transfers, mapError(rows.Err())
}

// ============================================
// Tx
// ============================================

func (t *pgTx) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	return getItem(ctx, t.q, id)
}

// AdjustItemQuantity only updates when the result stays non-negative, so a
// concurrent sale can never push stock below zero
func (t *pgTx) AdjustItemQuantity(ctx context.Context, id string, delta int) (*models.InventoryItem, error) {
	it, err := scanItem(t.q.QueryRow(ctx,
		`UPDATE inventory_items SET quantity = quantity + $2, updated_at = NOW()
		 WHERE id = $1 AND quantity + $2 >= 0
		 RETURNING `+itemColumns, id, delta))
	if errors.Is(err, store.ErrNotFound) {
		ok, existsErr := exists(ctx, t.q, "inventory_items", "id", id)
		if existsErr != nil {
			return nil, existsErr
		}
		if ok {
			return nil, store.ErrInsufficientStock
		}
	}
	return it, err
}

func (t *pgTx) CreateItem(ctx context.Context, it *models.InventoryItem) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO inventory_items(`+itemColumns+`)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		it.ID, it.Name, it.Type, it.Unit, it.Color, it.Quantity, it.MinQuantity, it.Cost, it.SellingPrice,
		it.Barcode, it.BranchID, it.BranchName, it.CreatedAt, it.UpdatedAt)
	return mapError(err)
}

func (t *pgTx) UpdateItem(ctx context.Context, it *models.InventoryItem) error {
	return affectedOne(t.q.Exec(ctx,
		`UPDATE inventory_items SET name=$2, type=$3, unit=$4, color=$5, quantity=$6, min_quantity=$7,
		 cost=$8, selling_price=$9, barcode=$10, branch_id=$11, branch_name=$12, updated_at=$13
		 WHERE id=$1`,
		it.ID, it.Name, it.Type, it.Unit, it.Color, it.Quantity, it.MinQuantity,
		it.Cost, it.SellingPrice, it.Barcode, it.BranchID, it.BranchName, it.UpdatedAt))
}

func (t *pgTx) DeleteItem(ctx context.Context, id string) error {
	return affectedOne(t.q.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id))
}

func (t *pgTx) FindEquivalentItem(ctx context.Context, branchID string, it *models.InventoryItem) (*models.InventoryItem, error) {
	return scanItem(t.q.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM inventory_items
		 WHERE branch_id = $1 AND name = $2 AND type = $3 AND unit = $4 AND color = $5
		 ORDER BY created_at LIMIT 1`,
		branchID, it.Name, it.Type, it.Unit, it.Color))
}

func (t *pgTx) CreateTransfer(ctx context.Context, tr *models.StockTransfer) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO stock_transfers(id, source_item_id, target_item_id, item_name, from_branch_id, to_branch_id, quantity, operator, created_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tr.ID, tr.SourceItemID, tr.TargetItemID, tr.ItemName, tr.FromBranchID, tr.ToBranchID, tr.Quantity, tr.User, tr.CreatedAt)
	return mapError(err)
}
