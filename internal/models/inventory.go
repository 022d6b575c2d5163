package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ItemTypeRaw      = "raw"
	ItemTypeFinished = "finished"
)

type InventoryItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"` // raw or finished
	Unit         string          `json:"unit"`
	Color        string          `json:"color"`
	Quantity     int             `json:"quantity"`
	MinQuantity  int             `json:"min_quantity"`
	Cost         decimal.Decimal `json:"cost"`
	SellingPrice decimal.Decimal `json:"selling_price"` // finished goods only
	Barcode      string          `json:"barcode"`
	BranchID     string          `json:"branch_id"`
	BranchName   string          `json:"branch_name"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsLowStock reports the low-stock alert condition
func (i *InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.MinQuantity
}

// SameProduct reports whether other is the same stock-keeping unit,
// regardless of branch
func (i *InventoryItem) SameProduct(other *InventoryItem) bool {
	return i.Name == other.Name && i.Type == other.Type && i.Unit == other.Unit && i.Color == other.Color
}

func ValidItemType(t string) bool {
	return t == ItemTypeRaw || t == ItemTypeFinished
}

// CreateItemRequest represents the request body for adding stock
type CreateItemRequest struct {
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Unit         string          `json:"unit"`
	Color        string          `json:"color"`
	Quantity     int             `json:"quantity"`
	MinQuantity  int             `json:"min_quantity"`
	Cost         decimal.Decimal `json:"cost"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Barcode      string          `json:"barcode"` // generated when empty
	BranchID     string          `json:"branch_id"`
}

// UpdateItemRequest overwrites every editable field of an item
type UpdateItemRequest struct {
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Unit         string          `json:"unit"`
	Color        string          `json:"color"`
	Quantity     int             `json:"quantity"`
	MinQuantity  int             `json:"min_quantity"`
	Cost         decimal.Decimal `json:"cost"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Barcode      string          `json:"barcode"`
}

type TransferRequest struct {
	ItemID     string `json:"item_id"`
	ToBranchID string `json:"to_branch_id"`
	Quantity   int    `json:"quantity"`
}

// StockTransfer is the audit row written with every cross-branch transfer
type StockTransfer struct {
	ID           string    `json:"id"`
	SourceItemID string    `json:"source_item_id"`
	TargetItemID string    `json:"target_item_id"`
	ItemName     string    `json:"item_name"`
	FromBranchID string    `json:"from_branch_id"`
	ToBranchID   string    `json:"to_branch_id"`
	Quantity     int       `json:"quantity"`
	User         string    `json:"user"`
	CreatedAt    time.Time `json:"created_at"`
}

type InventorySummary struct {
	BranchID      string          `json:"branch_id,omitempty"`
	ItemCount     int             `json:"item_count"`
	TotalUnits    int             `json:"total_units"`
	StockValue    decimal.Decimal `json:"stock_value"`
	LowStockCount int             `json:"low_stock_count"`
}
