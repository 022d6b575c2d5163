package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SaleTypeRetail  = "sale"
	SaleTypeService = "service_order"
)

const (
	LineKindProduct = "product"
	LineKindService = "service"
)

const (
	SaleStatusCompleted  = "completed"
	SaleStatusPending    = "pending"
	SaleStatusInProgress = "in_progress"
	SaleStatusReady      = "ready"
	SaleStatusDelivered  = "delivered"
	SaleStatusCancelled  = "cancelled"
)

// Sale is written once per checkout. Status is the only field that changes afterwards.
type Sale struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id,omitempty"`
	Type            string          `json:"type"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	Items           []SaleItem      `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          string          `json:"status"`
	DeliveryDate    string          `json:"delivery_date,omitempty"`
	DeliveryTime    string          `json:"delivery_time,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	BranchID        string          `json:"branch_id"`
	BranchName      string          `json:"branch_name"`
	User            string          `json:"user"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type SaleItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Kind          string          `json:"kind"`
	Price         decimal.Decimal `json:"price"`
	Qty           int             `json:"qty"`
	Cost          decimal.Decimal `json:"cost"`
	UsedMaterials []UsedMaterial  `json:"used_materials,omitempty"`
}

type UsedMaterial struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	QtyPerUnit int    `json:"qty_per_unit"`
	TotalQty   int    `json:"total_qty"`
}

// serviceFlow lists the forward transitions of a service order
var serviceFlow = map[string]string{
	SaleStatusPending:    SaleStatusInProgress,
	SaleStatusInProgress: SaleStatusReady,
	SaleStatusReady:      SaleStatusDelivered,
}

// CanTransition reports whether a sale of the given type may move from one
// status to another. Retail sales are final on creation.
func CanTransition(saleType, from, to string) bool {
	if saleType != SaleTypeService {
		return false
	}
	if to == SaleStatusCancelled {
		return from != SaleStatusDelivered && from != SaleStatusCancelled
	}
	return serviceFlow[from] == to
}

func ValidSaleStatus(s string) bool {
	switch s {
	case SaleStatusCompleted, SaleStatusPending, SaleStatusInProgress,
		SaleStatusReady, SaleStatusDelivered, SaleStatusCancelled:
		return true
	}
	return false
}

type UpdateSaleStatusRequest struct {
	Status string `json:"status"`
}
