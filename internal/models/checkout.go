package models

import "github.com/shopspring/decimal"

// CheckoutRequest is one cart submitted from a POS terminal
type CheckoutRequest struct {
	Type         string           `json:"type"` // sale or service_order
	Lines        []CartLine       `json:"lines"`
	Customer     *CustomerRef     `json:"customer,omitempty"`
	BranchID     string           `json:"branch_id"`
	Operator     string           `json:"-"`
	AmountPaid   *decimal.Decimal `json:"amount_paid,omitempty"` // service orders; nil means paid in full
	DeliveryDate string           `json:"delivery_date,omitempty"`
	DeliveryTime string           `json:"delivery_time,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

type CartLine struct {
	ItemID    string          `json:"item_id"` // inventory item for products, catalog service for services
	Kind      string          `json:"kind"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"` // zero means catalog price
	Materials []MaterialLine  `json:"materials,omitempty"`
}

type MaterialLine struct {
	MaterialID string `json:"material_id"`
	QtyPerUnit int    `json:"qty_per_unit"`
}

type CustomerRef struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	IsNew bool   `json:"is_new"`
}

type CheckoutResponse struct {
	Sale     *Sale  `json:"sale"`
	State    string `json:"state"`
	Attempts int    `json:"attempts"`
}
