package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is keyed by normalized phone; there is no synthetic id
type Customer struct {
	Phone         string          `json:"phone"`
	Name          string          `json:"name"`
	OrderCount    int             `json:"order_count"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	LastOrderDate *time.Time      `json:"last_order_date,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateCustomerRequest represents the request body for creating a customer
type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UpdateCustomerRequest represents the request body for updating a customer
type UpdateCustomerRequest struct {
	Name string `json:"name"`
}

// ImportResult summarises a spreadsheet import
type ImportResult struct {
	Rows           int `json:"rows"`
	Imported       int `json:"imported"`
	Created        int `json:"created"`
	Skipped        int `json:"skipped"`
	Batches        int `json:"batches"`
	CustomersCount int `json:"customers_count"`
}

// GeneralStats holds store-wide counters
type GeneralStats struct {
	CustomersCount int       `json:"customers_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}
