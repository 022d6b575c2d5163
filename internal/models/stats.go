package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyStat accumulates every checkout of one calendar day
type DailyStat struct {
	Date       string          `json:"date"` // YYYY-MM-DD
	TotalSales decimal.Decimal `json:"total_sales"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	OrderCount int             `json:"order_count"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Report figures are exact; exports round them for display
type Report struct {
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	NetProfit       decimal.Decimal `json:"net_profit"`
	ProfitMarginPct decimal.Decimal `json:"profit_margin_pct"`
	OrderCount      int             `json:"order_count"`
	AvgOrderValue   decimal.Decimal `json:"avg_order_value"`
	Days            []DailyStat     `json:"days"`
}
