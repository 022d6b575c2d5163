package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ServiceTypeTailoring = "tailoring"
	ServiceTypeRepair    = "repair"
	ServiceTypeDryClean  = "dry_clean"
)

// Service is a catalog entry sold through the service checkout
type Service struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

type ServiceRequest struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func ValidServiceType(t string) bool {
	switch t {
	case ServiceTypeTailoring, ServiceTypeRepair, ServiceTypeDryClean:
		return true
	}
	return false
}
