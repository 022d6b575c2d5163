package models

import "time"

const (
	BranchTypeStore     = "store"
	BranchTypeWarehouse = "warehouse"
)

type Branch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type BranchRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Type     string `json:"type"`
}
