package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tailor-pos/internal/models"
	"tailor-pos/internal/notify"
	"tailor-pos/internal/pagination"
	"tailor-pos/internal/phone"
	"tailor-pos/internal/store"
	"tailor-pos/internal/timeutil"
)

type SaleFilter struct {
	BranchID      string `json:"branch_id"`
	Status        string `json:"status"`
	Type          string `json:"type"`
	CustomerPhone string `json:"customer_phone"`
	PageSize      int    `json:"page_size"`
}

// SalesService is the read side of the ledger plus the one mutation a
// sale allows: moving a service order through its workflow
type SalesService struct {
	Store    store.Store
	Events   notify.Publisher
	Now      func() time.Time
	PageSize int
	Retry    RetryPolicy
}

func NewSalesService(st store.Store, events notify.Publisher) *SalesService {
	return &SalesService{
		Store:    st,
		Events:   events,
		Now:      timeutil.Now,
		PageSize: 15,
		Retry:    defaultRetry,
	}
}

// List returns sales newest first
func (s *SalesService) List(ctx context.Context, f SaleFilter, cursor string) (pagination.Page[models.Sale], error) {
	var page pagination.Page[models.Sale]
	if f.Status != "" && !models.ValidSaleStatus(f.Status) {
		return page, invalid("status", "unknown status %q", f.Status)
	}
	if f.Type != "" && f.Type != models.SaleTypeRetail && f.Type != models.SaleTypeService {
		return page, invalid("type", "unknown sale type %q", f.Type)
	}
	size := f.PageSize
	if size <= 0 {
		size = s.PageSize
	}
	if size > 100 {
		size = 100
	}
	customer := ""
	if f.CustomerPhone != "" {
		customer = phone.Normalize(f.CustomerPhone)
	}

	sig := fmt.Sprintf("sales|%s|%s|%s|%s", f.BranchID, f.Status, f.Type, customer)
	afterID, err := pagination.Decode(cursor, sig)
	if err != nil {
		return page, invalid("cursor", "cursor does not belong to this list, reload the first page")
	}

	rows, err := s.Store.QuerySales(ctx, store.SaleQuery{
		BranchID:      f.BranchID,
		Status:        f.Status,
		Type:          f.Type,
		CustomerPhone: customer,
		AfterID:       afterID,
		Limit:         size + 1,
	})
	if errors.Is(err, store.ErrNotFound) {
		return page, pagination.ErrStaleCursor
	}
	if err != nil {
		return page, err
	}
	return pagination.Trim(rows, size, func(s models.Sale) string { return s.ID }, sig), nil
}

func (s *SalesService) Get(ctx context.Context, id string) (*models.Sale, error) {
	return s.Store.GetSale(ctx, id)
}

// UpdateStatus moves a service order along pending, in_progress, ready,
// delivered, or cancels it. Retail sales never change.
func (s *SalesService) UpdateStatus(ctx context.Context, id, status string) (*models.Sale, error) {
	if !models.ValidSaleStatus(status) {
		return nil, invalid("status", "unknown status %q", status)
	}
	var sale *models.Sale
	_, err := runTx(ctx, s.Store, s.Retry, "Sales", func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetSale(ctx, id)
		if err != nil {
			return err
		}
		if !models.CanTransition(cur.Type, cur.Status, status) {
			if cur.Type != models.SaleTypeService {
				return invalid("status", "retail sales are final")
			}
			return invalid("status", "cannot move an order from %s to %s", cur.Status, status)
		}
		now := s.Now()
		if err := tx.UpdateSaleStatus(ctx, id, status, now); err != nil {
			return err
		}
		cur.Status = status
		cur.UpdatedAt = now
		sale = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	if status == models.SaleStatusDelivered && sale.RemainingAmount.IsPositive() {
		log.Printf("[Sales] order %s delivered with %s outstanding", sale.OrderID, sale.RemainingAmount.StringFixed(2))
	}
	publishChanges(ctx, s.Events, notify.Event{Type: notify.SaleUpdated, BranchID: sale.BranchID, IDs: []string{sale.ID}})
	return sale, nil
}
