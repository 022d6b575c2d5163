package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"tailor-pos/internal/metrics"
	"tailor-pos/internal/models"
	"tailor-pos/internal/notify"
	"tailor-pos/internal/phone"
	"tailor-pos/internal/sequence"
	"tailor-pos/internal/store"
	"tailor-pos/internal/timeutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutState is where a checkout attempt currently stands
type CheckoutState int

const (
	CheckoutIdle CheckoutState = iota
	CheckoutValidating
	CheckoutCommitting
	CheckoutCommitted
	CheckoutFailed
)

func (s CheckoutState) String() string {
	switch s {
	case CheckoutValidating:
		return "validating"
	case CheckoutCommitting:
		return "committing"
	case CheckoutCommitted:
		return "committed"
	case CheckoutFailed:
		return "failed"
	default:
		return "idle"
	}
}

type CheckoutResult struct {
	Sale     *models.Sale
	State    CheckoutState
	Attempts int
}

type CheckoutService struct {
	Store  store.Store
	Events notify.Publisher
	Now    func() time.Time

	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
	WalkInName  string
	WalkInPhone string

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewCheckoutService(st store.Store, events notify.Publisher) *CheckoutService {
	return &CheckoutService{
		Store:       st,
		Events:      events,
		Now:         timeutil.Now,
		MaxAttempts: 5,
		Backoff:     50 * time.Millisecond,
		Timeout:     15 * time.Second,
		WalkInName:  "عميل نقدي",
		WalkInPhone: "Walk-in",
		inflight:    make(map[string]struct{}),
	}
}

// acquire takes the per-terminal slot; the returned func releases it
func (s *CheckoutService) acquire(operator string) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == nil {
		s.inflight = make(map[string]struct{})
	}
	if _, busy := s.inflight[operator]; busy {
		return nil, false
	}
	s.inflight[operator] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, operator)
		s.mu.Unlock()
	}, true
}

// Checkout validates the cart, then commits stock decrements, the customer
// upsert, the sale and the daily stats as one transaction. Lost races are
// re-validated from scratch and retried.
func (s *CheckoutService) Checkout(ctx context.Context, req *models.CheckoutRequest) (*CheckoutResult, error) {
	result := &CheckoutResult{State: CheckoutIdle}
	start := time.Now()

	release, ok := s.acquire(req.Operator)
	if !ok {
		metrics.CheckoutTotal.WithLabelValues(req.Type, "busy").Inc()
		return result, ErrCheckoutInProgress
	}
	defer release()

	result.State = CheckoutValidating
	saleType, err := validateCart(req)
	if err != nil {
		result.State = CheckoutFailed
		metrics.CheckoutTotal.WithLabelValues(req.Type, "invalid").Inc()
		return result, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	maxAttempts := s.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var touched []models.InventoryItem
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		result.State = CheckoutValidating

		var sale *models.Sale
		sale, touched, err = s.commit(ctx, req, saleType, result)
		if err == nil {
			result.Sale = sale
			result.State = CheckoutCommitted
			break
		}
		if !retryable(err) || attempt == maxAttempts {
			break
		}
		log.Printf("[Checkout] attempt %d for %s lost a race, retrying: %v", attempt, req.Operator, err)
		if !sleepCtx(ctx, s.Backoff*time.Duration(attempt)) {
			err = ctx.Err()
			break
		}
	}

	metrics.CheckoutAttempts.Observe(float64(result.Attempts))
	metrics.CheckoutDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		result.State = CheckoutFailed
		switch {
		case errors.Is(err, ErrValidation), errors.Is(err, store.ErrNotFound):
			metrics.CheckoutTotal.WithLabelValues(saleType, "invalid").Inc()
			return result, err
		case retryable(err):
			metrics.CheckoutTotal.WithLabelValues(saleType, "conflict").Inc()
		default:
			metrics.CheckoutTotal.WithLabelValues(saleType, "failed").Inc()
		}
		log.Printf("[Checkout] %s checkout by %s failed after %d attempt(s): %v", saleType, req.Operator, result.Attempts, err)
		return result, fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}

	metrics.CheckoutTotal.WithLabelValues(saleType, "committed").Inc()
	log.Printf("[Checkout] %s %s committed by %s: total=%s attempts=%d",
		saleType, result.Sale.ID, req.Operator, result.Sale.TotalAmount.StringFixed(2), result.Attempts)

	s.afterCommit(ctx, result.Sale, touched)
	return result, nil
}

// validateCart is the static pass run before touching the store.
// It returns the sale type implied by the cart.
func validateCart(req *models.CheckoutRequest) (string, error) {
	if len(req.Lines) == 0 {
		return "", invalid("lines", "cart is empty")
	}
	if strings.TrimSpace(req.BranchID) == "" {
		return "", invalid("branch_id", "branch is required")
	}

	saleType := req.Type
	for i, line := range req.Lines {
		n := i + 1
		var lineType string
		switch line.Kind {
		case models.LineKindProduct:
			lineType = models.SaleTypeRetail
		case models.LineKindService:
			lineType = models.SaleTypeService
		default:
			return "", invalidLine(n, "kind", "unknown line kind %q", line.Kind)
		}
		if saleType == "" {
			saleType = lineType
		} else if saleType != lineType {
			return "", invalidLine(n, "kind", "products and services cannot be sold in the same checkout")
		}
		if line.ItemID == "" {
			return "", invalidLine(n, "item_id", "item is required")
		}
		if line.Qty <= 0 {
			return "", invalidLine(n, "qty", "quantity must be greater than zero")
		}
		if line.UnitPrice.IsNegative() {
			return "", invalidLine(n, "unit_price", "price cannot be negative")
		}
		if line.Kind == models.LineKindProduct && len(line.Materials) > 0 {
			return "", invalidLine(n, "materials", "materials only apply to service lines")
		}
		for _, m := range line.Materials {
			if m.MaterialID == "" {
				return "", invalidLine(n, "materials", "material is required")
			}
			if m.QtyPerUnit <= 0 {
				return "", invalidLine(n, "materials", "material quantity per unit must be greater than zero")
			}
		}
	}

	if saleType == models.SaleTypeService {
		if req.DeliveryDate != "" {
			if _, err := timeutil.ParseDate(req.DeliveryDate); err != nil {
				return "", invalid("delivery_date", "delivery date must be YYYY-MM-DD")
			}
		}
		if req.DeliveryTime != "" {
			if _, err := time.Parse(timeutil.TimeLayout, req.DeliveryTime); err != nil {
				return "", invalid("delivery_time", "delivery time must be HH:MM")
			}
		}
		if req.AmountPaid != nil {
			if req.AmountPaid.IsNegative() {
				return "", invalid("amount_paid", "amount paid cannot be negative")
			}
			// with every price explicit the total is already known
			if total, ok := explicitTotal(req.Lines); ok && req.AmountPaid.GreaterThan(total) {
				return "", invalid("amount_paid", "amount paid %s exceeds total %s", req.AmountPaid.StringFixed(2), total.StringFixed(2))
			}
		}
	}

	if req.Customer != nil && req.Customer.IsNew {
		if strings.TrimSpace(req.Customer.Name) == "" {
			return "", invalid("customer.name", "customer name is required")
		}
		if !phone.Valid(phone.Normalize(req.Customer.Phone)) {
			return "", invalid("customer.phone", "phone number must have at least 10 digits")
		}
	}
	return saleType, nil
}

func explicitTotal(lines []models.CartLine) (decimal.Decimal, bool) {
	total := decimal.Zero
	for _, l := range lines {
		if l.UnitPrice.IsZero() {
			return total, false
		}
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	return total, true
}

// demand is the stock one checkout needs from a single inventory record
type demand struct {
	item *models.InventoryItem
	qty  int
	line int // first cart line asking for it
}

// commit runs one attempt. Every read happens before the first write.
func (s *CheckoutService) commit(ctx context.Context, req *models.CheckoutRequest, saleType string, result *CheckoutResult) (*models.Sale, []models.InventoryItem, error) {
	var sale *models.Sale
	var touched []models.InventoryItem

	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		touched = nil
		now := s.Now()

		branch, err := tx.GetBranch(ctx, req.BranchID)
		if errors.Is(err, store.ErrNotFound) {
			return invalid("branch_id", "branch %s does not exist", req.BranchID)
		}
		if err != nil {
			return err
		}

		demands := make(map[string]*demand)
		need := func(line int, item *models.InventoryItem, qty int) {
			d, ok := demands[item.ID]
			if !ok {
				d = &demand{item: item, line: line}
				demands[item.ID] = d
			}
			d.qty += qty
		}

		items := make([]models.SaleItem, 0, len(req.Lines))
		total := decimal.Zero
		totalCost := decimal.Zero

		for i, line := range req.Lines {
			n := i + 1
			qty := decimal.NewFromInt(int64(line.Qty))
			si := models.SaleItem{ID: line.ItemID, Kind: line.Kind, Qty: line.Qty}

			if line.Kind == models.LineKindProduct {
				item, err := s.branchItem(ctx, tx, n, line.ItemID, req.BranchID)
				if err != nil {
					return err
				}
				need(n, item, line.Qty)
				si.Name = item.Name
				si.Price = line.UnitPrice
				if si.Price.IsZero() {
					si.Price = item.SellingPrice
				}
				si.Cost = item.Cost.Mul(qty)
			} else {
				svc, err := tx.GetService(ctx, line.ItemID)
				if errors.Is(err, store.ErrNotFound) {
					return invalidLine(n, "item_id", "service %s does not exist", line.ItemID)
				}
				if err != nil {
					return err
				}
				si.Name = svc.Name
				si.Price = line.UnitPrice
				if si.Price.IsZero() {
					si.Price = svc.Price
				}
				si.Cost = decimal.Zero
				for _, m := range line.Materials {
					mat, err := s.branchItem(ctx, tx, n, m.MaterialID, req.BranchID)
					if err != nil {
						return err
					}
					used := line.Qty * m.QtyPerUnit
					need(n, mat, used)
					si.Cost = si.Cost.Add(mat.Cost.Mul(decimal.NewFromInt(int64(used))))
					si.UsedMaterials = append(si.UsedMaterials, models.UsedMaterial{
						ID:         mat.ID,
						Name:       mat.Name,
						QtyPerUnit: m.QtyPerUnit,
						TotalQty:   used,
					})
				}
			}

			total = total.Add(si.Price.Mul(qty))
			totalCost = totalCost.Add(si.Cost)
			items = append(items, si)
		}

		// deterministic order for both the error blamed and the writes
		ordered := make([]*demand, 0, len(demands))
		for _, d := range demands {
			ordered = append(ordered, d)
		}
		sort.Slice(ordered, func(i, j int) bool {
			if ordered[i].line != ordered[j].line {
				return ordered[i].line < ordered[j].line
			}
			return ordered[i].item.ID < ordered[j].item.ID
		})
		for _, d := range ordered {
			if d.qty > d.item.Quantity {
				return invalidLine(d.line, "qty", "only %d %s of %s in stock, %d requested",
					d.item.Quantity, unitOrPieces(d.item.Unit), d.item.Name, d.qty)
			}
		}

		paid := total
		if saleType == models.SaleTypeService && req.AmountPaid != nil {
			paid = *req.AmountPaid
			if paid.GreaterThan(total) {
				return invalid("amount_paid", "amount paid %s exceeds total %s", paid.StringFixed(2), total.StringFixed(2))
			}
		}

		custName, custPhone := s.WalkInName, s.WalkInPhone
		var existing *models.Customer
		if req.Customer != nil && strings.TrimSpace(req.Customer.Phone) != "" {
			custPhone = phone.Normalize(req.Customer.Phone)
			custName = strings.TrimSpace(req.Customer.Name)
			c, err := tx.GetCustomer(ctx, custPhone)
			switch {
			case err == nil:
				existing = c
				custName = c.Name
			case errors.Is(err, store.ErrNotFound):
				if !phone.Valid(custPhone) {
					return invalid("customer.phone", "phone number must have at least 10 digits")
				}
				if custName == "" {
					return invalid("customer.name", "customer name is required")
				}
			default:
				return err
			}
		}

		result.State = CheckoutCommitting

		for _, d := range ordered {
			updated, err := tx.AdjustItemQuantity(ctx, d.item.ID, -d.qty)
			if errors.Is(err, store.ErrInsufficientStock) {
				return invalidLine(d.line, "qty", "insufficient stock for %s", d.item.Name)
			}
			if err != nil {
				return err
			}
			touched = append(touched, *updated)
		}

		if custPhone != s.WalkInPhone {
			if existing != nil {
				if err := tx.IncrementCustomerTotals(ctx, custPhone, 1, total, now); err != nil {
					return err
				}
			} else {
				last := now
				if err := tx.CreateCustomer(ctx, &models.Customer{
					Phone:         custPhone,
					Name:          custName,
					OrderCount:    1,
					TotalSpent:    total,
					LastOrderDate: &last,
					CreatedAt:     now,
					UpdatedAt:     now,
				}); err != nil {
					if errors.Is(err, store.ErrDuplicate) {
						// created concurrently; rerun against the new record
						return store.ErrConflict
					}
					return err
				}
				if err := tx.IncrementCustomersCount(ctx, 1); err != nil {
					return err
				}
			}
		}

		sale = &models.Sale{
			ID:              uuid.NewString(),
			Type:            saleType,
			CustomerName:    custName,
			CustomerPhone:   custPhone,
			Items:           items,
			TotalAmount:     total,
			TotalCost:       totalCost,
			AmountPaid:      paid,
			RemainingAmount: total.Sub(paid),
			Status:          models.SaleStatusCompleted,
			BranchID:        branch.ID,
			BranchName:      branch.Name,
			User:            req.Operator,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if saleType == models.SaleTypeService {
			_, code, err := sequence.Allocate(ctx, tx, sequence.ScopeOrder, now)
			if err != nil {
				return err
			}
			sale.OrderID = code
			sale.Status = models.SaleStatusPending
			sale.DeliveryDate = req.DeliveryDate
			sale.DeliveryTime = req.DeliveryTime
			sale.Notes = req.Notes
		}
		if err := tx.CreateSale(ctx, sale); err != nil {
			return err
		}

		return tx.IncrementDailyStat(ctx, timeutil.DayKey(now), total, totalCost, 1, now)
	})
	if err != nil {
		return nil, nil, err
	}
	return sale, touched, nil
}

// branchItem loads an inventory record and checks it is stocked at branchID
func (s *CheckoutService) branchItem(ctx context.Context, tx store.Tx, line int, id, branchID string) (*models.InventoryItem, error) {
	item, err := tx.GetItem(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("line %d: item %s: %w", line, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if item.BranchID != branchID {
		return nil, invalidLine(line, "item_id", "%s is not stocked at this branch", item.Name)
	}
	return item, nil
}

func (s *CheckoutService) afterCommit(ctx context.Context, sale *models.Sale, touched []models.InventoryItem) {
	// the commit already happened; a cancelled request must not skip this
	ctx = context.WithoutCancel(ctx)

	ids := make([]string, 0, len(touched))
	var low []string
	for _, it := range touched {
		ids = append(ids, it.ID)
		if it.IsLowStock() {
			low = append(low, it.ID)
		}
	}

	events := []notify.Event{
		{Type: notify.InventoryChanged, BranchID: sale.BranchID, IDs: ids},
		{Type: notify.SaleCreated, BranchID: sale.BranchID, IDs: []string{sale.ID}},
	}
	if sale.CustomerPhone != s.WalkInPhone {
		events = append(events, notify.Event{Type: notify.CustomersChanged, IDs: []string{sale.CustomerPhone}})
	}
	if len(low) > 0 {
		log.Printf("[Checkout] low stock after sale %s: %v", sale.ID, low)
		events = append(events, notify.Event{Type: notify.LowStock, BranchID: sale.BranchID, IDs: low})
	}
	publishChanges(ctx, s.Events, events...)
}

func unitOrPieces(unit string) string {
	if unit == "" {
		return "pcs"
	}
	return unit
}

// sleepCtx waits d unless ctx ends first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
