package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"tailor-pos/internal/cache"
	"tailor-pos/internal/metrics"
	"tailor-pos/internal/models"
	"tailor-pos/internal/notify"
	"tailor-pos/internal/pagination"
	"tailor-pos/internal/phone"
	"tailor-pos/internal/sequence"
	"tailor-pos/internal/store"
	"tailor-pos/internal/timeutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryFilter is what the stock screen sends with every page request
type InventoryFilter struct {
	BranchID string `json:"branch_id"`
	Type     string `json:"type"` // raw, finished, or all/empty
	Search   string `json:"search"`
	SortBy   string `json:"sort_by"`  // createdAt, name, quantity, cost, sellingPrice, barcode
	SortDir  string `json:"sort_dir"` // asc or desc
	LowStock bool   `json:"low_stock"`
	PageSize int    `json:"page_size"`
}

var itemSortFields = map[string]string{
	"createdAt":     store.ItemSortCreatedAt,
	"created_at":    store.ItemSortCreatedAt,
	"name":          store.ItemSortName,
	"quantity":      store.ItemSortQuantity,
	"cost":          store.ItemSortCost,
	"sellingPrice":  store.ItemSortSellingPrice,
	"selling_price": store.ItemSortSellingPrice,
	"barcode":       store.ItemSortBarcode,
}

type InventoryService struct {
	Store    store.Store
	Events   notify.Publisher
	Now      func() time.Time
	PageSize int
	Retry    RetryPolicy
}

func NewInventoryService(st store.Store, events notify.Publisher) *InventoryService {
	return &InventoryService{
		Store:    st,
		Events:   events,
		Now:      timeutil.Now,
		PageSize: 15,
		Retry:    defaultRetry,
	}
}

// itemPlan is a filter resolved into one store scan
type itemPlan struct {
	query     store.ItemQuery
	sortField string
	desc      bool
	signature string
	pageSize  int
	lowStock  bool
}

func (s *InventoryService) plan(f InventoryFilter) (*itemPlan, error) {
	p := &itemPlan{pageSize: f.PageSize, lowStock: f.LowStock}
	if p.pageSize <= 0 {
		p.pageSize = s.PageSize
	}
	if p.pageSize > 100 {
		p.pageSize = 100
	}

	itemType := f.Type
	if itemType == "all" {
		itemType = ""
	}
	if itemType != "" && !models.ValidItemType(itemType) {
		return nil, invalid("type", "unknown item type %q", f.Type)
	}

	p.sortField = store.ItemSortCreatedAt
	p.desc = true
	if f.SortBy != "" {
		field, ok := itemSortFields[f.SortBy]
		if !ok {
			return nil, invalid("sort_by", "cannot sort by %q", f.SortBy)
		}
		p.sortField = field
		p.desc = false
	}
	switch f.SortDir {
	case "":
	case "asc":
		p.desc = false
	case "desc":
		p.desc = true
	default:
		return nil, invalid("sort_dir", "sort direction must be asc or desc")
	}

	p.query = store.ItemQuery{BranchID: f.BranchID, Type: itemType}
	search := strings.TrimSpace(f.Search)
	if search != "" {
		// one range per scan, so the search field drives the order
		if phone.IsNumeric(search) {
			p.query.PrefixField = store.ItemSortBarcode
			p.query.Prefix = phone.Digits(search)
		} else {
			p.query.PrefixField = store.ItemSortName
			p.query.Prefix = search
		}
		p.query.OrderBy = p.query.PrefixField
	} else {
		p.query.OrderBy = p.sortField
		p.query.Desc = p.desc
	}

	p.signature = fmt.Sprintf("inv|%s|%s|%s=%s|%s:%t|low=%t",
		f.BranchID, itemType, p.query.PrefixField, p.query.Prefix, p.sortField, p.desc, f.LowStock)
	return p, nil
}

// List returns one page of inventory. Searching narrows by a barcode or
// name prefix; the requested sort is then applied to the page itself.
// Low-stock views are filtered and paged in memory.
func (s *InventoryService) List(ctx context.Context, f InventoryFilter, cursor string) (pagination.Page[models.InventoryItem], error) {
	var page pagination.Page[models.InventoryItem]
	p, err := s.plan(f)
	if err != nil {
		return page, err
	}
	afterID, err := pagination.Decode(cursor, p.signature)
	if err != nil {
		return page, invalid("cursor", "cursor does not belong to this list, reload the first page")
	}

	key := cache.Key(ctx, cache.InventoryPrefix, "list:"+p.signature+":"+cursor+fmt.Sprintf(":%d", p.pageSize))
	if cache.GetJSON(ctx, key, &page) {
		return page, nil
	}

	if p.lowStock {
		rows, err := s.Store.QueryItems(ctx, p.query)
		if err != nil {
			return page, err
		}
		low := rows[:0]
		for _, it := range rows {
			if it.IsLowStock() {
				low = append(low, it)
			}
		}
		sortItems(low, p.sortField, p.desc)
		page, err = pagination.Window(low, afterID, p.pageSize, itemID, p.signature)
		if err != nil {
			return page, err
		}
	} else {
		q := p.query
		q.AfterID = afterID
		q.Limit = p.pageSize + 1
		rows, err := s.Store.QueryItems(ctx, q)
		if errors.Is(err, store.ErrNotFound) {
			return page, pagination.ErrStaleCursor
		}
		if err != nil {
			return page, err
		}
		page = pagination.Trim(rows, p.pageSize, itemID, p.signature)
		if q.PrefixField != "" {
			sortItems(page.Items, p.sortField, p.desc)
		}
	}

	cache.SetJSON(ctx, key, page, cache.TTLFor(key))
	return page, nil
}

func itemID(it models.InventoryItem) string { return it.ID }

func sortItems(rows []models.InventoryItem, field string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareItemField(&rows[i], &rows[j], field)
		if c == 0 {
			c = strings.Compare(rows[i].ID, rows[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareItemField(a, b *models.InventoryItem, field string) int {
	switch field {
	case store.ItemSortName:
		return strings.Compare(a.Name, b.Name)
	case store.ItemSortBarcode:
		return strings.Compare(a.Barcode, b.Barcode)
	case store.ItemSortQuantity:
		return a.Quantity - b.Quantity
	case store.ItemSortCost:
		return a.Cost.Cmp(b.Cost)
	case store.ItemSortSellingPrice:
		return a.SellingPrice.Cmp(b.SellingPrice)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (s *InventoryService) Get(ctx context.Context, id string) (*models.InventoryItem, error) {
	return s.Store.GetItem(ctx, id)
}

// Scan resolves a barcode read at the till
func (s *InventoryService) Scan(ctx context.Context, branchID, barcode string) (*models.InventoryItem, error) {
	code := phone.Digits(barcode)
	if code == "" {
		return nil, invalid("barcode", "barcode is required")
	}
	return s.Store.FindItemByBarcode(ctx, branchID, code)
}

// Summary is the header of the stock screen
func (s *InventoryService) Summary(ctx context.Context, branchID string) (*models.InventorySummary, error) {
	key := cache.Key(ctx, cache.InventoryPrefix, "summary:"+branchID)
	var sum models.InventorySummary
	if cache.GetJSON(ctx, key, &sum) {
		return &sum, nil
	}

	rows, err := s.Store.QueryItems(ctx, store.ItemQuery{BranchID: branchID})
	if err != nil {
		return nil, err
	}
	sum = models.InventorySummary{BranchID: branchID, StockValue: decimal.Zero}
	for _, it := range rows {
		sum.ItemCount++
		sum.TotalUnits += it.Quantity
		sum.StockValue = sum.StockValue.Add(it.Cost.Mul(decimal.NewFromInt(int64(it.Quantity))))
		if it.IsLowStock() {
			sum.LowStockCount++
		}
	}
	cache.SetJSON(ctx, key, sum, cache.TTLFor(key))
	return &sum, nil
}

func validateItemFields(name, itemType string, qty, minQty int, cost, price decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "name is required")
	}
	if !models.ValidItemType(itemType) {
		return invalid("type", "type must be raw or finished")
	}
	if qty < 0 {
		return invalid("quantity", "quantity cannot be negative")
	}
	if minQty < 0 {
		return invalid("min_quantity", "minimum quantity cannot be negative")
	}
	if cost.IsNegative() {
		return invalid("cost", "cost cannot be negative")
	}
	if price.IsNegative() {
		return invalid("selling_price", "selling price cannot be negative")
	}
	return nil
}

// Add stocks a new item. An empty barcode gets the next code of the day.
func (s *InventoryService) Add(ctx context.Context, req *models.CreateItemRequest) (*models.InventoryItem, error) {
	if err := validateItemFields(req.Name, req.Type, req.Quantity, req.MinQuantity, req.Cost, req.SellingPrice); err != nil {
		return nil, err
	}
	if req.BranchID == "" {
		return nil, invalid("branch_id", "branch is required")
	}
	barcode := phone.Digits(req.Barcode)
	if req.Barcode != "" && barcode == "" {
		return nil, invalid("barcode", "barcode must be numeric")
	}
	if barcode != "" {
		if _, err := s.Store.FindItemByBarcode(ctx, req.BranchID, barcode); err == nil {
			return nil, invalid("barcode", "barcode %s is already used at this branch", barcode)
		}
	}

	var item *models.InventoryItem
	_, err := runTx(ctx, s.Store, s.Retry, "Inventory", func(ctx context.Context, tx store.Tx) error {
		now := s.Now()
		branch, err := tx.GetBranch(ctx, req.BranchID)
		if errors.Is(err, store.ErrNotFound) {
			return invalid("branch_id", "branch %s does not exist", req.BranchID)
		}
		if err != nil {
			return err
		}
		code := barcode
		if code == "" {
			if _, code, err = sequence.Allocate(ctx, tx, sequence.ScopeBarcode, now); err != nil {
				return err
			}
		}
		item = &models.InventoryItem{
			ID:           uuid.NewString(),
			Name:         strings.TrimSpace(req.Name),
			Type:         req.Type,
			Unit:         req.Unit,
			Color:        req.Color,
			Quantity:     req.Quantity,
			MinQuantity:  req.MinQuantity,
			Cost:         req.Cost,
			SellingPrice: req.SellingPrice,
			Barcode:      code,
			BranchID:     branch.ID,
			BranchName:   branch.Name,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.CreateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	publishChanges(ctx, s.Events, notify.Event{Type: notify.InventoryChanged, BranchID: item.BranchID, IDs: []string{item.ID}})
	return item, nil
}

func (s *InventoryService) Edit(ctx context.Context, id string, req *models.UpdateItemRequest) (*models.InventoryItem, error) {
	if err := validateItemFields(req.Name, req.Type, req.Quantity, req.MinQuantity, req.Cost, req.SellingPrice); err != nil {
		return nil, err
	}
	var item *models.InventoryItem
	_, err := runTx(ctx, s.Store, s.Retry, "Inventory", func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		cur.Name = strings.TrimSpace(req.Name)
		cur.Type = req.Type
		cur.Unit = req.Unit
		cur.Color = req.Color
		cur.Quantity = req.Quantity
		cur.MinQuantity = req.MinQuantity
		cur.Cost = req.Cost
		cur.SellingPrice = req.SellingPrice
		if code := phone.Digits(req.Barcode); code != "" {
			cur.Barcode = code
		}
		cur.UpdatedAt = s.Now()
		item = cur
		return tx.UpdateItem(ctx, cur)
	})
	if err != nil {
		return nil, err
	}

	events := []notify.Event{{Type: notify.InventoryChanged, BranchID: item.BranchID, IDs: []string{item.ID}}}
	if item.IsLowStock() {
		events = append(events, notify.Event{Type: notify.LowStock, BranchID: item.BranchID, IDs: []string{item.ID}})
	}
	publishChanges(ctx, s.Events, events...)
	return item, nil
}

func (s *InventoryService) Delete(ctx context.Context, id string) error {
	var branchID string
	_, err := runTx(ctx, s.Store, s.Retry, "Inventory", func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		branchID = cur.BranchID
		return tx.DeleteItem(ctx, id)
	})
	if err != nil {
		return err
	}
	publishChanges(ctx, s.Events, notify.Event{Type: notify.InventoryChanged, BranchID: branchID, IDs: []string{id}})
	return nil
}

type TransferResult struct {
	Source   *models.InventoryItem `json:"source"`
	Target   *models.InventoryItem `json:"target"`
	Transfer *models.StockTransfer `json:"transfer"`
}

// Transfer moves qty units of an item to another branch in one
// transaction. The destination's equivalent record is topped up, or a copy
// of the source is created there.
func (s *InventoryService) Transfer(ctx context.Context, req *models.TransferRequest, operator string) (*TransferResult, error) {
	if req.ItemID == "" {
		return nil, invalid("item_id", "item is required")
	}
	if req.ToBranchID == "" {
		return nil, invalid("to_branch_id", "destination branch is required")
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity", "quantity must be greater than zero")
	}

	var res *TransferResult
	_, err := runTx(ctx, s.Store, s.Retry, "Transfer", func(ctx context.Context, tx store.Tx) error {
		now := s.Now()
		src, err := tx.GetItem(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if src.BranchID == req.ToBranchID {
			return invalid("to_branch_id", "item is already at that branch")
		}
		if req.Quantity > src.Quantity {
			return invalid("quantity", "only %d of %s available to transfer", src.Quantity, src.Name)
		}
		dest, err := tx.GetBranch(ctx, req.ToBranchID)
		if errors.Is(err, store.ErrNotFound) {
			return invalid("to_branch_id", "branch %s does not exist", req.ToBranchID)
		}
		if err != nil {
			return err
		}
		target, err := tx.FindEquivalentItem(ctx, dest.ID, src)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		source, err := tx.AdjustItemQuantity(ctx, src.ID, -req.Quantity)
		if errors.Is(err, store.ErrInsufficientStock) {
			return invalid("quantity", "only %d of %s available to transfer", src.Quantity, src.Name)
		}
		if err != nil {
			return err
		}

		if target != nil {
			if target, err = tx.AdjustItemQuantity(ctx, target.ID, req.Quantity); err != nil {
				return err
			}
		} else {
			clone := *src
			clone.ID = uuid.NewString()
			clone.BranchID = dest.ID
			clone.BranchName = dest.Name
			clone.Quantity = req.Quantity
			clone.CreatedAt = now
			clone.UpdatedAt = now
			if err := tx.CreateItem(ctx, &clone); err != nil {
				return err
			}
			target = &clone
		}

		audit := &models.StockTransfer{
			ID:           uuid.NewString(),
			SourceItemID: source.ID,
			TargetItemID: target.ID,
			ItemName:     source.Name,
			FromBranchID: source.BranchID,
			ToBranchID:   dest.ID,
			Quantity:     req.Quantity,
			User:         operator,
			CreatedAt:    now,
		}
		if err := tx.CreateTransfer(ctx, audit); err != nil {
			return err
		}
		res = &TransferResult{Source: source, Target: target, Transfer: audit}
		return nil
	})
	if err != nil {
		outcome := "failed"
		if errors.Is(err, ErrValidation) || errors.Is(err, store.ErrNotFound) {
			outcome = "invalid"
		} else if retryable(err) {
			err = fmt.Errorf("%w: %w", ErrOperationFailed, err)
		}
		metrics.TransfersTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}
	metrics.TransfersTotal.WithLabelValues("committed").Inc()
	log.Printf("[Transfer] %d x %s moved %s -> %s by %s", req.Quantity, res.Source.Name, res.Source.BranchID, res.Target.BranchID, operator)

	events := []notify.Event{
		{Type: notify.InventoryChanged, BranchID: res.Source.BranchID, IDs: []string{res.Source.ID}},
		{Type: notify.InventoryChanged, BranchID: res.Target.BranchID, IDs: []string{res.Target.ID}},
	}
	if res.Source.IsLowStock() {
		events = append(events, notify.Event{Type: notify.LowStock, BranchID: res.Source.BranchID, IDs: []string{res.Source.ID}})
	}
	publishChanges(ctx, s.Events, events...)
	return res, nil
}

func (s *InventoryService) ListTransfers(ctx context.Context, branchID string, limit int) ([]models.StockTransfer, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Store.ListTransfers(ctx, branchID, limit)
}
