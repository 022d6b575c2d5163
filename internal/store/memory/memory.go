// Package memory is an in-process implementation of store.Store. Every
// document carries a version; a transaction records the versions it read and
// its commit fails with store.ErrConflict if any of them moved. It backs the
// -memory demo mode and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tailor-pos/internal/models"
	"tailor-pos/internal/store"

	"github.com/shopspring/decimal"
)

const (
	colItems     = "inventory"
	colCustomers = "customers"
	colSales     = "sales"
	colDaily     = "daily_stats"
	colCounters  = "counters"
	colBranches  = "branches"
	colServices  = "services"
	colUsers     = "users"
	colTransfers = "stock_transfers"
	colStats     = "stats"

	generalStatsID = "general"
)

type doc struct {
	version uint64
	value   any // nil once deleted
}

type Store struct {
	mu      sync.RWMutex
	seq     uint64
	docs    map[string]map[string]*doc
	scanVer map[string]uint64 // bumped on every create/delete within a collection
}

func New() *Store {
	return &Store{
		docs:    make(map[string]map[string]*doc),
		scanVer: make(map[string]uint64),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// RunInTx stages writes in memory and applies them under the write lock
// after validating the read set.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	t := &tx{
		s:      s,
		reads:  make(map[docKey]uint64),
		scans:  make(map[string]uint64),
		writes: make(map[docKey]staged),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, seen := range t.reads {
		if s.versionLocked(k) != seen {
			return store.ErrConflict
		}
	}
	for col, seen := range t.scans {
		if s.scanVer[col] != seen {
			return store.ErrConflict
		}
	}

	for _, k := range t.order {
		w := t.writes[k]
		c := s.docs[k.col]
		if c == nil {
			c = make(map[string]*doc)
			s.docs[k.col] = c
		}
		s.seq++
		d := c[k.id]
		wasLive := d != nil && d.value != nil
		if d == nil {
			d = &doc{}
			c[k.id] = d
		}
		d.version = s.seq
		d.value = w.value
		if wasLive != (w.value != nil) {
			s.scanVer[k.col] = s.seq
		}
	}
	return nil
}

func (s *Store) versionLocked(k docKey) uint64 {
	if d := s.docs[k.col][k.id]; d != nil {
		return d.version
	}
	return 0
}

// load returns a copy of a committed document
func (s *Store) load(col, id string) (any, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.docs[col][id]
	if d == nil {
		return nil, 0
	}
	return clone(d.value), d.version
}

// all returns copies of every live document in a collection
func (s *Store) all(col string) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]any, 0, len(s.docs[col]))
	for _, d := range s.docs[col] {
		if d.value != nil {
			out = append(out, clone(d.value))
		}
	}
	return out
}

type docKey struct {
	col string
	id  string
}

type staged struct {
	value any
}

type tx struct {
	s      *Store
	reads  map[docKey]uint64
	scans  map[string]uint64
	writes map[docKey]staged
	order  []docKey
}

func (t *tx) get(col, id string) any {
	k := docKey{col, id}
	if w, ok := t.writes[k]; ok {
		return clone(w.value)
	}
	v, ver := t.s.load(col, id)
	if _, seen := t.reads[k]; !seen {
		t.reads[k] = ver
	}
	return v
}

func (t *tx) put(col, id string, v any) {
	k := docKey{col, id}
	if _, ok := t.writes[k]; !ok {
		t.order = append(t.order, k)
	}
	t.writes[k] = staged{value: clone(v)}
}

// scan returns every live document in col as this transaction sees it
func (t *tx) scan(col string) []any {
	t.s.mu.RLock()
	if _, seen := t.scans[col]; !seen {
		t.scans[col] = t.s.scanVer[col]
	}
	live := make(map[string]any, len(t.s.docs[col]))
	for id, d := range t.s.docs[col] {
		if d.value != nil {
			live[id] = clone(d.value)
		}
	}
	t.s.mu.RUnlock()

	for k, w := range t.writes {
		if k.col != col {
			continue
		}
		if w.value == nil {
			delete(live, k.id)
		} else {
			live[k.id] = clone(w.value)
		}
	}
	out := make([]any, 0, len(live))
	for _, v := range live {
		out = append(out, v)
	}
	return out
}

// ============================================
// Inventory
// ============================================

func (t *tx) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	v, ok := t.get(colItems, id).(models.InventoryItem)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (t *tx) AdjustItemQuantity(ctx context.Context, id string, delta int) (*models.InventoryItem, error) {
	item, err := t.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Quantity+delta < 0 {
		return nil, store.ErrInsufficientStock
	}
	item.Quantity += delta
	item.UpdatedAt = time.Now()
	t.put(colItems, id, *item)
	return item, nil
}

func (t *tx) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	if t.get(colItems, item.ID) != nil {
		return store.ErrDuplicate
	}
	t.put(colItems, item.ID, *item)
	return nil
}

func (t *tx) UpdateItem(ctx context.Context, item *models.InventoryItem) error {
	if t.get(colItems, item.ID) == nil {
		return store.ErrNotFound
	}
	t.put(colItems, item.ID, *item)
	return nil
}

func (t *tx) DeleteItem(ctx context.Context, id string) error {
	if t.get(colItems, id) == nil {
		return store.ErrNotFound
	}
	t.put(colItems, id, nil)
	return nil
}

func (t *tx) FindEquivalentItem(ctx context.Context, branchID string, item *models.InventoryItem) (*models.InventoryItem, error) {
	var found *models.InventoryItem
	for _, v := range t.scan(colItems) {
		it := v.(models.InventoryItem)
		if it.BranchID != branchID || !it.SameProduct(item) {
			continue
		}
		// oldest record wins when duplicates exist
		if found == nil || it.CreatedAt.Before(found.CreatedAt) {
			c := it
			found = &c
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	// pin the version of the chosen record
	return t.GetItem(ctx, found.ID)
}

// ============================================
// Customers
// ============================================

func (t *tx) GetCustomer(ctx context.Context, phone string) (*models.Customer, error) {
	v, ok := t.get(colCustomers, phone).(models.Customer)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (t *tx) CreateCustomer(ctx context.Context, c *models.Customer) error {
	if t.get(colCustomers, c.Phone) != nil {
		return store.ErrDuplicate
	}
	t.put(colCustomers, c.Phone, *c)
	return nil
}

func (t *tx) UpdateCustomerName(ctx context.Context, phone, name string, at time.Time) error {
	c, err := t.GetCustomer(ctx, phone)
	if err != nil {
		return err
	}
	c.Name = name
	c.UpdatedAt = at
	t.put(colCustomers, phone, *c)
	return nil
}

func (t *tx) MergeCustomer(ctx context.Context, phone, name string, at time.Time) (bool, error) {
	c, err := t.GetCustomer(ctx, phone)
	if err == store.ErrNotFound {
		t.put(colCustomers, phone, models.Customer{
			Phone:      phone,
			Name:       name,
			TotalSpent: decimal.Zero,
			CreatedAt:  at,
			UpdatedAt:  at,
		})
		return true, nil
	}
	if err != nil {
		return false, err
	}
	c.Name = name
	c.UpdatedAt = at
	t.put(colCustomers, phone, *c)
	return false, nil
}

func (t *tx) IncrementCustomerTotals(ctx context.Context, phone string, orders int, spent decimal.Decimal, at time.Time) error {
	c, err := t.GetCustomer(ctx, phone)
	if err != nil {
		return err
	}
	c.OrderCount += orders
	c.TotalSpent = c.TotalSpent.Add(spent)
	last := at
	c.LastOrderDate = &last
	c.UpdatedAt = at
	t.put(colCustomers, phone, *c)
	return nil
}

func (t *tx) DeleteCustomer(ctx context.Context, phone string) error {
	if t.get(colCustomers, phone) == nil {
		return store.ErrNotFound
	}
	t.put(colCustomers, phone, nil)
	return nil
}

func (t *tx) generalStats() models.GeneralStats {
	v, _ := t.get(colStats, generalStatsID).(models.GeneralStats)
	return v
}

func (t *tx) IncrementCustomersCount(ctx context.Context, delta int) error {
	st := t.generalStats()
	st.CustomersCount += delta
	st.UpdatedAt = time.Now()
	t.put(colStats, generalStatsID, st)
	return nil
}

func (t *tx) SetCustomersCount(ctx context.Context, n int) error {
	st := t.generalStats()
	st.CustomersCount = n
	st.UpdatedAt = time.Now()
	t.put(colStats, generalStatsID, st)
	return nil
}

// ============================================
// Counters, sales, daily stats
// ============================================

func (t *tx) NextCounter(ctx context.Context, key string) (int, error) {
	n, _ := t.get(colCounters, key).(int)
	n++
	t.put(colCounters, key, n)
	return n, nil
}

func (t *tx) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	v, ok := t.get(colSales, id).(models.Sale)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (t *tx) CreateSale(ctx context.Context, sale *models.Sale) error {
	if t.get(colSales, sale.ID) != nil {
		return store.ErrDuplicate
	}
	t.put(colSales, sale.ID, *sale)
	return nil
}

func (t *tx) UpdateSaleStatus(ctx context.Context, id, status string, at time.Time) error {
	sale, err := t.GetSale(ctx, id)
	if err != nil {
		return err
	}
	sale.Status = status
	sale.UpdatedAt = at
	t.put(colSales, id, *sale)
	return nil
}

func (t *tx) IncrementDailyStat(ctx context.Context, day string, sales, cost decimal.Decimal, orders int, at time.Time) error {
	st, ok := t.get(colDaily, day).(models.DailyStat)
	if !ok {
		st = models.DailyStat{Date: day, TotalSales: decimal.Zero, TotalCost: decimal.Zero}
	}
	st.TotalSales = st.TotalSales.Add(sales)
	st.TotalCost = st.TotalCost.Add(cost)
	st.OrderCount += orders
	st.UpdatedAt = at
	t.put(colDaily, day, st)
	return nil
}

// ============================================
// Catalog
// ============================================

func (t *tx) GetBranch(ctx context.Context, id string) (*models.Branch, error) {
	v, ok := t.get(colBranches, id).(models.Branch)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (t *tx) CreateBranch(ctx context.Context, b *models.Branch) error {
	if t.get(colBranches, b.ID) != nil {
		return store.ErrDuplicate
	}
	t.put(colBranches, b.ID, *b)
	return nil
}

func (t *tx) UpdateBranch(ctx context.Context, b *models.Branch) error {
	if t.get(colBranches, b.ID) == nil {
		return store.ErrNotFound
	}
	t.put(colBranches, b.ID, *b)
	return nil
}

func (t *tx) DeleteBranch(ctx context.Context, id string) error {
	if t.get(colBranches, id) == nil {
		return store.ErrNotFound
	}
	t.put(colBranches, id, nil)
	return nil
}

func (t *tx) GetService(ctx context.Context, id string) (*models.Service, error) {
	v, ok := t.get(colServices, id).(models.Service)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (t *tx) CreateService(ctx context.Context, sv *models.Service) error {
	if t.get(colServices, sv.ID) != nil {
		return store.ErrDuplicate
	}
	t.put(colServices, sv.ID, *sv)
	return nil
}

func (t *tx) UpdateService(ctx context.Context, sv *models.Service) error {
	if t.get(colServices, sv.ID) == nil {
		return store.ErrNotFound
	}
	t.put(colServices, sv.ID, *sv)
	return nil
}

func (t *tx) DeleteService(ctx context.Context, id string) error {
	if t.get(colServices, id) == nil {
		return store.ErrNotFound
	}
	t.put(colServices, id, nil)
	return nil
}

func (t *tx) GetUser(ctx context.Context, id string) (*models.User, error) {
	v, ok := t.get(colUsers, id).(models.User)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (t *tx) CreateUser(ctx context.Context, u *models.User) error {
	for _, v := range t.scan(colUsers) {
		if strings.EqualFold(v.(models.User).Username, u.Username) {
			return store.ErrDuplicate
		}
	}
	t.put(colUsers, u.ID, *u)
	return nil
}

func (t *tx) UpdateUser(ctx context.Context, u *models.User) error {
	if t.get(colUsers, u.ID) == nil {
		return store.ErrNotFound
	}
	t.put(colUsers, u.ID, *u)
	return nil
}

func (t *tx) CreateTransfer(ctx context.Context, tr *models.StockTransfer) error {
	t.put(colTransfers, tr.ID, *tr)
	return nil
}

// ============================================
// Reader
// ============================================

func (s *Store) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	v, _ := s.load(colItems, id)
	it, ok := v.(models.InventoryItem)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &it, nil
}

func (s *Store) QueryItems(ctx context.Context, q store.ItemQuery) ([]models.InventoryItem, error) {
	var rows []models.InventoryItem
	for _, v := range s.all(colItems) {
		it := v.(models.InventoryItem)
		if q.BranchID != "" && it.BranchID != q.BranchID {
			continue
		}
		if q.Type != "" && it.Type != q.Type {
			continue
		}
		if q.Prefix != "" && !strings.HasPrefix(itemField(&it, q.PrefixField), q.Prefix) {
			continue
		}
		rows = append(rows, it)
	}

	less := func(a, b *models.InventoryItem) int {
		c := compareItems(a, b, q.OrderBy)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if q.Desc {
			c = -c
		}
		return c
	}
	sort.Slice(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) < 0 })

	if q.AfterID != "" {
		anchor, err := s.GetItem(ctx, q.AfterID)
		if err != nil {
			return nil, err
		}
		start := sort.Search(len(rows), func(i int) bool { return less(&rows[i], anchor) > 0 })
		rows = rows[start:]
	}
	return limitRows(rows, q.Limit), nil
}

func (s *Store) FindItemByBarcode(ctx context.Context, branchID, barcode string) (*models.InventoryItem, error) {
	for _, v := range s.all(colItems) {
		it := v.(models.InventoryItem)
		if it.Barcode == barcode && (branchID == "" || it.BranchID == branchID) {
			return &it, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetCustomer(ctx context.Context, phone string) (*models.Customer, error) {
	v, _ := s.load(colCustomers, phone)
	c, ok := v.(models.Customer)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) QueryCustomers(ctx context.Context, q store.CustomerQuery) ([]models.Customer, error) {
	var rows []models.Customer
	for _, v := range s.all(colCustomers) {
		c := v.(models.Customer)
		if q.Prefix != "" {
			field := c.Name
			if q.PrefixField == store.CustomerSortPhone {
				field = c.Phone
			}
			if !strings.HasPrefix(field, q.Prefix) {
				continue
			}
		}
		rows = append(rows, c)
	}

	less := func(a, b *models.Customer) int {
		c := compareCustomers(a, b, q.OrderBy)
		if c == 0 {
			c = strings.Compare(a.Phone, b.Phone)
		}
		if q.Desc {
			c = -c
		}
		return c
	}
	sort.Slice(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) < 0 })

	if q.AfterID != "" {
		anchor, err := s.GetCustomer(ctx, q.AfterID)
		if err != nil {
			return nil, err
		}
		start := sort.Search(len(rows), func(i int) bool { return less(&rows[i], anchor) > 0 })
		rows = rows[start:]
	}
	return limitRows(rows, q.Limit), nil
}

func (s *Store) CountCustomers(ctx context.Context) (int, error) {
	return len(s.all(colCustomers)), nil
}

func (s *Store) GetGeneralStats(ctx context.Context) (*models.GeneralStats, error) {
	v, _ := s.load(colStats, generalStatsID)
	st, _ := v.(models.GeneralStats)
	return &st, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	v, _ := s.load(colSales, id)
	sale, ok := v.(models.Sale)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sale, nil
}

func (s *Store) QuerySales(ctx context.Context, q store.SaleQuery) ([]models.Sale, error) {
	var rows []models.Sale
	for _, v := range s.all(colSales) {
		sale := v.(models.Sale)
		if q.BranchID != "" && sale.BranchID != q.BranchID {
			continue
		}
		if q.Status != "" && sale.Status != q.Status {
			continue
		}
		if q.Type != "" && sale.Type != q.Type {
			continue
		}
		if q.CustomerPhone != "" && sale.CustomerPhone != q.CustomerPhone {
			continue
		}
		rows = append(rows, sale)
	}

	// created_at desc, id desc
	less := func(a, b *models.Sale) int {
		c := b.CreatedAt.Compare(a.CreatedAt)
		if c == 0 {
			c = strings.Compare(b.ID, a.ID)
		}
		return c
	}
	sort.Slice(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) < 0 })

	if q.AfterID != "" {
		anchor, err := s.GetSale(ctx, q.AfterID)
		if err != nil {
			return nil, err
		}
		start := sort.Search(len(rows), func(i int) bool { return less(&rows[i], anchor) > 0 })
		rows = rows[start:]
	}
	return limitRows(rows, q.Limit), nil
}

func (s *Store) DailyStatsBetween(ctx context.Context, startDay, endDay string) ([]models.DailyStat, error) {
	var rows []models.DailyStat
	for _, v := range s.all(colDaily) {
		st := v.(models.DailyStat)
		if st.Date >= startDay && st.Date <= endDay {
			rows = append(rows, st)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

func (s *Store) GetBranch(ctx context.Context, id string) (*models.Branch, error) {
	v, _ := s.load(colBranches, id)
	b, ok := v.(models.Branch)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]models.Branch, error) {
	rows := make([]models.Branch, 0)
	for _, v := range s.all(colBranches) {
		rows = append(rows, v.(models.Branch))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (s *Store) GetService(ctx context.Context, id string) (*models.Service, error) {
	v, _ := s.load(colServices, id)
	sv, ok := v.(models.Service)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sv, nil
}

func (s *Store) QueryServices(ctx context.Context, q store.ServiceQuery) ([]models.Service, error) {
	var rows []models.Service
	for _, v := range s.all(colServices) {
		sv := v.(models.Service)
		if q.Type != "" && sv.Type != q.Type {
			continue
		}
		rows = append(rows, sv)
	}
	less := func(a, b *models.Service) int {
		c := b.CreatedAt.Compare(a.CreatedAt)
		if c == 0 {
			c = strings.Compare(b.ID, a.ID)
		}
		return c
	}
	sort.Slice(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) < 0 })

	if q.AfterID != "" {
		anchor, err := s.GetService(ctx, q.AfterID)
		if err != nil {
			return nil, err
		}
		start := sort.Search(len(rows), func(i int) bool { return less(&rows[i], anchor) > 0 })
		rows = rows[start:]
	}
	return limitRows(rows, q.Limit), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	v, _ := s.load(colUsers, id)
	u, ok := v.(models.User)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, v := range s.all(colUsers) {
		u := v.(models.User)
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows := make([]models.User, 0)
	for _, v := range s.all(colUsers) {
		rows = append(rows, v.(models.User))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (s *Store) ListTransfers(ctx context.Context, branchID string, limit int) ([]models.StockTransfer, error) {
	rows := make([]models.StockTransfer, 0)
	for _, v := range s.all(colTransfers) {
		tr := v.(models.StockTransfer)
		if branchID != "" && tr.FromBranchID != branchID && tr.ToBranchID != branchID {
			continue
		}
		rows = append(rows, tr)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return limitRows(rows, limit), nil
}

// ============================================
// helpers
// ============================================

func limitRows[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	if rows == nil {
		return []T{}
	}
	return rows
}

func itemField(it *models.InventoryItem, field string) string {
	if field == store.ItemSortBarcode {
		return it.Barcode
	}
	return it.Name
}

func compareItems(a, b *models.InventoryItem, field string) int {
	switch field {
	case store.ItemSortName:
		return strings.Compare(a.Name, b.Name)
	case store.ItemSortBarcode:
		return strings.Compare(a.Barcode, b.Barcode)
	case store.ItemSortQuantity:
		return compareInt(a.Quantity, b.Quantity)
	case store.ItemSortCost:
		return a.Cost.Cmp(b.Cost)
	case store.ItemSortSellingPrice:
		return a.SellingPrice.Cmp(b.SellingPrice)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareCustomers(a, b *models.Customer, field string) int {
	switch field {
	case store.CustomerSortName:
		return strings.Compare(a.Name, b.Name)
	case store.CustomerSortPhone:
		return strings.Compare(a.Phone, b.Phone)
	case store.CustomerSortTotalSpent:
		return a.TotalSpent.Cmp(b.TotalSpent)
	case store.CustomerSortOrderCount:
		return compareInt(a.OrderCount, b.OrderCount)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// clone copies the slices inside documents so callers never share memory
// with committed state
func clone(v any) any {
	switch x := v.(type) {
	case models.Sale:
		items := make([]models.SaleItem, len(x.Items))
		for i, it := range x.Items {
			if it.UsedMaterials != nil {
				it.UsedMaterials = append([]models.UsedMaterial(nil), it.UsedMaterials...)
			}
			items[i] = it
		}
		x.Items = items
		return x
	case models.Customer:
		if x.LastOrderDate != nil {
			t := *x.LastOrderDate
			x.LastOrderDate = &t
		}
		return x
	}
	return v
}
