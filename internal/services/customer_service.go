package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"tailor-pos/internal/cache"
	"tailor-pos/internal/models"
	"tailor-pos/internal/notify"
	"tailor-pos/internal/pagination"
	"tailor-pos/internal/phone"
	"tailor-pos/internal/store"
	"tailor-pos/internal/timeutil"

	"github.com/xuri/excelize/v2"
)

const customerHistoryLimit = 50

type CustomerFilter struct {
	Search   string `json:"search"`
	SortBy   string `json:"sort_by"` // createdAt, name, totalSpent, orderCount
	SortDir  string `json:"sort_dir"`
	PageSize int    `json:"page_size"`
}

var customerSortFields = map[string]string{
	"createdAt":   store.CustomerSortCreatedAt,
	"created_at":  store.CustomerSortCreatedAt,
	"name":        store.CustomerSortName,
	"totalSpent":  store.CustomerSortTotalSpent,
	"total_spent": store.CustomerSortTotalSpent,
	"orderCount":  store.CustomerSortOrderCount,
	"order_count": store.CustomerSortOrderCount,
}

type CustomerService struct {
	Store           store.Store
	Events          notify.Publisher
	Now             func() time.Time
	PageSize        int
	ImportBatchSize int
	Retry           RetryPolicy
}

func NewCustomerService(st store.Store, events notify.Publisher) *CustomerService {
	return &CustomerService{
		Store:           st,
		Events:          events,
		Now:             timeutil.Now,
		PageSize:        15,
		ImportBatchSize: 500,
		Retry:           defaultRetry,
	}
}

// Lookup finds a customer by any spelling of their phone number
func (s *CustomerService) Lookup(ctx context.Context, raw string) (*models.Customer, error) {
	p := phone.Normalize(raw)
	if p == "" {
		return nil, invalid("phone", "phone number is required")
	}
	return s.Store.GetCustomer(ctx, p)
}

func (s *CustomerService) Create(ctx context.Context, req *models.CreateCustomerRequest) (*models.Customer, error) {
	name := strings.TrimSpace(req.Name)
	p := phone.Normalize(req.Phone)
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	if !phone.Valid(p) {
		return nil, invalid("phone", "phone number must have at least 10 digits")
	}

	var c *models.Customer
	_, err := runTx(ctx, s.Store, s.Retry, "Customers", func(ctx context.Context, tx store.Tx) error {
		now := s.Now()
		c = &models.Customer{Phone: p, Name: name, CreatedAt: now, UpdatedAt: now}
		if err := tx.CreateCustomer(ctx, c); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return invalid("phone", "phone %s is already registered to another customer", p)
			}
			return err
		}
		return tx.IncrementCustomersCount(ctx, 1)
	})
	if err != nil {
		return nil, err
	}
	publishChanges(ctx, s.Events, notify.Event{Type: notify.CustomersChanged, IDs: []string{p}})
	return c, nil
}

// Update renames a customer. The phone is the key and cannot change.
func (s *CustomerService) Update(ctx context.Context, raw string, req *models.UpdateCustomerRequest) (*models.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	p := phone.Normalize(raw)
	var c *models.Customer
	_, err := runTx(ctx, s.Store, s.Retry, "Customers", func(ctx context.Context, tx store.Tx) error {
		if err := tx.UpdateCustomerName(ctx, p, name, s.Now()); err != nil {
			return err
		}
		var err error
		c, err = tx.GetCustomer(ctx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	publishChanges(ctx, s.Events, notify.Event{Type: notify.CustomersChanged, IDs: []string{p}})
	return c, nil
}

// Delete removes the record only; past sales keep the name and phone they
// were written with
func (s *CustomerService) Delete(ctx context.Context, raw string) error {
	p := phone.Normalize(raw)
	_, err := runTx(ctx, s.Store, s.Retry, "Customers", func(ctx context.Context, tx store.Tx) error {
		if err := tx.DeleteCustomer(ctx, p); err != nil {
			return err
		}
		return tx.IncrementCustomersCount(ctx, -1)
	})
	if err != nil {
		return err
	}
	publishChanges(ctx, s.Events, notify.Event{Type: notify.CustomersChanged, IDs: []string{p}})
	return nil
}

func (s *CustomerService) List(ctx context.Context, f CustomerFilter, cursor string) (pagination.Page[models.Customer], error) {
	var page pagination.Page[models.Customer]

	size := f.PageSize
	if size <= 0 {
		size = s.PageSize
	}
	if size > 100 {
		size = 100
	}
	sortField := store.CustomerSortCreatedAt
	desc := true
	if f.SortBy != "" {
		field, ok := customerSortFields[f.SortBy]
		if !ok {
			return page, invalid("sort_by", "cannot sort by %q", f.SortBy)
		}
		sortField = field
		desc = false
	}
	switch f.SortDir {
	case "":
	case "asc":
		desc = false
	case "desc":
		desc = true
	default:
		return page, invalid("sort_dir", "sort direction must be asc or desc")
	}

	q := store.CustomerQuery{OrderBy: sortField, Desc: desc}
	if search := strings.TrimSpace(f.Search); search != "" {
		if phone.IsNumeric(search) {
			q.PrefixField = store.CustomerSortPhone
			q.Prefix = phone.Digits(search)
		} else {
			q.PrefixField = store.CustomerSortName
			q.Prefix = search
		}
		q.OrderBy = q.PrefixField
		q.Desc = false
	}

	sig := fmt.Sprintf("cust|%s=%s|%s:%t", q.PrefixField, q.Prefix, sortField, desc)
	afterID, err := pagination.Decode(cursor, sig)
	if err != nil {
		return page, invalid("cursor", "cursor does not belong to this list, reload the first page")
	}

	key := cache.Key(ctx, cache.CustomersPrefix, "list:"+sig+":"+cursor+fmt.Sprintf(":%d", size))
	if cache.GetJSON(ctx, key, &page) {
		return page, nil
	}

	q.AfterID = afterID
	q.Limit = size + 1
	rows, err := s.Store.QueryCustomers(ctx, q)
	if errors.Is(err, store.ErrNotFound) {
		return page, pagination.ErrStaleCursor
	}
	if err != nil {
		return page, err
	}
	page = pagination.Trim(rows, size, func(c models.Customer) string { return c.Phone }, sig)
	if q.PrefixField != "" {
		sortCustomers(page.Items, sortField, desc)
	}

	cache.SetJSON(ctx, key, page, cache.TTLFor(key))
	return page, nil
}

func sortCustomers(rows []models.Customer, field string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		var c int
		switch field {
		case store.CustomerSortName:
			c = strings.Compare(a.Name, b.Name)
		case store.CustomerSortTotalSpent:
			c = a.TotalSpent.Cmp(b.TotalSpent)
		case store.CustomerSortOrderCount:
			c = a.OrderCount - b.OrderCount
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.Phone, b.Phone)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// History returns the customer's most recent sales, newest first
func (s *CustomerService) History(ctx context.Context, raw string) ([]models.Sale, error) {
	p := phone.Normalize(raw)
	if _, err := s.Store.GetCustomer(ctx, p); err != nil {
		return nil, err
	}
	return s.Store.QuerySales(ctx, store.SaleQuery{CustomerPhone: p, Limit: customerHistoryLimit})
}

// Count is the general-stats counter shown on the customers screen
func (s *CustomerService) Count(ctx context.Context) (int, error) {
	st, err := s.Store.GetGeneralStats(ctx)
	if err != nil {
		return 0, err
	}
	return st.CustomersCount, nil
}

type importRow struct {
	name  string
	phone string
}

// parseCustomerSheet reads the first sheet: a header row, then repeated
// [ID, Name, Phone] column blocks
func parseCustomerSheet(r io.Reader) ([]importRow, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, invalid("file", "could not read spreadsheet: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, 0, invalid("file", "spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, 0, invalid("file", "could not read sheet %s: %v", sheets[0], err)
	}

	var out []importRow
	skipped := 0
	for i, row := range rows {
		if i == 0 {
			continue
		}
		for j := 0; j+1 < len(row); j += 3 {
			name := strings.TrimSpace(row[j+1])
			raw := ""
			if j+2 < len(row) {
				raw = row[j+2]
			}
			if name == "" && strings.TrimSpace(raw) == "" {
				continue
			}
			p := phone.Normalize(raw)
			if name == "" || p == "" {
				skipped++
				continue
			}
			out = append(out, importRow{name: name, phone: p})
		}
	}
	return out, skipped, nil
}

// Import merges a customer spreadsheet into the directory. Existing records
// get the sheet's name and keep their order aggregates. Writes go in
// batches; the customers counter is recounted at the end.
func (s *CustomerService) Import(ctx context.Context, r io.Reader) (*models.ImportResult, error) {
	rows, skipped, err := parseCustomerSheet(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, invalid("file", "no customers found in the file")
	}

	res := &models.ImportResult{Rows: len(rows) + skipped, Skipped: skipped}
	batchSize := s.ImportBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		created := 0
		_, err := runTx(ctx, s.Store, s.Retry, "Customers", func(ctx context.Context, tx store.Tx) error {
			created = 0
			now := s.Now()
			for _, row := range batch {
				isNew, err := tx.MergeCustomer(ctx, row.phone, row.name, now)
				if err != nil {
					return err
				}
				if isNew {
					created++
				}
			}
			return nil
		})
		if err != nil {
			log.Printf("[Customers] import stopped at row %d of %d: %v", start, len(rows), err)
			if res.Imported > 0 {
				s.resyncCount(ctx, res)
				publishChanges(ctx, s.Events, notify.Event{Type: notify.CustomersChanged})
			}
			return res, err
		}
		res.Imported += len(batch)
		res.Created += created
		res.Batches++
	}

	s.resyncCount(ctx, res)
	log.Printf("[Customers] imported %d rows (%d new) in %d batch(es)", res.Imported, res.Created, res.Batches)
	publishChanges(ctx, s.Events, notify.Event{Type: notify.CustomersChanged})
	return res, nil
}

func (s *CustomerService) resyncCount(ctx context.Context, res *models.ImportResult) {
	n, err := s.Store.CountCustomers(ctx)
	if err != nil {
		log.Printf("[Customers] count after import failed: %v", err)
		return
	}
	_, err = runTx(ctx, s.Store, s.Retry, "Customers", func(ctx context.Context, tx store.Tx) error {
		return tx.SetCustomersCount(ctx, n)
	})
	if err != nil {
		log.Printf("[Customers] counter resync failed: %v", err)
		return
	}
	res.CustomersCount = n
}
