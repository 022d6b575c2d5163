// Package store defines the transactional document store the POS workflows
// run against. repositories provides the PostgreSQL implementation and
// store/memory an in-process one.
package store

import (
	"context"
	"errors"
	"time"

	"tailor-pos/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a referenced document does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict means the transaction lost a race with a concurrent
	// commit. Nothing was written and the whole unit may be retried.
	ErrConflict = errors.New("concurrent modification, transaction aborted")
	// ErrUnavailable wraps transient connectivity failures
	ErrUnavailable = errors.New("store unavailable")
	// ErrInsufficientStock is returned by AdjustItemQuantity when the
	// result would go below zero
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicate is returned when a create collides with an existing key
	ErrDuplicate = errors.New("already exists")
)

// Store is the full persistence contract
type Store interface {
	Reader
	// RunInTx runs fn in one atomic unit. If fn returns an error every
	// staged write is discarded. If a document fn read was changed by
	// another commit in the meantime, RunInTx returns ErrConflict.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}

// Reader covers queries that run outside a transaction
type Reader interface {
	GetItem(ctx context.Context, id string) (*models.InventoryItem, error)
	QueryItems(ctx context.Context, q ItemQuery) ([]models.InventoryItem, error)
	FindItemByBarcode(ctx context.Context, branchID, barcode string) (*models.InventoryItem, error)

	GetCustomer(ctx context.Context, phone string) (*models.Customer, error)
	QueryCustomers(ctx context.Context, q CustomerQuery) ([]models.Customer, error)
	CountCustomers(ctx context.Context) (int, error)
	GetGeneralStats(ctx context.Context) (*models.GeneralStats, error)

	GetSale(ctx context.Context, id string) (*models.Sale, error)
	QuerySales(ctx context.Context, q SaleQuery) ([]models.Sale, error)

	DailyStatsBetween(ctx context.Context, startDay, endDay string) ([]models.DailyStat, error)

	GetBranch(ctx context.Context, id string) (*models.Branch, error)
	ListBranches(ctx context.Context) ([]models.Branch, error)

	GetService(ctx context.Context, id string) (*models.Service, error)
	QueryServices(ctx context.Context, q ServiceQuery) ([]models.Service, error)

	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	ListTransfers(ctx context.Context, branchID string, limit int) ([]models.StockTransfer, error)
}

// Tx is the read/write view inside RunInTx. Reads see the transaction's own
// staged writes.
type Tx interface {
	GetItem(ctx context.Context, id string) (*models.InventoryItem, error)
	// AdjustItemQuantity applies delta to an item's quantity and returns the
	// updated item. A result below zero fails with ErrInsufficientStock.
	AdjustItemQuantity(ctx context.Context, id string, delta int) (*models.InventoryItem, error)
	CreateItem(ctx context.Context, item *models.InventoryItem) error
	UpdateItem(ctx context.Context, item *models.InventoryItem) error
	DeleteItem(ctx context.Context, id string) error
	// FindEquivalentItem finds the item at branchID that is the same product
	// as item (name, type, unit, color)
	FindEquivalentItem(ctx context.Context, branchID string, item *models.InventoryItem) (*models.InventoryItem, error)

	GetCustomer(ctx context.Context, phone string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c *models.Customer) error
	UpdateCustomerName(ctx context.Context, phone, name string, at time.Time) error
	// MergeCustomer creates the customer or overwrites its name, leaving
	// the aggregates alone. Reports whether a record was created.
	MergeCustomer(ctx context.Context, phone, name string, at time.Time) (bool, error)
	// IncrementCustomerTotals adds to orderCount and totalSpent in place
	IncrementCustomerTotals(ctx context.Context, phone string, orders int, spent decimal.Decimal, at time.Time) error
	DeleteCustomer(ctx context.Context, phone string) error
	IncrementCustomersCount(ctx context.Context, delta int) error
	SetCustomersCount(ctx context.Context, n int) error

	// NextCounter increments the counter under key and returns the new
	// value, starting at 1
	NextCounter(ctx context.Context, key string) (int, error)

	GetSale(ctx context.Context, id string) (*models.Sale, error)
	CreateSale(ctx context.Context, sale *models.Sale) error
	UpdateSaleStatus(ctx context.Context, id, status string, at time.Time) error

	IncrementDailyStat(ctx context.Context, day string, sales, cost decimal.Decimal, orders int, at time.Time) error

	GetBranch(ctx context.Context, id string) (*models.Branch, error)
	CreateBranch(ctx context.Context, b *models.Branch) error
	UpdateBranch(ctx context.Context, b *models.Branch) error
	DeleteBranch(ctx context.Context, id string) error

	GetService(ctx context.Context, id string) (*models.Service, error)
	CreateService(ctx context.Context, s *models.Service) error
	UpdateService(ctx context.Context, s *models.Service) error
	DeleteService(ctx context.Context, id string) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error

	CreateTransfer(ctx context.Context, t *models.StockTransfer) error
}

// ItemQuery is one index-backed scan over inventory. Only one prefix range
// can be combined with an ordering, and the ordering must then be on the
// prefix field itself.
type ItemQuery struct {
	BranchID string
	Type     string // empty for all types

	PrefixField string // "", "barcode" or "name"
	Prefix      string

	OrderBy string // one of the ItemSort* fields
	Desc    bool

	// AfterID resumes after the record with this id in the given ordering
	AfterID string
	Limit   int // 0 means no limit
}

const (
	ItemSortCreatedAt    = "created_at"
	ItemSortName         = "name"
	ItemSortQuantity     = "quantity"
	ItemSortCost         = "cost"
	ItemSortSellingPrice = "selling_price"
	ItemSortBarcode      = "barcode"
)

type CustomerQuery struct {
	PrefixField string // "", "phone" or "name"
	Prefix      string

	OrderBy string // one of the CustomerSort* fields
	Desc    bool

	AfterID string // phone of the last customer on the previous page
	Limit   int
}

const (
	CustomerSortCreatedAt  = "created_at"
	CustomerSortName       = "name"
	CustomerSortPhone      = "phone"
	CustomerSortTotalSpent = "total_spent"
	CustomerSortOrderCount = "order_count"
)

// SaleQuery always orders by created_at descending
type SaleQuery struct {
	BranchID      string
	Status        string
	Type          string
	CustomerPhone string

	AfterID string
	Limit   int
}

type ServiceQuery struct {
	Type    string
	AfterID string
	Limit   int
}
