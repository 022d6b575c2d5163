package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tailor-pos/internal/cache"
	"tailor-pos/internal/models"
	"tailor-pos/internal/notify"
	"tailor-pos/internal/pagination"
	"tailor-pos/internal/store"
	"tailor-pos/internal/timeutil"

	"github.com/google/uuid"
)

// CatalogService manages branches and the service price list
type CatalogService struct {
	Store    store.Store
	Events   notify.Publisher
	Now      func() time.Time
	PageSize int
	Retry    RetryPolicy
}

func NewCatalogService(st store.Store, events notify.Publisher) *CatalogService {
	return &CatalogService{
		Store:    st,
		Events:   events,
		Now:      timeutil.Now,
		PageSize: 15,
		Retry:    defaultRetry,
	}
}

// ============================================
// Branches
// ============================================

func validateBranch(req *models.BranchRequest) (*models.BranchRequest, error) {
	out := &models.BranchRequest{
		Name:     strings.TrimSpace(req.Name),
		Location: strings.TrimSpace(req.Location),
		Type:     req.Type,
	}
	if out.Name == "" {
		return nil, invalid("name", "branch name is required")
	}
	if out.Type == "" {
		out.Type = models.BranchTypeStore
	}
	if out.Type != models.BranchTypeStore && out.Type != models.BranchTypeWarehouse {
		return nil, invalid("type", "branch type must be store or warehouse")
	}
	return out, nil
}

// BranchesCacheName is the branch list's key within the catalog family
const BranchesCacheName = "branches"

func (s *CatalogService) ListBranches(ctx context.Context) ([]models.Branch, error) {
	key := cache.Key(ctx, cache.CatalogPrefix, BranchesCacheName)
	var cached []models.Branch
	if cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}
	rows, err := s.Store.ListBranches(ctx)
	if err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, key, rows, cache.TTLFor(key))
	return rows, nil
}

func (s *CatalogService) GetBranch(ctx context.Context, id string) (*models.Branch, error) {
	return s.Store.GetBranch(ctx, id)
}

func (s *CatalogService) CreateBranch(ctx context.Context, req *models.BranchRequest) (*models.Branch, error) {
	v, err := validateBranch(req)
	if err != nil {
		return nil, err
	}
	b := &models.Branch{
		ID:        uuid.NewString(),
		Name:      v.Name,
		Location:  v.Location,
		Type:      v.Type,
		CreatedAt: s.Now(),
	}
	_, err = runTx(ctx, s.Store, s.Retry, "Catalog", func(ctx context.Context, tx store.Tx) error {
		return tx.CreateBranch(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Catalog] branch %s (%s) created", b.Name, b.Type)
	publishChanges(ctx, s.Events, notify.Event{Type: notify.CatalogChanged, IDs: []string{b.ID}})
	return b, nil
}

func (s *CatalogService) UpdateBranch(ctx context.Context, id string, req *models.BranchRequest) (*models.Branch, error) {
	v, err := validateBranch(req)
	if err != nil {
		return nil, err
	}
	var b *models.Branch
	_, err = runTx(ctx, s.Store, s.Retry, "Catalog", func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetBranch(ctx, id)
		if err != nil {
			return err
		}
		cur.Name = v.Name
		cur.Location = v.Location
		cur.Type = v.Type
		b = cur
		return tx.UpdateBranch(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	publishChanges(ctx, s.Events, notify.Event{Type: notify.CatalogChanged, IDs: []string{id}})
	return b, nil
}

// DeleteBranch refuses while the branch still holds inventory
func (s *CatalogService) DeleteBranch(ctx context.Context, id string) error {
	items, err := s.Store.QueryItems(ctx, store.ItemQuery{BranchID: id, OrderBy: store.ItemSortCreatedAt, Limit: 1})
	if err != nil {
		return err
	}
	if len(items) > 0 {
		return invalid("branch_id", "branch still has inventory, transfer or delete it first")
	}
	_, err = runTx(ctx, s.Store, s.Retry, "Catalog", func(ctx context.Context, tx store.Tx) error {
		return tx.DeleteBranch(ctx, id)
	})
	if err != nil {
		return err
	}
	log.Printf("[Catalog] branch %s deleted", id)
	publishChanges(ctx, s.Events, notify.Event{Type: notify.CatalogChanged, IDs: []string{id}})
	return nil
}

// ============================================
// Services
// ============================================

func validateService(req *models.ServiceRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("name", "service name is required")
	}
	if !models.ValidServiceType(req.Type) {
		return invalid("type", "service type must be tailoring, repair or dry_clean")
	}
	if req.Price.IsNegative() {
		return invalid("price", "price cannot be negative")
	}
	return nil
}

// ListServices pages the price list newest first, optionally for one type
func (s *CatalogService) ListServices(ctx context.Context, serviceType, cursor string, pageSize int) (pagination.Page[models.Service], error) {
	var page pagination.Page[models.Service]
	if serviceType != "" && !models.ValidServiceType(serviceType) {
		return page, invalid("type", "unknown service type %q", serviceType)
	}
	size := pageSize
	if size <= 0 {
		size = s.PageSize
	}
	if size > 100 {
		size = 100
	}

	sig := "svc|" + serviceType
	afterID, err := pagination.Decode(cursor, sig)
	if err != nil {
		return page, invalid("cursor", "cursor does not belong to this list, reload the first page")
	}

	key := cache.Key(ctx, cache.CatalogPrefix, "services:"+sig+":"+cursor+fmt.Sprintf(":%d", size))
	if cache.GetJSON(ctx, key, &page) {
		return page, nil
	}

	rows, err := s.Store.QueryServices(ctx, store.ServiceQuery{Type: serviceType, AfterID: afterID, Limit: size + 1})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return page, pagination.ErrStaleCursor
		}
		return page, err
	}
	page = pagination.Trim(rows, size, func(sv models.Service) string { return sv.ID }, sig)
	cache.SetJSON(ctx, key, page, cache.TTLFor(key))
	return page, nil
}

func (s *CatalogService) GetService(ctx context.Context, id string) (*models.Service, error) {
	return s.Store.GetService(ctx, id)
}

func (s *CatalogService) CreateService(ctx context.Context, req *models.ServiceRequest) (*models.Service, error) {
	if err := validateService(req); err != nil {
		return nil, err
	}
	sv := &models.Service{
		ID:        uuid.NewString(),
		Type:      req.Type,
		Name:      strings.TrimSpace(req.Name),
		Price:     req.Price,
		CreatedAt: s.Now(),
	}
	_, err := runTx(ctx, s.Store, s.Retry, "Catalog", func(ctx context.Context, tx store.Tx) error {
		return tx.CreateService(ctx, sv)
	})
	if err != nil {
		return nil, err
	}
	publishChanges(ctx, s.Events, notify.Event{Type: notify.CatalogChanged, IDs: []string{sv.ID}})
	return sv, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, id string, req *models.ServiceRequest) (*models.Service, error) {
	if err := validateService(req); err != nil {
		return nil, err
	}
	var sv *models.Service
	_, err := runTx(ctx, s.Store, s.Retry, "Catalog", func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.GetService(ctx, id)
		if err != nil {
			return err
		}
		cur.Type = req.Type
		cur.Name = strings.TrimSpace(req.Name)
		cur.Price = req.Price
		sv = cur
		return tx.UpdateService(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	publishChanges(ctx, s.Events, notify.Event{Type: notify.CatalogChanged, IDs: []string{id}})
	return sv, nil
}

// DeleteService removes a price-list entry. Past orders keep their own
// copy of the name and price.
func (s *CatalogService) DeleteService(ctx context.Context, id string) error {
	_, err := runTx(ctx, s.Store, s.Retry, "Catalog", func(ctx context.Context, tx store.Tx) error {
		return tx.DeleteService(ctx, id)
	})
	if err != nil {
		return err
	}
	publishChanges(ctx, s.Events, notify.Event{Type: notify.CatalogChanged, IDs: []string{id}})
	return nil
}
