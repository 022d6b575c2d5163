package services

import (
	"context"

	"tailor-pos/internal/cache"
	"tailor-pos/internal/notify"
)

// publishChanges runs after a commit. Cached pages are dropped rather than
// patched and connected terminals are told to refetch.
func publishChanges(ctx context.Context, pub notify.Publisher, events ...notify.Event) {
	for _, ev := range events {
		switch ev.Type {
		case notify.InventoryChanged, notify.LowStock:
			cache.InvalidateInventoryCaches(ctx)
		case notify.CustomersChanged:
			cache.InvalidateCustomerCaches(ctx)
		case notify.SaleCreated, notify.SaleUpdated:
			cache.InvalidateSalesCaches(ctx)
		case notify.CatalogChanged:
			cache.InvalidateCatalogCaches(ctx)
		}
		if pub != nil {
			pub.Publish(ev)
		}
	}
}
