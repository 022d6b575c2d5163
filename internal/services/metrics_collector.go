package services

import (
	"context"
	"log"
	"sync"
	"time"

	"tailor-pos/internal/metrics"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// MetricsCollector refreshes the gauges that are not updated by requests:
// shop-wide stock health and host load
type MetricsCollector struct {
	inventory       *InventoryService
	collectInterval time.Duration
	stopChan        chan struct{}
	wg              sync.WaitGroup
}

func NewMetricsCollector(inventory *InventoryService) *MetricsCollector {
	return &MetricsCollector{
		inventory:       inventory,
		collectInterval: 30 * time.Second,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the collection loop
func (c *MetricsCollector) Start() {
	log.Println("[MetricsCollector] Starting metrics collector...")
	c.collectAll()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.collectInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.collectAll()
			case <-c.stopChan:
				log.Println("[MetricsCollector] Stopping metrics collector...")
				return
			}
		}
	}()
}

func (c *MetricsCollector) Stop() {
	close(c.stopChan)
	c.wg.Wait()
}

func (c *MetricsCollector) collectAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sum, err := c.inventory.Summary(ctx, ""); err != nil {
		log.Printf("[MetricsCollector] inventory summary failed: %v", err)
	} else {
		metrics.LowStockItems.Set(float64(sum.LowStockCount))
		metrics.StockValue.Set(sum.StockValue.InexactFloat64())
	}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		metrics.HostCPUPercent.Set(pct[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		metrics.HostMemoryPercent.Set(vm.UsedPercent)
	}
}
