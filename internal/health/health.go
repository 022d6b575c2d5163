package health

import (
	"context"
	"time"

	"tailor-pos/internal/cache"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is the part of the store the checker needs
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientCounter reports live websocket subscribers
type ClientCounter interface {
	ClientCount() int
}

type HealthChecker struct {
	db      Pinger
	clients ClientCounter
	started time.Time

	// host is swapped out in tests; gopsutil reads /proc
	host func() HostStats
}

type HealthStatus struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
	Cache    string         `json:"cache"`
}

type DatabaseHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type DetailedStatus struct {
	HealthStatus
	Uptime           string    `json:"uptime"`
	WebsocketClients int       `json:"websocket_clients"`
	Host             HostStats `json:"host"`
}

type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	DiskPercent   float64 `json:"disk_percent"`
}

func NewHealthChecker(db Pinger, clients ClientCounter) *HealthChecker {
	return &HealthChecker{db: db, clients: clients, started: time.Now(), host: collectHost}
}

// CheckBasic is healthy when the database answers. A missing or failing
// cache only degrades the status since reads fall through to the store.
func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := HealthStatus{Status: "healthy", Database: dbHealth, Cache: "disabled"}
	if cache.Enabled() {
		status.Cache = "healthy"
		if !cache.IsHealthy() {
			status.Cache = "unhealthy"
			status.Status = "degraded"
		}
	}
	if dbHealth.Status != "healthy" {
		status.Status = "unhealthy"
	}
	return status
}

func (h *HealthChecker) CheckDetailed(ctx context.Context) DetailedStatus {
	d := DetailedStatus{
		HealthStatus: h.CheckBasic(ctx),
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Host:         h.host(),
	}
	if h.clients != nil {
		d.WebsocketClients = h.clients.ClientCount()
	}
	return d
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DatabaseHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DatabaseHealth{Status: "unhealthy", ResponseTime: responseTime}
	}
	return DatabaseHealth{Status: "healthy", ResponseTime: responseTime}
}

func collectHost() HostStats {
	var hs HostStats
	if pct, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(pct) > 0 {
		hs.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		hs.MemoryPercent = vm.UsedPercent
		hs.MemoryUsedMB = vm.Used / (1024 * 1024)
	}
	if du, err := disk.Usage("/"); err == nil {
		hs.DiskPercent = du.UsedPercent
	}
	return hs
}
