package health

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"fixtrack/internal/cache"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db Pinger
}

type HealthStatus struct {
	Status   string          `json:"status"`
	Database ComponentHealth `json:"database"`
}

type DetailedStatus struct {
	HealthStatus
	Redis  ComponentHealth `json:"redis"`
	System SystemHealth    `json:"system"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type SystemHealth struct {
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    string  `json:"memory_used"`
	MemoryTotal   string  `json:"memory_total"`
	DiskPercent   float64 `json:"disk_percent"`
}

func NewHealthChecker(db Pinger) *HealthChecker {
	return &HealthChecker{db: db}
}

func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
}

// CheckDetailed adds Redis and host resources. A missing Redis only
// degrades the status since the server still answers from Postgres.
func (h *HealthChecker) CheckDetailed(ctx context.Context) DetailedStatus {
	out := DetailedStatus{HealthStatus: h.CheckBasic(ctx)}

	start := time.Now()
	out.Redis.Status = "disabled"
	if cache.GetClient() != nil {
		out.Redis.Status = "healthy"
		if !cache.IsHealthy(ctx) {
			out.Redis.Status = "unhealthy"
			if out.Status == "healthy" {
				out.Status = "degraded"
			}
		}
		out.Redis.ResponseTime = time.Since(start).Milliseconds()
	}

	if memStats, err := mem.VirtualMemory(); err == nil {
		out.System.MemoryPercent = memStats.UsedPercent
		out.System.MemoryUsed = formatBytes(memStats.Used)
		out.System.MemoryTotal = formatBytes(memStats.Total)
	}
	if diskStats, err := disk.Usage("/"); err == nil {
		out.System.DiskPercent = diskStats.UsedPercent
	}
	return out
}

func (h *HealthChecker) checkDatabase(ctx context.Context) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		mb := float64(bytes) / (1024 * 1024)
		return fmt.Sprintf("%.1f MB", mb)
	}
	return fmt.Sprintf("%.1f GB", gb)
}
