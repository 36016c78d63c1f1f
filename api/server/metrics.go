// metrics.go - Metrics collection for the marketplace node
package server

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"medmarket/core/ledger"
	"medmarket/core/storage"
)

// NodeMetrics holds granular health metrics for the node.
type NodeMetrics struct {
	UptimeSeconds    int64         `json:"uptime_seconds"`
	CPULoadPercent   float64       `json:"cpu_load_percent"`
	MemoryMB         float64       `json:"memory_mb"`
	SystemMemoryUsed float64       `json:"system_memory_used_percent"`
	DiskFreeMB       float64       `json:"disk_free_mb"`
	StoreReachable   bool          `json:"store_reachable"`
	SessionActive    bool          `json:"session_active"`
	WalletStatus     ledger.Status `json:"wallet_status"`
	DatasetCount     int           `json:"dataset_count"`
	TransactionCount int           `json:"transaction_count"`
	CollectedAt      string        `json:"collected_at"`
}

// GetNodeMetrics returns current health metrics for the node.
func (s *Server) GetNodeMetrics() NodeMetrics {
	m := NodeMetrics{
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		StoreReachable: s.storeReachable(),
		CollectedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	// Process heap
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.MemoryMB = float64(ms.Alloc) / (1024 * 1024)

	if vm, err := mem.VirtualMemory(); err == nil {
		m.SystemMemoryUsed = vm.UsedPercent
	}
	if usage, err := disk.Usage("/"); err == nil {
		m.DiskFreeMB = float64(usage.Free) / (1024 * 1024)
	}
	if cpuPercents, err := cpu.Percent(0, false); err == nil && len(cpuPercents) > 0 {
		m.CPULoadPercent = cpuPercents[0]
	}

	if s.sessions != nil {
		m.SessionActive = s.sessions.Current() != nil
	}
	if s.ledger != nil {
		m.WalletStatus = s.ledger.Status()
		m.TransactionCount = s.ledger.TotalTransactions()
	}
	if s.catalog != nil {
		m.DatasetCount = s.catalog.Len()
	}
	return m
}

func (s *Server) storeReachable() bool {
	if s.store == nil {
		return false
	}
	_, err := s.store.Has(storage.KeyTheme)
	return err == nil
}
