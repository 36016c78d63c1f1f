package api

import (
	"context"
	"errors"
	"net/http"
)

type HealthMetrics struct {
	Status  string `json:"status"`
	Metrics struct {
		UptimeSeconds    int64   `json:"uptime_seconds"`
		CPULoadPercent   float64 `json:"cpu_load_percent"`
		MemoryMB         float64 `json:"memory_mb"`
		SystemMemoryUsed float64 `json:"system_memory_used_percent"`
		DiskFreeMB       float64 `json:"disk_free_mb"`
		StoreReachable   bool    `json:"store_reachable"`
		SessionActive    bool    `json:"session_active"`
		WalletStatus     string  `json:"wallet_status"`
		DatasetCount     int     `json:"dataset_count"`
		TransactionCount int     `json:"transaction_count"`
		CollectedAt      string  `json:"collected_at"`
	} `json:"metrics"`
}

type Status struct {
	Status       string `json:"status"`
	Uptime       int64  `json:"uptime_seconds"`
	DatasetCount int    `json:"dataset_count"`
	WalletStatus string `json:"wallet_status"`
	Version      string `json:"version"`
	APIVersion   string `json:"api_version"`
}

func (c *Client) GetStatus(ctx context.Context) (Status, error) {
	var s Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &s)
	return s, err
}

func (c *Client) GetHealthMetrics(ctx context.Context) (HealthMetrics, error) {
	var h HealthMetrics
	err := c.do(ctx, http.MethodGet, "/nodehealth", nil, &h)
	return h, err
}

// GetLiveness reports the liveness flag. A 503 still carries the body, so it
// is read as "not alive" rather than an error.
func (c *Client) GetLiveness(ctx context.Context) (bool, error) {
	var out struct {
		Alive bool `json:"alive"`
	}
	err := c.do(ctx, http.MethodGet, "/health/liveness", nil, &out)
	if isUnavailable(err) {
		return false, nil
	}
	return out.Alive, err
}

func (c *Client) GetReadiness(ctx context.Context) (bool, error) {
	var out struct {
		Ready bool `json:"ready"`
	}
	err := c.do(ctx, http.MethodGet, "/health/readiness", nil, &out)
	if isUnavailable(err) {
		return false, nil
	}
	return out.Ready, err
}

func isUnavailable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable
}
