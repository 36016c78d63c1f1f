// health_handler.go - HTTP handlers for /nodehealth, /health/liveness, /health/readiness
package server

import (
	"net/http"
)

// NodeHealthResponse is the response type for the /nodehealth endpoint
type NodeHealthResponse struct {
	Status  string      `json:"status"`
	Metrics NodeMetrics `json:"metrics"`
}

// deriveStatus maps metrics onto a single health word.
func deriveStatus(m NodeMetrics) string {
	switch {
	case !m.StoreReachable:
		return "degraded"
	case m.DatasetCount == 0:
		return "initializing"
	default:
		return "healthy"
	}
}

// NodeLiveness reports whether the process can serve requests at all.
func (s *Server) NodeLiveness() bool {
	return s.sessions != nil && s.ledger != nil
}

// NodeReadiness reports whether the store is reachable and the catalog is loaded.
func (s *Server) NodeReadiness() bool {
	return s.NodeLiveness() && s.storeReachable() && s.catalog != nil && s.catalog.Len() > 0
}

// HandleLiveness responds to /health/liveness
func (s *Server) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{Alive: s.NodeLiveness()}
	status := http.StatusOK
	if !resp.Alive {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// HandleReadiness responds to /health/readiness
func (s *Server) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	resp := ReadinessResponse{Ready: s.NodeReadiness()}
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// HandleNodeHealth responds to /nodehealth (summary health)
func (s *Server) HandleNodeHealth(w http.ResponseWriter, r *http.Request) {
	metrics := s.GetNodeMetrics()
	writeJSON(w, http.StatusOK, NodeHealthResponse{
		Status:  deriveStatus(metrics),
		Metrics: metrics,
	})
}

// HandleStatus responds to /status with node status
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	metrics := s.GetNodeMetrics()
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:       deriveStatus(metrics),
		Uptime:       metrics.UptimeSeconds,
		DatasetCount: metrics.DatasetCount,
		WalletStatus: string(metrics.WalletStatus),
		Version:      NodeVersion(),
		APIVersion:   APIVersion(),
		Metrics:      metrics,
	})
}
