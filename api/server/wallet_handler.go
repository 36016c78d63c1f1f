package server

import (
	"net/http"

	"medmarket/core/ledger"
)

type connectResponse struct {
	OK               bool          `json:"ok"`
	ConnectionStatus ledger.Status `json:"connectionStatus"`
	Error            string        `json:"error,omitempty"`
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Snapshot())
}

func (s *Server) handleConnectWallet(w http.ResponseWriter, r *http.Request) {
	ok := s.ledger.ConnectWallet(r.Context())
	resp := connectResponse{OK: ok, ConnectionStatus: s.ledger.Status()}
	status := http.StatusOK
	if !ok {
		resp.Error = s.ledger.LastError()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
