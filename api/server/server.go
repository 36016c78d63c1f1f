package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"medmarket/core/auth"
	"medmarket/core/catalog"
	"medmarket/core/ledger"
	"medmarket/core/logging"
	"medmarket/core/prefs"
	"medmarket/core/session"
	"medmarket/core/validation"
)

// Prober reports whether the local store is reachable.
type Prober interface {
	Has(key string) (bool, error)
}

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Sessions  *session.Store
	Ledger    *ledger.Ledger
	Catalog   *catalog.Catalog
	Validator *validation.Validator
	Prefs     *prefs.Preferences
	Tokens    *auth.TokenService
	Authz     *auth.Authorizer
	Store     Prober
	Limiter   *ClientLimiter
	Logger    *slog.Logger
}

type Server struct {
	ListenAddr string

	sessions  *session.Store
	ledger    *ledger.Ledger
	catalog   *catalog.Catalog
	validator *validation.Validator
	prefs     *prefs.Preferences
	tokens    *auth.TokenService
	authz     *auth.Authorizer
	store     Prober
	limiter   *ClientLimiter
	log       *slog.Logger

	startTime time.Time
	httpSrv   *http.Server
}

func NewServer(listenAddr string, d Deps) *Server {
	s := &Server{
		ListenAddr: listenAddr,
		sessions:   d.Sessions,
		ledger:     d.Ledger,
		catalog:    d.Catalog,
		validator:  d.Validator,
		prefs:      d.Prefs,
		tokens:     d.Tokens,
		authz:      d.Authz,
		store:      d.Store,
		limiter:    d.Limiter,
		log:        d.Logger,
		startTime:  time.Now(),
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.authz == nil {
		s.authz = &auth.Authorizer{Tokens: s.tokens}
	}
	s.httpSrv = &http.Server{
		Addr:              listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health and status
	mux.HandleFunc("GET /nodehealth", s.HandleNodeHealth)
	mux.HandleFunc("GET /health/liveness", s.HandleLiveness)
	mux.HandleFunc("GET /health/readiness", s.HandleReadiness)
	mux.HandleFunc("GET /status", s.HandleStatus)

	// Session
	mux.HandleFunc("POST /api/session/login", s.handleLogin)
	mux.HandleFunc("POST /api/session/register", s.handleRegister)
	mux.HandleFunc("POST /api/session/logout", s.requireSession(s.handleLogout))
	mux.HandleFunc("GET /api/session", s.requireSession(s.handleCurrentSession))
	mux.HandleFunc("PATCH /api/profile", s.requireSession(s.handleUpdateProfile))

	// Wallet
	mux.HandleFunc("GET /api/wallet", s.requireSession(s.handleWallet))
	mux.HandleFunc("POST /api/wallet/connect", s.requireSession(s.handleConnectWallet))

	// Marketplace
	mux.HandleFunc("GET /api/datasets", s.handleSearchDatasets)
	mux.HandleFunc("GET /api/datasets/types", s.handleDatasetTypes)
	mux.HandleFunc("GET /api/datasets/mine", s.requireSession(s.handleMyDatasets, session.RolePatient))
	mux.HandleFunc("GET /api/datasets/{id}", s.handleGetDataset)
	mux.HandleFunc("POST /api/datasets", s.requireSession(s.handlePublishDataset, session.RolePatient))
	mux.HandleFunc("POST /api/datasets/{id}/purchase", s.requireSession(s.handlePurchaseDataset, session.RoleResearcher))
	mux.HandleFunc("POST /api/datasets/{id}/verify", s.handleVerifyDataset)
	mux.HandleFunc("GET /api/datasets/{id}/transactions", s.handleDatasetTransactions)

	// Preferences
	mux.HandleFunc("GET /api/preferences/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/preferences/theme", s.handleSetTheme)
	mux.HandleFunc("POST /api/preferences/theme/toggle", s.handleToggleTheme)

	var h http.Handler = mux
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	return s.logRequests(h)
}

// Start listens on ListenAddr until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("[API] server listening", "addr", s.ListenAddr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("[API] request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
