package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medmarket/api/server"
	"medmarket/core/audit"
	"medmarket/core/auth"
	"medmarket/core/catalog"
	"medmarket/core/config"
	"medmarket/core/ledger"
	"medmarket/core/logging"
	"medmarket/core/prefs"
	"medmarket/core/random"
	"medmarket/core/session"
	"medmarket/core/storage"
	"medmarket/core/validation"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("[CONFIG] invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)
	if err := run(cfg, log); err != nil {
		log.Error("node stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	log.Info("🚀 Starting medmarket node", "version", server.NodeVersion())

	// === Storage ===
	dek, err := storage.ParseDEK(cfg.DEK)
	if err != nil {
		return err
	}
	var store *storage.Storage
	if cfg.InMemory {
		store, err = storage.NewMemStorage(dek)
	} else {
		store, err = storage.NewStorage(cfg.DBPath, dek)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	// === Randomness ===
	var src random.Source = random.NewCryptoSource()
	if cfg.Seed != 0 {
		log.Warn("[CONFIG] deterministic random source in use", "seed", cfg.Seed)
		src = random.NewSeeded(cfg.Seed)
	}
	auditLog := audit.NewSlogAuditLogger(log)

	// === Session ===
	sessionOpts := []session.Option{
		session.WithRandom(src),
		session.WithAuditLogger(auditLog),
		session.WithLogger(log),
	}
	sessions, err := session.Open(store, sessionOpts...)
	if errors.Is(err, session.ErrCorruptSnapshot) {
		log.Warn("[SESSION] discarding unreadable session snapshot", "err", err)
		if err := session.ClearSnapshot(store); err != nil {
			return err
		}
		sessions, err = session.Open(store, sessionOpts...)
	}
	if err != nil {
		return err
	}

	// === Ledger ===
	price, err := cfg.ETHPrice()
	if err != nil {
		return err
	}
	l := ledger.New(sessions,
		ledger.WithDelays(cfg.Delays()),
		ledger.WithRandom(src),
		ledger.WithETHPrice(price),
		ledger.WithAuditLogger(auditLog),
		ledger.WithLogger(log),
	)
	defer l.Close()

	// === Marketplace ===
	cat, err := catalog.Load(catalog.WithLogger(log))
	if err != nil {
		return err
	}
	validator, err := validation.NewValidator(auditLog)
	if err != nil {
		return err
	}

	// === Auth ===
	secret := cfg.Secret()
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		log.Warn("[AUTH] no MEDMARKET_JWT_SECRET configured, using an ephemeral key; tokens will not survive a restart")
	}
	tokens := auth.NewTokenService(secret, cfg.TokenTTL)

	// === API Server ===
	api := server.NewServer(cfg.ListenAddr, server.Deps{
		Sessions:  sessions,
		Ledger:    l,
		Catalog:   cat,
		Validator: validator,
		Prefs:     prefs.New(store),
		Tokens:    tokens,
		Authz:     &auth.Authorizer{Tokens: tokens, AuditLogger: auditLog},
		Store:     store,
		Limiter:   server.NewClientLimiter(cfg.RateLimitPerMin, log),
		Logger:    log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- api.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return api.Shutdown(shutdownCtx)
}
