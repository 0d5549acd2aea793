package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AnganSamadder/PayBack-sub004/internal/auth"
	"github.com/AnganSamadder/PayBack-sub004/internal/config"
	"github.com/AnganSamadder/PayBack-sub004/internal/identity"
	"github.com/AnganSamadder/PayBack-sub004/internal/metrics"
	"github.com/AnganSamadder/PayBack-sub004/internal/server"
	"github.com/AnganSamadder/PayBack-sub004/internal/service"
	"github.com/AnganSamadder/PayBack-sub004/internal/storage/sqlite"
	"github.com/AnganSamadder/PayBack-sub004/pkg/logging"
)

func main() {
	logging.Setup()
	cfg := config.FromEnv()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	m := metrics.New(prometheus.DefaultRegisterer)
	graph := identity.NewGraph(store, identity.WithFullScanFallback(cfg.AliasFullScanFallback))
	visibility := service.NewVisibilityReconciler(store, m)
	cascade := service.NewCascadeRewriter(store, visibility, m)
	claims := service.NewClaimService(store, graph, cascade, m)
	auditor := service.NewAuditor(store, m)
	janitor := service.NewJanitor(store, m, cfg.JanitorPageSize, cfg.JanitorMaxDeletes)

	authenticator := auth.NewPasswordAuthenticator(store)
	jwtManager := auth.NewJWTManager(cfg.JWTSigningKey, cfg.JWTTokenTTL)

	if cfg.JanitorInterval > 0 {
		go runJanitor(janitor, cfg.JanitorInterval)
	}

	srv := server.New(store, claims, auditor, janitor, authenticator, jwtManager)
	slog.Info("Server starting", "address", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, srv.Router()); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// runJanitor triggers the orphan sweep on a fixed interval. Each run is
// bounded and resumes from a persisted cursor, so a slow sweep just spreads
// across runs.
func runJanitor(janitor *service.Janitor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if _, err := janitor.CleanupOrphans(context.Background()); err != nil {
			slog.Error("Janitor run failed", "error", err)
		}
	}
}
