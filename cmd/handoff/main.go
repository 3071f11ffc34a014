package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbellotti/handoff/internal/archive"
	"github.com/mbellotti/handoff/internal/config"
	"github.com/mbellotti/handoff/internal/engine"
	"github.com/mbellotti/handoff/internal/httpapi"
	"github.com/mbellotti/handoff/internal/notify"
	"github.com/mbellotti/handoff/internal/observability"
	"github.com/mbellotti/handoff/internal/operator"
	"github.com/mbellotti/handoff/internal/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("archive store init failed: %v", err)
	}
	defer store.Close()
	if cfg.DatabaseURL != "" {
		log.Printf("archive store: postgres")
	} else {
		log.Printf("archive store: in-memory")
	}

	operators := operator.NewRegistry()
	eng := engine.New(operators, engine.Options{
		QueueLimit: cfg.QueueLimit,
		Metrics:    metrics,
		Hub:        notify.NewHub(),
		Archive:    store,
		Scorer:     trigger.WordOverlapScorer{},
	})

	api := httpapi.New(cfg, eng, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	eng.StartScheduler(runCtx, cfg.SweepInterval, cfg.CleanupInterval, cfg.SessionMaxAge)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
