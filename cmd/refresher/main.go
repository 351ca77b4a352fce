package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docconsole/internal/bootstrap"
	"docconsole/internal/config"
	"docconsole/internal/observability/logging"
)

// Standalone snapshot loop for deployments that schedule refreshes outside
// the API process. Exposes only health and metrics.
func main() {
	cfg := config.Load()
	logging.Setup("refresher", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, "refresher")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", app.Metrics.Handler())

	server := &http.Server{
		Addr:        ":" + cfg.RefresherMetricsPort,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		log.Printf("refresher metrics listening on :%s", cfg.RefresherMetricsPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("refresher metrics server error: %v", err)
		}
	}()

	log.Printf("refreshing snapshots every %s", cfg.RefreshInterval)
	app.Refresher.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
