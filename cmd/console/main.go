package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "docconsole/internal/adapters/http"
	"docconsole/internal/bootstrap"
	"docconsole/internal/config"
	"docconsole/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup("console", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, "console")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	// Keep the pipeline snapshot cache warm alongside the API.
	go app.Refresher.Run(ctx)

	routerCfg := httpadapter.RouterConfig{
		ReviewStage:    cfg.ReviewStage,
		WindowDays:     cfg.StatusWindowDays,
		RateLimitRPS:   float64(cfg.APIRateLimitRPS),
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxInFlight:    cfg.APIMaxInFlight,
	}
	router := httpadapter.NewRouter(
		app.Catalog,
		app.Status,
		app.Transitions,
		app.Editor,
		app.Validated,
		app.Previews,
		app.Refresher,
		app.Executor,
		app.Metrics,
		routerCfg,
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("console listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("console server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("console shutdown error: %v", err)
	}
}
