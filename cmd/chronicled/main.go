package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kittclouds/chronicle/internal/api"
	"github.com/kittclouds/chronicle/internal/config"
	"github.com/kittclouds/chronicle/internal/telemetry"
	"github.com/kittclouds/chronicle/pkg/orchestrator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	addr := flag.String("addr", cfg.ListenAddr, "Listen address")
	flag.Parse()

	if err := cfg.RequireGenerator(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "chronicled", cfg.OTelEndpoint)
	if err != nil {
		log.Printf("[Server] telemetry disabled: %v", err)
	}

	gen, err := orchestrator.NewGenAIGenerator(ctx, orchestrator.GenAIConfig{
		APIKey: cfg.GoogleAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		log.Fatal(err)
	}
	logger := log.Default()
	engine := orchestrator.NewEngine(gen, logger)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.NewRouter(engine, api.Options{Logger: logger, Debug: cfg.Debug}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[Server] Chronicle API v%s listening on %s (model %s)", api.Version, *addr, gen.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Server] %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[Server] shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("[Server] shutdown: %v", err)
	}
	if err := shutdownTracing(sctx); err != nil {
		log.Printf("[Server] flush traces: %v", err)
	}
}
