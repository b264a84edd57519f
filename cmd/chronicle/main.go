package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/kittclouds/chronicle/internal/config"
	"github.com/kittclouds/chronicle/internal/store"
	"github.com/kittclouds/chronicle/internal/telemetry"
	"github.com/kittclouds/chronicle/pkg/controller"
	"github.com/kittclouds/chronicle/pkg/orchestrator"
	"github.com/kittclouds/chronicle/pkg/remote"
)

var version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	dbPath := flag.String("db", cfg.DBPath, "SQLite file holding the saved session")
	apiURL := flag.String("api", cfg.APIURL, "Generation service base URL")
	backend := flag.String("backend", cfg.Backend, "Generation backend: http|embedded")
	asJSON := flag.Bool("json", false, "Print the session view as JSON")
	verbose := flag.Bool("v", cfg.Debug, "Log to stderr")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "chronicle [--db FILE] [--api URL] [--backend http|embedded] [--json] <command>\n\n")
		fmt.Fprintf(os.Stderr, "commands:\n%s", usage)
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if args[0] == "version" {
		fmt.Println("chronicle", version)
		return
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if !*verbose {
		logger.SetOutput(io.Discard)
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, "chronicle", cfg.OTelEndpoint)
	if err != nil {
		log.Printf("telemetry disabled: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	}()

	svc, err := openRemote(ctx, cfg, *backend, *apiURL, logger)
	if err != nil {
		log.Fatal(err)
	}

	db, err := store.NewSQLiteStoreWithDSN(*dbPath)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *dbPath, err)
	}
	defer db.Close()
	slots := store.NewSlots(db, logger)

	session, err := controller.New(controller.Options{
		Remote:        svc,
		Store:         slots,
		Logger:        logger,
		NoticeTTL:     cfg.NoticeTTL,
		FenceRequests: cfg.FenceRequests,
	})
	if err != nil {
		log.Fatal(err)
	}

	app := &app{
		session: session,
		slots:   slots,
		timeout: cfg.RequestTimeout,
		json:    *asJSON,
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
	if err := app.run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openRemote picks the generation backend.
func openRemote(ctx context.Context, cfg *config.Config, backend, apiURL string, logger *log.Logger) (remote.Service, error) {
	switch backend {
	case config.BackendHTTP:
		return remote.NewHTTPClient(remote.HTTPConfig{BaseURL: apiURL, Timeout: cfg.RequestTimeout})
	case config.BackendEmbedded:
		if err := cfg.RequireGenerator(); err != nil {
			return nil, err
		}
		gen, err := orchestrator.NewGenAIGenerator(ctx, orchestrator.GenAIConfig{
			APIKey: cfg.GoogleAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			return nil, err
		}
		return orchestrator.NewEngine(gen, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q; use http|embedded", backend)
	}
}
