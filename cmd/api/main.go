package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/seralis/fableforge/internal/config"
	"github.com/seralis/fableforge/internal/handler"
	"github.com/seralis/fableforge/internal/service/ai"
	"github.com/seralis/fableforge/internal/service/save"
	"github.com/seralis/fableforge/internal/service/session"
	"github.com/seralis/fableforge/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Open the save store. A broken database is not fatal; play continues
	// with in-memory persistence for the lifetime of the process.
	var store storage.Store
	sqliteStore, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		log.Printf("warning: failed to open save database %s: %v", cfg.Storage.Path, err)
		log.Println("continuing with in-memory saves only")
		store = storage.NewMemoryStore()
	} else {
		store = sqliteStore
		log.Printf("save database ready at %s", cfg.Storage.Path)
	}
	defer store.Close()

	// Initialize the model client
	var model session.ModelClient = ai.Unavailable{}
	if cfg.AI.Enabled() {
		client, err := ai.NewClient(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize model client: %v", err)
			log.Println("continuing without a model backend - check the ARK_* environment variables")
		} else {
			model = client
			log.Printf("model client initialized for %s", client.ModelName())
		}
	} else {
		log.Println("Ark credentials not configured, turns will fail until they are set")
	}

	saves := save.NewService(store)
	sessions := session.NewManager(ctx, model, saves)

	router := handler.NewRouter(sessions)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("FableForge backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
