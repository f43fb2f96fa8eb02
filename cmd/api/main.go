package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inkstream/inkstream-backend/internal/api"
	"github.com/inkstream/inkstream-backend/internal/config"
	"github.com/inkstream/inkstream-backend/internal/contact"
	"github.com/inkstream/inkstream-backend/internal/content"
	"github.com/inkstream/inkstream-backend/internal/content/demo"
	"github.com/inkstream/inkstream-backend/internal/content/directus"
	"github.com/inkstream/inkstream-backend/internal/jobs"
	"github.com/inkstream/inkstream-backend/internal/log"
	"github.com/inkstream/inkstream-backend/internal/metrics"
	"github.com/inkstream/inkstream-backend/internal/selection"
	"github.com/inkstream/inkstream-backend/internal/store"
	"github.com/inkstream/inkstream-backend/internal/stream"
	"github.com/inkstream/inkstream-backend/internal/ws"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting Inkstream API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"provider", cfg.Content.Provider,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("inkstream")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	// Setup cache (Redis with in-memory fallback)
	cache, err := store.NewCache(cfg.Cache.RedisAddr, logger, metricsObj)
	if err != nil {
		logger.Fatalw("Failed to setup cache", "error", err)
	}
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		logger.Fatalw("Cache ping failed", "error", err)
	}
	logger.Infow("Cache ready", "in_memory", cache.IsInMemoryMode())

	// Content providers: the demo set always exists as the fallback.
	demoProvider := demo.NewProvider()
	var primary content.Provider = demoProvider
	var directusClient *directus.Provider
	if cfg.Content.Provider == "directus" {
		directusClient = directus.NewProvider(logger, cfg.Content.DirectusURL, cfg.Content.DirectusToken)
		primary = directusClient
	}

	// Contact sink
	var contactSink contact.Sink
	switch cfg.Contact.Sink {
	case "postgres":
		db, err := sql.Open("pgx", cfg.Database.PostgresDSN)
		if err != nil {
			logger.Fatalw("Failed to open Postgres", "error", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalw("Postgres ping failed", "error", err)
		}
		contactSink = contact.NewPostgresSink(db, logger)
	case "directus":
		if directusClient == nil {
			directusClient = directus.NewProvider(logger, cfg.Content.DirectusURL, cfg.Content.DirectusToken)
		}
		contactSink = contact.NewDirectusSink(directusClient)
	default:
		contactSink = contact.NewMemorySink()
	}
	logger.Infow("Contact sink configured", "sink", contactSink.Name())

	// Catalog holder and refresher
	holder := content.NewHolder(nil)
	refresher := jobs.NewCatalogRefresher(
		primary, demoProvider, holder, cache, logger, metricsObj,
		jobs.CatalogRefresherConfig{Interval: cfg.Content.RefreshInterval, PageSize: 100},
	)

	// WebSocket hub, SSE handler and the reader session socket
	wsHub := ws.NewHub(cache, logger, metricsObj, cfg.Security.CORSAllowedOrigins)
	sseHandler := ws.NewSSEHandler(cache, logger, cfg.Security.CORSAllowedOrigins)
	readerHandler := ws.NewReaderHandler(holder, stream.Config{
		URLDebounce: cfg.Reader.URLDebounce,
		NavLock:     cfg.Reader.NavLock,
		PathPrefix:  cfg.Reader.PathPrefix,
	}, logger, metricsObj, cfg.Security.CORSAllowedOrigins)

	// Background services
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	go wsHub.Run(bgCtx)
	go func() {
		if err := refresher.Start(bgCtx); err != nil && err != context.Canceled {
			logger.Errorw("Catalog refresher error", "error", err)
		}
	}()

	// Setup API handler and middleware
	handler := api.NewHandler(
		holder, selection.NewEngine(), cache, contactSink,
		wsHub, sseHandler, readerHandler,
		cfg, logger, metricsObj,
	)
	middleware := api.NewMiddleware(logger, metricsObj)
	router := handler.Routes(middleware, metricsHandler, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM)

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Setup HTTP server
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // streaming endpoints hold connections open
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		refresher.Stop()
		bgCancel()

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
