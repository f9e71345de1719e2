package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/calvinwijaya/card-games-api/internal/api"
	"github.com/calvinwijaya/card-games-api/internal/config"
	"github.com/calvinwijaya/card-games-api/internal/db"
	"github.com/calvinwijaya/card-games-api/internal/events"
	"github.com/calvinwijaya/card-games-api/internal/game"
	"github.com/calvinwijaya/card-games-api/internal/logging"
	"github.com/calvinwijaya/card-games-api/internal/scheduler"
	"github.com/calvinwijaya/card-games-api/internal/service"
	"github.com/calvinwijaya/card-games-api/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the store
	gameStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer gameStore.Close()

	// Initialize WebSocket hub
	hub := api.NewHub(logger, cfg.FrontendURL)
	go hub.Run(ctx)

	notifier := events.NewFanout(logger, hub)
	if cfg.NATSURL != "" {
		conn, err := events.BrokerConnect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("error connecting to NATS: %w", err)
		}
		defer conn.Drain()
		notifier = events.NewFanout(logger, hub, events.NewNATSPublisher(conn, cfg.NATSSubject))
		logger.Info("publishing events to NATS", "url", cfg.NATSURL, "subject", cfg.NATSSubject)
	}
	if cfg.ElasticsearchURL != "" {
		indexer, err := events.NewIndexer(cfg.ElasticsearchURL, cfg.ElasticsearchIndex)
		if err != nil {
			return err
		}
		if err := indexer.EnsureIndex(ctx); err != nil {
			logger.Warn("event index unavailable", "error", err)
		}
		notifier = events.NewFanout(logger, notifier, indexer)
		logger.Info("archiving events to Elasticsearch", "url", cfg.ElasticsearchURL, "index", cfg.ElasticsearchIndex)
	}

	engine := game.NewEngine(game.NewCatalog(cfg.ImageBaseURL), nil)
	svc := service.New(engine, gameStore, service.Config{
		TTL:      cfg.RecordTTL,
		Notifier: notifier,
		Logger:   logger,
	})

	tasks := scheduler.NewScheduler(logger)
	tasks.AddTask("purge_expired", cfg.SweepInterval, scheduler.PurgeExpired(gameStore, logger))
	tasks.Start(ctx)
	defer tasks.Stop()

	// Set up router
	r := mux.NewRouter()
	api.NewHandlers(svc, hub, logger).RegisterRoutes(r)

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", api.RequestIDHeader},
		ExposedHeaders:   []string{api.RequestIDHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.Logging(logger)(c.Handler(r)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.StoreDriver == "memory" {
		logger.Info("in-memory game store initialized")
		return store.NewMemoryStore(), nil
	}

	database, err := db.NewDatabase(ctx, db.Config{
		Driver:  cfg.StoreDriver,
		DSN:     cfg.StoreDSN,
		Retries: cfg.StoreRetries,
		Timeout: cfg.StoreTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("error opening %s store: %w", cfg.StoreDriver, err)
	}

	logger.Info("database initialized", "driver", database.Driver())
	return store.NewDatabaseStore(database), nil
}
