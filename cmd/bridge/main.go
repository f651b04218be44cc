package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/livebridge/internal/api/handler"
	"github.com/hszk-dev/livebridge/internal/api/middleware"
	"github.com/hszk-dev/livebridge/internal/config"
	"github.com/hszk-dev/livebridge/internal/infrastructure/cache"
	"github.com/hszk-dev/livebridge/internal/infrastructure/ledger"
	"github.com/hszk-dev/livebridge/internal/infrastructure/postgres"
	"github.com/hszk-dev/livebridge/internal/infrastructure/queue"
	"github.com/hszk-dev/livebridge/internal/infrastructure/storage"
	"github.com/hszk-dev/livebridge/internal/realtime"
	"github.com/hszk-dev/livebridge/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Infrastructure clients.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	logger.Info("connected to PostgreSQL")

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	logger.Info("connected to MinIO")

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	ledgerClient := ledger.NewClient(ledger.ClientConfig{
		URL:          cfg.Ledger.URL,
		DialTimeout:  cfg.Ledger.DialTimeout,
		CallTimeout:  cfg.Ledger.CallTimeout,
		WriteTimeout: cfg.Ledger.WriteTimeout,
	})
	if err := ledgerClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to ledger: %w", err)
	}
	defer ledgerClient.Close()
	logger.Info("connected to ledger", slog.String("url", cfg.Ledger.URL))

	// Caching layer.
	store := cache.NewStateStore(redisClient)
	counter := cache.NewViewerCounter()
	journal := postgres.NewEventJournal(pgClient.Pool())

	stateSvc := usecase.NewStateService(
		ledgerClient,
		cache.NewRedisRoomCache(store),
		cache.NewRedisGiftCache(store),
		cache.NewRedisBlacklistCache(store),
		cache.NewRedisCoHostCache(store),
		storageClient,
		store,
		usecase.StateServiceConfig{
			RoomTTL:      cfg.Cache.RoomTTL,
			GiftTTL:      cfg.Cache.GiftTTL,
			BlacklistTTL: cfg.Cache.BlacklistTTL,
			CoHostTTL:    cfg.Cache.CoHostTTL,
			IconExpiry:   cfg.MinIO.IconExpiry,
		},
	)

	guard := usecase.NewReplayGuard(usecase.ReplayGuardConfig{
		Namespace: cfg.Auth.Namespace,
		MaxAge:    cfg.Auth.MaxAge,
	})
	authSvc := usecase.NewAuthService(guard, stateSvc)

	// Realtime plane.
	hub := realtime.NewHub(counter)
	defer hub.Shutdown()

	subscriber := usecase.NewEventSubscriber(queueClient, stateSvc, hub, journal, counter)
	if err := subscriber.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event subscriber: %w", err)
	}
	defer subscriber.Stop()

	r := setupRouter(logger, stateSvc, authSvc, hub, journal, counter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(
	logger *slog.Logger,
	stateSvc *usecase.StateService,
	authSvc *usecase.AuthService,
	hub *realtime.Hub,
	journal *postgres.EventJournal,
	counter *cache.ViewerCounter,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	healthHandler := handler.NewHealthHandler(stateSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	roomHandler := handler.NewRoomHandler(stateSvc, journal, counter)
	wsHandler := handler.NewWSHandler(hub, authSvc)

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/publish", authHandler.Publish)
		r.Post("/auth/view", authHandler.View)
		r.Post("/auth/cohost", authHandler.CoHost)

		r.Get("/rooms/{id}", roomHandler.Get)
		r.Get("/rooms/{id}/events", roomHandler.Events)
		r.Get("/gifts", roomHandler.Gifts)

		r.Get("/ws", wsHandler.Connect)
	})

	return r
}
