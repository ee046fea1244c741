// Package transcribehub собирает и запускает HTTP API сервиса транскрибации.
package transcribehub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/transcribe-hub/internal/blobstore"
	"github.com/magabrotheeeer/transcribe-hub/internal/cache"
	"github.com/magabrotheeeer/transcribe-hub/internal/config"
	jwtmaker "github.com/magabrotheeeer/transcribe-hub/internal/lib/jwt"
	"github.com/magabrotheeeer/transcribe-hub/internal/migrations"
	"github.com/magabrotheeeer/transcribe-hub/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/transcribe-hub/internal/services/auth"
	orchestratorservice "github.com/magabrotheeeer/transcribe-hub/internal/services/orchestrator"
	quotaservice "github.com/magabrotheeeer/transcribe-hub/internal/services/quota"
	recordingservice "github.com/magabrotheeeer/transcribe-hub/internal/services/recording"
	"github.com/magabrotheeeer/transcribe-hub/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер API и его ресурсы.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New создает приложение API: подключает хранилище, кэш и очередь,
// собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitConnectionString, cfg.Worker.ConnectRetries, cfg.Worker.ConnectDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.Worker.MaxInflightJobs)
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	jwtMaker := jwtmaker.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	blobs := blobstore.NewClient(cfg.BlobStore)

	authService := authservice.NewAuthService(db, jwtMaker, cfg.DefaultPlanCode)
	quotaService := quotaservice.NewQuotaService(db, cacheRedis, logger)
	orchestrator := orchestratorservice.New(db, rabbitmq.NewJobPublisher(ch), logger,
		cfg.Worker.MaxAttempts, cfg.Worker.RetryBackoff)
	recordingService := recordingservice.NewRecordingService(db, blobs, orchestrator,
		cacheRedis, logger, cfg.BlobStore)

	router := chi.NewRouter()
	limiter := rate.NewLimiter(rate.Limit(10), 30)
	RegisterRoutes(router, logger, cfg, db, limiter,
		authService, quotaService, recordingService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		closeResources(a.ch, a.conn, a.logger)
		if dbErr := a.db.DB.Close(); dbErr != nil {
			a.logger.Error("failed to close database", slog.Any("err", dbErr))
		}
		return err
	}
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", slog.Any("err", err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", slog.Any("err", err))
		}
	}
}
