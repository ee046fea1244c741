// Package worker собирает и запускает пул воркеров транскрибации.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/transcribe-hub/internal/blobstore"
	"github.com/magabrotheeeer/transcribe-hub/internal/config"
	"github.com/magabrotheeeer/transcribe-hub/internal/gateway"
	jwtmaker "github.com/magabrotheeeer/transcribe-hub/internal/lib/jwt"
	"github.com/magabrotheeeer/transcribe-hub/internal/rabbitmq"
	orchestratorservice "github.com/magabrotheeeer/transcribe-hub/internal/services/orchestrator"
	workerservice "github.com/magabrotheeeer/transcribe-hub/internal/services/worker"
	"github.com/magabrotheeeer/transcribe-hub/internal/storage/repository"
)

// App представляет приложение воркера транскрибации.
type App struct {
	worker *workerservice.Worker
	conn   *amqp.Connection
	ch     *amqp.Channel
	db     *repository.Storage
	cfg    *config.Config
	logger *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения воркера.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitConnectionString, cfg.Worker.ConnectRetries, cfg.Worker.ConnectDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.Worker.MaxInflightJobs)
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	serviceTokens := jwtmaker.NewJWTMaker(cfg.JWTSecretKey, cfg.ServiceTokenTTL)
	transcriber := gateway.NewClient(cfg.Gateway, serviceTokens)
	blobs := blobstore.NewClient(cfg.BlobStore)
	orchestrator := orchestratorservice.New(db, rabbitmq.NewJobPublisher(ch), logger,
		cfg.Worker.MaxAttempts, cfg.Worker.RetryBackoff)
	w := workerservice.New(db, blobs, transcriber, orchestrator, logger, *cfg)

	return &App{
		worker: w,
		conn:   conn,
		ch:     ch,
		db:     db,
		cfg:    cfg,
		logger: logger,
	}, nil
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

// Run запускает потребление очереди задач до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.JobsQueue, a.cfg.Worker.MaxInflightJobs, a.worker.Handle)
	if err != nil {
		closeResources(a.ch, a.conn, a.logger)
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	a.logger.Info("transcription worker started",
		slog.Int("max_inflight_jobs", a.cfg.Worker.MaxInflightJobs))

	<-ctx.Done()

	a.logger.Info("shutting down transcription worker")
	closeResources(a.ch, a.conn, a.logger)
	if dbErr := a.db.DB.Close(); dbErr != nil {
		a.logger.Error("failed to close database", slog.Any("err", dbErr))
	}
	return nil
}
