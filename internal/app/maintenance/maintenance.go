// Package maintenance собирает и запускает демон обслуживания квот:
// перекат расчётных циклов и свип зависших записей.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/transcribe-hub/internal/config"
	maintenanceservice "github.com/magabrotheeeer/transcribe-hub/internal/services/maintenance"
	"github.com/magabrotheeeer/transcribe-hub/internal/storage/repository"
)

// App представляет приложение обслуживания квот.
type App struct {
	service *maintenanceservice.MaintenanceService
	db      *repository.Storage
	logger  *slog.Logger
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

// New создает новый экземпляр приложения обслуживания.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		return nil, err
	}

	service := maintenanceservice.NewMaintenanceService(db, logger, cfg.Maintenance)

	return &App{
		service: service,
		db:      db,
		logger:  logger,
	}, nil
}

// Run запускает фоновые циклы обслуживания до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	go a.service.RunRollover(ctx)
	go a.service.RunSweep(ctx)

	<-ctx.Done()

	a.logger.Info("shutting down quota maintenance")
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", slog.Any("err", err))
	}
	return nil
}
