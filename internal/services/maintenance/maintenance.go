// Package services содержит фоновое обслуживание конвейера: перекат истёкших
// биллинговых циклов и добивание записей, зависших в обработке.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/transcribe-hub/internal/config"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
	"github.com/magabrotheeeer/transcribe-hub/internal/metrics"
)

// MaintenanceRepository определяет операции обслуживания в хранилище.
type MaintenanceRepository interface {
	// RolloverExpired перекатывает истёкшие циклы подписок пачками.
	RolloverExpired(ctx context.Context, now time.Time, batchSize int) (int, error)
	// SweepStuckProcessing добивает записи, зависшие в PROCESSING дольше отсечки.
	SweepStuckProcessing(ctx context.Context, cutoff time.Time) ([]string, error)
	// Rollback фиксирует возврат резервации за неудавшуюся запись.
	Rollback(ctx context.Context, recordingID string) error
}

// MaintenanceService запускает периодические задачи обслуживания. Обе операции
// идемпотентны и устойчивы к конкурентным запускам, поэтому несколько
// экземпляров демона не мешают друг другу.
type MaintenanceService struct {
	repo MaintenanceRepository
	log  *slog.Logger
	cfg  config.Maintenance
}

// NewMaintenanceService создает новый экземпляр MaintenanceService.
func NewMaintenanceService(repo MaintenanceRepository, log *slog.Logger, cfg config.Maintenance) *MaintenanceService {
	return &MaintenanceService{
		repo: repo,
		log:  log,
		cfg:  cfg,
	}
}

// RunRollover периодически перекатывает истёкшие биллинговые циклы
// до отмены контекста.
func (s *MaintenanceService) RunRollover(ctx context.Context) {
	s.runRollover(ctx)

	ticker := time.NewTicker(s.cfg.RolloverInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runRollover(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *MaintenanceService) runRollover(ctx context.Context) {
	s.log.Info("starting billing cycle rollover")
	n, err := s.repo.RolloverExpired(ctx, time.Now().UTC(), s.cfg.RolloverBatch)
	if err != nil {
		s.log.Error("rollover failed", sl.Err(err))
		return
	}
	if n == 0 {
		s.log.Info("no expired billing cycles found")
		return
	}
	metrics.CycleRollovers.Add(float64(n))
	s.log.Info("billing cycles rolled over", slog.Int("count", n))
}

// RunSweep периодически добивает записи, зависшие в PROCESSING дольше
// таймаута задачи, до отмены контекста.
func (s *MaintenanceService) RunSweep(ctx context.Context) {
	s.runSweep(ctx)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *MaintenanceService) runSweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.JobTimeout)
	ids, err := s.repo.SweepStuckProcessing(ctx, cutoff)
	if err != nil {
		s.log.Error("sweep failed", sl.Err(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	metrics.SweptRecordings.Add(float64(len(ids)))
	metrics.RecordingsFailed.WithLabelValues(metrics.FailOriginSweep).Add(float64(len(ids)))
	for _, id := range ids {
		if err := s.repo.Rollback(ctx, id); err != nil {
			s.log.Warn("failed to roll back reservation",
				slog.String("recording_id", id), sl.Err(err))
		}
		s.log.Warn("recording failed by sweep", slog.String("recording_id", id))
	}
}
