// Package services содержит оркестратор заданий транскрибации: постановку
// задач в очередь и обработку результатов воркера с одним повтором.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
	"github.com/magabrotheeeer/transcribe-hub/internal/metrics"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// RecordingRepository определяет переходы состояний записи, нужные оркестратору.
type RecordingRepository interface {
	// MarkEnqueued отмечает постановку записи в очередь; повторная постановка
	// возвращает errs.ErrAlreadyEnqueued.
	MarkEnqueued(ctx context.Context, recordingID string, at time.Time) error
	// FailRecording переводит запись в FAILED с текстом ошибки.
	FailRecording(ctx context.Context, recordingID, errorMessage string) error
	// Rollback фиксирует возврат резервации за неудавшуюся запись.
	Rollback(ctx context.Context, recordingID string) error
}

// Publisher публикует задачу в очередь заданий.
type Publisher interface {
	Publish(job models.Job) error
}

// Orchestrator управляет жизненным циклом задач транскрибации. Транзиентные
// ошибки шлюза дают задаче ровно один повтор; вторая неудача фатальна для
// записи. Очередь — единственный канал доставки задач воркерам, состояние
// задачи живёт только в статусе записи.
type Orchestrator struct {
	repo         RecordingRepository
	publisher    Publisher
	log          *slog.Logger
	maxAttempts  int
	retryBackoff time.Duration
}

// New создает новый оркестратор.
func New(repo RecordingRepository, publisher Publisher, log *slog.Logger, maxAttempts int, retryBackoff time.Duration) *Orchestrator {
	return &Orchestrator{
		repo:         repo,
		publisher:    publisher,
		log:          log,
		maxAttempts:  maxAttempts,
		retryBackoff: retryBackoff,
	}
}

// Enqueue ставит задачу транскрибации записи в очередь и возвращает её
// идентификатор. Защита от повторной постановки живёт в хранилище: вторая
// попытка для той же записи вернёт errs.ErrAlreadyEnqueued до публикации
// сообщения.
func (o *Orchestrator) Enqueue(ctx context.Context, rec *models.Recording) (string, error) {
	const op = "services.orchestrator.Enqueue"

	now := time.Now().UTC()
	if err := o.repo.MarkEnqueued(ctx, rec.ID, now); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	job := models.Job{
		JobID:       uuid.New().String(),
		RecordingID: rec.ID,
		UserUID:     rec.UserUID,
		Language:    rec.Language,
		Attempt:     1,
		EnqueuedAt:  now,
	}
	if err := o.publisher.Publish(job); err != nil {
		// Сообщение не ушло, запись не будет обработана: честнее сразу
		// зафиксировать отказ, чем оставить её висеть в PENDING.
		o.failRecording(ctx, rec.ID, "failed to enqueue job")
		return "", fmt.Errorf("%s: %w", op, err)
	}

	o.log.Info("transcription job enqueued",
		slog.String("job_id", job.JobID),
		slog.String("recording_id", rec.ID))
	return job.JobID, nil
}

// failRecording фиксирует фатальный исход: переводит запись в FAILED и
// проводит возврат резервации через леджер.
func (o *Orchestrator) failRecording(ctx context.Context, recordingID, errorMessage string) {
	if err := o.repo.FailRecording(ctx, recordingID, errorMessage); err != nil {
		o.log.Error("failed to fail recording",
			slog.String("recording_id", recordingID), sl.Err(err))
		return
	}
	if err := o.repo.Rollback(ctx, recordingID); err != nil {
		o.log.Warn("failed to roll back reservation",
			slog.String("recording_id", recordingID), sl.Err(err))
	}
}

// OnWorkerResult обрабатывает исход попытки воркера. Транзиентная ошибка
// при незакрытом бюджете попыток ставит задачу в очередь повторно с паузой;
// иначе запись фатально завершается.
func (o *Orchestrator) OnWorkerResult(ctx context.Context, job models.Job, workerErr error) error {
	const op = "services.orchestrator.OnWorkerResult"

	if workerErr == nil {
		return nil
	}

	if errs.Transient(workerErr) && job.Attempt < o.maxAttempts {
		o.log.Warn("transient worker error, retrying job",
			slog.String("job_id", job.JobID),
			slog.String("recording_id", job.RecordingID),
			slog.Int("attempt", job.Attempt),
			sl.Err(workerErr))

		select {
		case <-time.After(o.retryBackoff):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}

		retry := job
		retry.Attempt++
		retry.EnqueuedAt = time.Now().UTC()
		if err := o.publisher.Publish(retry); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		metrics.JobRetries.Inc()
		return nil
	}

	o.log.Error("transcription job failed",
		slog.String("job_id", job.JobID),
		slog.String("recording_id", job.RecordingID),
		slog.Int("attempt", job.Attempt),
		sl.Err(workerErr))

	if err := o.repo.FailRecording(ctx, job.RecordingID, workerErr.Error()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := o.repo.Rollback(ctx, job.RecordingID); err != nil {
		o.log.Warn("failed to roll back reservation",
			slog.String("recording_id", job.RecordingID), sl.Err(err))
	}
	metrics.RecordingsFailed.WithLabelValues(metrics.FailOriginWorker).Inc()
	return nil
}
