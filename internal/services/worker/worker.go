// Package services содержит воркер транскрибации: обработку задач из очереди
// и передачу их удалённому шлюзу.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/transcribe-hub/internal/blobstore"
	"github.com/magabrotheeeer/transcribe-hub/internal/config"
	"github.com/magabrotheeeer/transcribe-hub/internal/gateway"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// RecordingRepository определяет методы хранилища, используемые воркером.
type RecordingRepository interface {
	// MarkProcessing выполняет охраняемый переход PENDING -> PROCESSING.
	MarkProcessing(ctx context.Context, recordingID string) error
	// GetRecording возвращает запись с сегментами.
	GetRecording(ctx context.Context, recordingID string) (*models.Recording, []models.Segment, error)
}

// ResultHandler принимает исход попытки воркера и решает судьбу задачи.
type ResultHandler interface {
	OnWorkerResult(ctx context.Context, job models.Job, workerErr error) error
}

// Worker обрабатывает задачи транскрибации: переводит запись в PROCESSING,
// выписывает ссылку на аудио и передаёт задачу шлюзу. Завершение записи
// приходит позже отдельным колбэком шлюза, воркер его не ждёт.
type Worker struct {
	repo        RecordingRepository
	blobs       blobstore.Store
	transcriber gateway.Transcriber
	results     ResultHandler
	log         *slog.Logger
	cfg         config.Config
}

// New создает новый воркер транскрибации.
func New(repo RecordingRepository, blobs blobstore.Store, transcriber gateway.Transcriber,
	results ResultHandler, log *slog.Logger, cfg config.Config) *Worker {
	return &Worker{
		repo:        repo,
		blobs:       blobs,
		transcriber: transcriber,
		results:     results,
		log:         log,
		cfg:         cfg,
	}
}

// Handle обрабатывает одно сообщение очереди. Возвращаемая ошибка приводит
// к requeue сообщения брокером, поэтому ошибки самой задачи здесь гасятся:
// их судьбу решает ResultHandler, а не повторная доставка того же сообщения.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	const op = "services.worker.Handle"

	var job models.Job
	if err := json.Unmarshal(body, &job); err != nil {
		// Нечитаемое сообщение не станет читаемым при повторной доставке.
		w.log.Error("dropping malformed job message", sl.Err(err))
		return nil
	}

	log := w.log.With(
		slog.String("job_id", job.JobID),
		slog.String("recording_id", job.RecordingID),
		slog.Int("attempt", job.Attempt))

	if err := w.repo.MarkProcessing(ctx, job.RecordingID); err != nil {
		if !errors.Is(err, errs.ErrInvalidRecordingState) {
			return fmt.Errorf("%s: %w", op, err)
		}
		// Запись не в PENDING. Для повторной попытки это норма: она осталась
		// в PROCESSING с первой. Всё остальное — дубликат или добитая свипом
		// запись, задача молча подтверждается.
		rec, _, getErr := w.repo.GetRecording(ctx, job.RecordingID)
		if getErr != nil {
			log.Warn("skipping job for missing recording", sl.Err(getErr))
			return nil
		}
		if job.Attempt == 1 || rec.Status != models.StatusProcessing {
			log.Warn("skipping job for recording not in PENDING",
				slog.String("status", string(rec.Status)))
			return nil
		}
	}

	if err := w.process(ctx, job); err != nil {
		log.Warn("transcription attempt failed", sl.Err(err))
		if resultErr := w.results.OnWorkerResult(ctx, job, err); resultErr != nil {
			log.Error("failed to handle worker result", sl.Err(resultErr))
		}
		return nil
	}

	log.Info("job handed to transcription gateway")
	return nil
}

func (w *Worker) process(ctx context.Context, job models.Job) error {
	key := blobstore.ObjectKey(job.UserUID, job.RecordingID)
	audioURL, err := w.blobs.PresignDownload(ctx, key, w.cfg.DownloadExpiry)
	if err != nil {
		return err
	}

	return w.transcriber.Transcribe(ctx, gateway.Request{
		JobID:       job.JobID,
		RecordingID: job.RecordingID,
		AudioURL:    audioURL,
		Language:    job.Language,
		CallbackURL: w.cfg.CallbackBaseURL + "/api/v1/callbacks/transcription",
	})
}
