// Package services содержит бизнес-логику жизненного цикла записей:
// создание с резервацией квоты, подтверждение загрузки, выдачу результатов
// и приём колбэков шлюза транскрибации.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/transcribe-hub/internal/blobstore"
	"github.com/magabrotheeeer/transcribe-hub/internal/cache"
	"github.com/magabrotheeeer/transcribe-hub/internal/config"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
	"github.com/magabrotheeeer/transcribe-hub/internal/metrics"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// RecordingRepository определяет методы хранилища, используемые сервисом записей.
type RecordingRepository interface {
	// ReserveRecording атомарно проверяет квоты и создаёт запись в PENDING.
	ReserveRecording(ctx context.Context, userUID, source, language string, meta map[string]any) (string, error)
	// GetRecording возвращает запись с сегментами.
	GetRecording(ctx context.Context, recordingID string) (*models.Recording, []models.Segment, error)
	// ListRecordings возвращает страницу записей и общее число.
	ListRecordings(ctx context.Context, filter models.RecordingFilter) ([]*models.Recording, int, error)
	// DeleteRecording удаляет запись владельца.
	DeleteRecording(ctx context.Context, recordingID, userUID string) error
	// GetRecordingStats возвращает агрегированную статистику.
	GetRecordingStats(ctx context.Context, userUID string) (*models.RecordingStats, error)
	// CompleteRecording завершает запись и списывает секунды.
	CompleteRecording(ctx context.Context, recordingID string, durationMS int64, segments []models.Segment) error
	// FailRecording фатально завершает запись.
	FailRecording(ctx context.Context, recordingID, errorMessage string) error
	// Rollback фиксирует возврат резервации за неудавшуюся запись.
	Rollback(ctx context.Context, recordingID string) error
}

// Enqueuer ставит задачу транскрибации записи в очередь и возвращает её
// идентификатор.
type Enqueuer interface {
	Enqueue(ctx context.Context, rec *models.Recording) (string, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// CreateResult — результат создания записи: идентификатор и, для загружаемых
// файлов, предподписанный URL загрузки.
type CreateResult struct {
	RecordingID string `json:"recording_id"`
	UploadURL   string `json:"upload_url,omitempty"`
	ObjectKey   string `json:"object_key,omitempty"`
}

// RecordingDetail — запись вместе с сегментами для выдачи пользователю.
type RecordingDetail struct {
	Recording *models.Recording `json:"recording"`
	Segments  []models.Segment  `json:"segments"`
}

// RecordingService реализует операции над записями. Все мутации статусов
// делегируются хранилищу, где переходы охраняемые; сервис добавляет проверку
// владельца, кэширование и постановку задач.
type RecordingService struct {
	repo     RecordingRepository
	blobs    blobstore.Store
	enqueuer Enqueuer
	cache    Cache
	log      *slog.Logger
	cfg      config.BlobStore
}

// NewRecordingService создает новый экземпляр RecordingService.
func NewRecordingService(repo RecordingRepository, blobs blobstore.Store, enqueuer Enqueuer,
	c Cache, log *slog.Logger, cfg config.BlobStore) *RecordingService {
	return &RecordingService{
		repo:     repo,
		blobs:    blobs,
		enqueuer: enqueuer,
		cache:    c,
		log:      log,
		cfg:      cfg,
	}
}

// Create резервирует квоту и создаёт запись. Для источника upload дополнительно
// выписывается URL загрузки аудио. Отказ по квоте возвращается как есть.
func (s *RecordingService) Create(ctx context.Context, userUID string, req models.DummyCreateRecording) (*CreateResult, error) {
	const op = "services.recording.Create"

	// Поток realtime пока не обслуживается: принимать его значило бы
	// потратить слот квоты на запись, которой нечем заняться. Отказ до
	// резервации, слот не расходуется.
	if req.Source == models.SourceRealtime {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrRealtimeNotSupported)
	}

	recordingID, err := s.repo.ReserveRecording(ctx, userUID, req.Source, req.Language, req.Meta)
	if err != nil {
		if quotaErr, ok := errs.AsQuotaError(err); ok {
			metrics.QuotaRejections.WithLabelValues(quotaErr.Kind).Inc()
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateUsage(ctx, userUID)

	result := &CreateResult{RecordingID: recordingID}
	if req.Source == models.SourceUpload {
		key := blobstore.ObjectKey(userUID, recordingID)
		uploadURL, err := s.blobs.PresignUpload(ctx, key, s.cfg.UploadExpiry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result.UploadURL = uploadURL
		result.ObjectKey = key
	}

	s.log.Info("recording created",
		slog.String("recording_id", recordingID),
		slog.String("user_uid", userUID),
		slog.String("source", req.Source))
	return result, nil
}

// UploadComplete подтверждает загрузку аудио, ставит задачу транскрибации
// в очередь и возвращает идентификатор задачи. Файл обязан существовать
// в хранилище, запись должна быть PENDING и принадлежать вызывающему.
func (s *RecordingService) UploadComplete(ctx context.Context, userUID, recordingID string) (string, error) {
	const op = "services.recording.UploadComplete"

	rec, _, err := s.repo.GetRecording(ctx, recordingID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if rec.UserUID != userUID {
		return "", fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
	}
	if rec.Status != models.StatusPending {
		return "", fmt.Errorf("%s: %w", op, errs.ErrInvalidRecordingState)
	}

	key := blobstore.ObjectKey(userUID, recordingID)
	exists, err := s.blobs.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return "", fmt.Errorf("%s: %w", op, errs.ErrUploadNotFound)
	}

	jobID, err := s.enqueuer.Enqueue(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return jobID, nil
}

// Read возвращает запись с сегментами. Терминальные записи кэшируются:
// после DONE или FAILED содержимое не меняется.
func (s *RecordingService) Read(ctx context.Context, userUID, recordingID string) (*RecordingDetail, error) {
	const op = "services.recording.Read"

	cacheKey := cache.RecordingKey(recordingID)
	var cached RecordingDetail
	found, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read recording from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found && cached.Recording != nil && cached.Recording.UserUID == userUID {
		return &cached, nil
	}

	rec, segments, err := s.repo.GetRecording(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rec.UserUID != userUID {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
	}

	detail := &RecordingDetail{Recording: rec, Segments: segments}
	if rec.Status.Terminal() {
		if err := s.cache.Set(ctx, cacheKey, detail, time.Hour); err != nil {
			s.log.Warn("failed to cache recording", slog.String("key", cacheKey), sl.Err(err))
		}
	}
	return detail, nil
}

// List возвращает страницу записей пользователя.
func (s *RecordingService) List(ctx context.Context, filter models.RecordingFilter) ([]*models.Recording, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListRecordings(ctx, filter)
}

// Remove удаляет запись пользователя вместе с сегментами. Потраченная на
// запись квота не возвращается.
func (s *RecordingService) Remove(ctx context.Context, userUID, recordingID string) error {
	if err := s.cache.Invalidate(ctx, cache.RecordingKey(recordingID)); err != nil {
		s.log.Warn("failed to invalidate recording cache",
			slog.String("recording_id", recordingID), sl.Err(err))
	}
	return s.repo.DeleteRecording(ctx, recordingID, userUID)
}

// Stats возвращает агрегированную статистику записей пользователя.
func (s *RecordingService) Stats(ctx context.Context, userUID string) (*models.RecordingStats, error) {
	return s.repo.GetRecordingStats(ctx, userUID)
}

// Complete принимает колбэк успешной транскрибации: проверяет сегменты,
// завершает запись и списывает секунды. Колбэки на неизвестных и терминальных
// записях ожидаемы при ретраях шлюза и гонке со свипом, они только логируются.
func (s *RecordingService) Complete(ctx context.Context, req models.DummyCompleteCallback) error {
	const op = "services.recording.Complete"

	segments, err := validateSegments(req.Segments, req.DurationMS)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for i := range segments {
		segments[i].RecordingID = req.RecordingID
	}

	if err := s.repo.CompleteRecording(ctx, req.RecordingID, req.DurationMS, segments); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordingsCompleted.Inc()

	rec, _, err := s.repo.GetRecording(ctx, req.RecordingID)
	if err == nil {
		s.invalidateUsage(ctx, rec.UserUID)
	}
	if err := s.cache.Invalidate(ctx, cache.RecordingKey(req.RecordingID)); err != nil {
		s.log.Warn("failed to invalidate recording cache",
			slog.String("recording_id", req.RecordingID), sl.Err(err))
	}

	s.log.Info("recording completed",
		slog.String("recording_id", req.RecordingID),
		slog.Int64("duration_ms", req.DurationMS),
		slog.Int("segments", len(segments)))
	return nil
}

// Fail принимает колбэк ошибки транскрибации и фатально завершает запись.
// Секунды не списываются.
func (s *RecordingService) Fail(ctx context.Context, req models.DummyFailCallback) error {
	const op = "services.recording.Fail"

	if err := s.repo.FailRecording(ctx, req.RecordingID, req.ErrorMessage); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.Rollback(ctx, req.RecordingID); err != nil {
		s.log.Warn("failed to roll back reservation",
			slog.String("recording_id", req.RecordingID), sl.Err(err))
	}
	metrics.RecordingsFailed.WithLabelValues(metrics.FailOriginGateway).Inc()

	if err := s.cache.Invalidate(ctx, cache.RecordingKey(req.RecordingID)); err != nil {
		s.log.Warn("failed to invalidate recording cache",
			slog.String("recording_id", req.RecordingID), sl.Err(err))
	}

	s.log.Info("recording failed by gateway",
		slog.String("recording_id", req.RecordingID),
		slog.String("error_message", req.ErrorMessage))
	return nil
}

func (s *RecordingService) invalidateUsage(ctx context.Context, userUID string) {
	if err := s.cache.Invalidate(ctx, cache.UsageKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate usage cache", slog.String("user_uid", userUID), sl.Err(err))
	}
}

// validateSegments проверяет согласованность сегментов: нумерация непрерывная
// с нуля, каждый сегмент непустой, сегменты не пересекаются и укладываются
// в общую длительность.
func validateSegments(in []models.DummySegment, durationMS int64) ([]models.Segment, error) {
	segments := make([]models.Segment, 0, len(in))
	var prevEnd int64
	for i, seg := range in {
		if seg.Idx != i {
			return nil, fmt.Errorf("segment %d: idx %d is out of order", i, seg.Idx)
		}
		if seg.StartMS >= seg.EndMS {
			return nil, fmt.Errorf("segment %d: start %d is not before end %d", i, seg.StartMS, seg.EndMS)
		}
		if seg.StartMS < prevEnd {
			return nil, fmt.Errorf("segment %d: overlaps previous segment", i)
		}
		if seg.EndMS > durationMS {
			return nil, fmt.Errorf("segment %d: end %d exceeds duration %d", i, seg.EndMS, durationMS)
		}
		prevEnd = seg.EndMS
		segments = append(segments, models.Segment{
			Idx:     seg.Idx,
			StartMS: seg.StartMS,
			EndMS:   seg.EndMS,
			Text:    seg.Text,
		})
	}
	return segments, nil
}
