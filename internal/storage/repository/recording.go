package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// MarkEnqueued отмечает постановку записи в очередь. Условие enqueued_at IS NULL
// служит защитой от повторной постановки: второй вызов для той же записи
// вернёт errs.ErrAlreadyEnqueued.
func (s *Storage) MarkEnqueued(ctx context.Context, recordingID string, at time.Time) error {
	const op = "storage.MarkEnqueued"

	result, err := s.DB.ExecContext(ctx,
		`UPDATE recordings
		 SET enqueued_at = $2
		 WHERE id = $1 AND status = 'PENDING' AND enqueued_at IS NULL`,
		recordingID, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		var exists bool
		err := s.DB.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM recordings WHERE id = $1)`, recordingID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
		}
		return fmt.Errorf("%s: %w", op, errs.ErrAlreadyEnqueued)
	}
	return nil
}

// MarkProcessing выполняет охраняемый переход PENDING -> PROCESSING.
// Переход из любого другого состояния запрещён.
func (s *Storage) MarkProcessing(ctx context.Context, recordingID string) error {
	const op = "storage.MarkProcessing"

	result, err := s.DB.ExecContext(ctx,
		`UPDATE recordings SET status = 'PROCESSING' WHERE id = $1 AND status = 'PENDING'`,
		recordingID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrInvalidRecordingState)
	}
	return nil
}

// CompleteRecording завершает запись по колбэку шлюза: в одной транзакции
// проверяется состояние PROCESSING, вставляются сегменты, запись переводится
// в DONE с длительностью, и на подписку списываются секунды. Повторный
// колбэк (ретрай шлюза) попадает на терминальную запись и отклоняется —
// повторного списания не происходит. Если списание превысило бы лимит
// секунд цикла, оно отбрасывается, а запись всё равно завершается: работа
// сделана, пользователь получает расшифровку, факт отброса фиксируется в meta.
func (s *Storage) CompleteRecording(ctx context.Context, recordingID string, durationMS int64, segments []models.Segment) error {
	const op = "storage.CompleteRecording"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var (
		userUID    string
		status     models.RecordingStatus
		cycleStart time.Time
		metaJSON   []byte
	)
	err = tx.QueryRowContext(ctx,
		`SELECT user_uid, status, cycle_start, meta FROM recordings WHERE id = $1 FOR UPDATE`,
		recordingID).Scan(&userUID, &status, &cycleStart, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, errs.ErrCallbackOnUnknownRecording)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if status.Terminal() {
		return fmt.Errorf("%s: %w", op, errs.ErrCallbackOnTerminalRecording)
	}
	if status != models.StatusProcessing {
		return fmt.Errorf("%s: %w", op, errs.ErrInvalidRecordingState)
	}

	for _, seg := range segments {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO segments (recording_id, idx, start_ms, end_ms, text)
			 VALUES ($1, $2, $3, $4, $5)`,
			recordingID, seg.Idx, seg.StartMS, seg.EndMS, seg.Text)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	meta := map[string]any{}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	seconds := int(durationMS / 1000)
	if seconds > 0 {
		if err := chargeSeconds(ctx, tx, userUID, cycleStart, seconds); err != nil {
			var quotaErr *errs.QuotaError
			if !errors.As(err, &quotaErr) && !errors.Is(err, errs.ErrNoActiveSubscription) {
				return fmt.Errorf("%s: %w", op, err)
			}
			meta["charge_discarded"] = err.Error()
		}
	}

	updatedMeta, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE recordings
		 SET status = 'DONE', duration_ms = $2, completed_at = now(), meta = $3
		 WHERE id = $1`,
		recordingID, durationMS, updatedMeta)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FailRecording переводит запись в FAILED из PENDING или PROCESSING
// и сохраняет текст ошибки в meta. Секунды не списываются: неудачная
// попытка стоит пользователю только слот usage_count, зарезервированный
// при создании. Колбэк на терминальную запись отклоняется.
func (s *Storage) FailRecording(ctx context.Context, recordingID, errorMessage string) error {
	const op = "storage.FailRecording"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var (
		status   models.RecordingStatus
		metaJSON []byte
	)
	err = tx.QueryRowContext(ctx,
		`SELECT status, meta FROM recordings WHERE id = $1 FOR UPDATE`,
		recordingID).Scan(&status, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, errs.ErrCallbackOnUnknownRecording)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if status.Terminal() {
		return fmt.Errorf("%s: %w", op, errs.ErrCallbackOnTerminalRecording)
	}

	meta := map[string]any{}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	meta["error"] = errorMessage

	updatedMeta, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE recordings
		 SET status = 'FAILED', completed_at = now(), meta = $2
		 WHERE id = $1`,
		recordingID, updatedMeta)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SweepStuckProcessing переводит в FAILED записи, зависшие в PROCESSING
// дольше таймаута. Отсечка считается от момента постановки в очередь,
// а для записей без enqueued_at — от создания. Переход охраняемый, поэтому
// гонка с опоздавшим колбэком безопасна: победит ровно одна сторона.
func (s *Storage) SweepStuckProcessing(ctx context.Context, cutoff time.Time) ([]string, error) {
	const op = "storage.SweepStuckProcessing"

	rows, err := s.DB.QueryContext(ctx,
		`UPDATE recordings
		 SET status = 'FAILED', completed_at = now(),
		     meta = meta || jsonb_build_object('error', 'processing timeout')
		 WHERE status = 'PROCESSING' AND COALESCE(enqueued_at, created_at) <= $1
		 RETURNING id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

// GetRecording возвращает запись вместе с сегментами расшифровки.
func (s *Storage) GetRecording(ctx context.Context, recordingID string) (*models.Recording, []models.Segment, error) {
	const op = "storage.GetRecording"

	rec, err := s.scanRecording(ctx,
		`SELECT id, user_uid, source, language, status, duration_ms, cycle_start,
			 enqueued_at, created_at, completed_at, meta
		 FROM recordings WHERE id = $1`, recordingID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, recording_id, idx, start_ms, end_ms, text
		 FROM segments WHERE recording_id = $1 ORDER BY idx`, recordingID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var segments []models.Segment
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(&seg.ID, &seg.RecordingID, &seg.Idx, &seg.StartMS, &seg.EndMS, &seg.Text); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, segments, nil
}

// ListRecordings возвращает страницу записей пользователя по фильтру
// и общее число записей, подходящих под фильтр.
func (s *Storage) ListRecordings(ctx context.Context, filter models.RecordingFilter) ([]*models.Recording, int, error) {
	const op = "storage.ListRecordings"

	conditions := []string{"user_uid = $1"}
	args := []any{filter.UserUID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Source != nil {
		args = append(args, *filter.Source)
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)))
	}
	if filter.Language != nil {
		args = append(args, *filter.Language)
		conditions = append(conditions, fmt.Sprintf("language = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recordings WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(
		`SELECT id, user_uid, source, language, status, duration_ms, cycle_start,
			 enqueued_at, created_at, completed_at, meta
		 FROM recordings WHERE %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Recording
	for rows.Next() {
		rec, err := scanRecordingRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// DeleteRecording удаляет запись вместе с сегментами. Удалить можно только
// собственную запись: несовпадение владельца неотличимо от отсутствия.
func (s *Storage) DeleteRecording(ctx context.Context, recordingID, userUID string) error {
	const op = "storage.DeleteRecording"

	result, err := s.DB.ExecContext(ctx,
		`DELETE FROM recordings WHERE id = $1 AND user_uid = $2`, recordingID, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
	}
	return nil
}

// GetRecordingStats возвращает агрегированную статистику записей пользователя.
func (s *Storage) GetRecordingStats(ctx context.Context, userUID string) (*models.RecordingStats, error) {
	const op = "storage.GetRecordingStats"

	var stats models.RecordingStats
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
			 COALESCE(SUM(duration_ms), 0),
			 COUNT(*) FILTER (WHERE status = 'DONE'),
			 COUNT(*) FILTER (WHERE status = 'PROCESSING'),
			 COUNT(*) FILTER (WHERE status = 'FAILED')
		 FROM recordings WHERE user_uid = $1`, userUID).
		Scan(&stats.TotalRecordings, &stats.TotalDurationMS,
			&stats.DoneCount, &stats.ProcessingCount, &stats.FailedCount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stats.TotalDurationMinutes = float64(stats.TotalDurationMS) / 60000.0
	return &stats, nil
}

func (s *Storage) scanRecording(ctx context.Context, query string, args ...any) (*models.Recording, error) {
	row := s.DB.QueryRowContext(ctx, query, args...)
	rec, err := scanRecordingRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrRecordingNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecordingRow(row rowScanner) (*models.Recording, error) {
	var (
		rec      models.Recording
		metaJSON []byte
	)
	err := row.Scan(&rec.ID, &rec.UserUID, &rec.Source, &rec.Language, &rec.Status,
		&rec.DurationMS, &rec.CycleStart, &rec.EnqueuedAt, &rec.CreatedAt,
		&rec.CompletedAt, &metaJSON)
	if err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rec.Meta); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}
