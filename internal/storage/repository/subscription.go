package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/transcribe-hub/internal/lib/cycle"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	"github.com/magabrotheeeer/transcribe-hub/internal/metrics"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// CreateSubscription создаёт подписку пользователя со снапшотом плана
// (copy-on-subscribe). Подписка единственная на пользователя, создаётся
// один раз при регистрации.
func (s *Storage) CreateSubscription(ctx context.Context, userUID string, plan *models.Plan, window cycle.Window) (string, error) {
	const op = "storage.CreateSubscription"

	query := `INSERT INTO user_subscriptions (user_uid, plan_id, plan_code, plan_name,
				  plan_monthly_minutes, plan_monthly_usage_limit, cycle_start, cycle_end)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		userUID, plan.ID, plan.Code, plan.Name,
		plan.MonthlyMinutes, plan.MonthlyUsageLimit, window.Start, window.End).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscription возвращает подписку пользователя со снапшотом плана.
func (s *Storage) GetSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"

	query := `SELECT id, user_uid, plan_id, plan_code, plan_name, plan_monthly_minutes,
				  plan_monthly_usage_limit, cycle_start, cycle_end, usage_count, used_seconds
			  FROM user_subscriptions
			  WHERE user_uid = $1`
	var sub models.Subscription
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&sub.ID, &sub.UserUID, &sub.PlanID,
		&sub.Plan.Code, &sub.Plan.Name, &sub.Plan.MonthlyMinutes, &sub.Plan.MonthlyUsageLimit,
		&sub.CycleStart, &sub.CycleEnd, &sub.UsageCount, &sub.UsedSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrNoActiveSubscription)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// ReserveRecording атомарно проверяет квоты и создаёт запись: строка подписки
// берётся под эксклюзивной блокировкой, проверки и инкремент usage_count
// выполняются в одной транзакции с INSERT записи. Классическая гонка
// check-then-act между конкурентными запросами исключается блокировкой.
func (s *Storage) ReserveRecording(ctx context.Context, userUID, source, language string, meta map[string]any) (string, error) {
	const op = "storage.ReserveRecording"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var (
		usageCount, usedSeconds int
		usageLimit, minutes     int
		cycleStart              time.Time
	)
	err = tx.QueryRowContext(ctx,
		`SELECT usage_count, used_seconds, plan_monthly_usage_limit, plan_monthly_minutes, cycle_start
		 FROM user_subscriptions
		 WHERE user_uid = $1
		 FOR UPDATE`, userUID).
		Scan(&usageCount, &usedSeconds, &usageLimit, &minutes, &cycleStart)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", op, errs.ErrNoActiveSubscription)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if usageCount >= usageLimit {
		return "", fmt.Errorf("%s: %w", op, errs.JobQuotaExceeded(int64(usageCount), int64(usageLimit)))
	}
	if usedSeconds >= minutes*60 {
		return "", fmt.Errorf("%s: %w", op, errs.MinuteQuotaExceeded(int64(usedSeconds), int64(minutes*60)))
	}

	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var recordingID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO recordings (user_uid, source, language, status, cycle_start, meta)
		 VALUES ($1, $2, $3, 'PENDING', $4, $5)
		 RETURNING id`,
		userUID, source, language, cycleStart, metaJSON).Scan(&recordingID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE user_subscriptions SET usage_count = usage_count + 1 WHERE user_uid = $1`, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return recordingID, nil
}

// chargeSeconds списывает секунды на подписку в рамках уже открытой транзакции
// завершения записи. Списание адресуется циклу, активному в момент резервации:
// если цикл уже перекатился или сменился план, списывать некуда и нечестно —
// списание отбрасывается. Списание, ломающее инвариант секунд, отклоняется,
// а не обрезается.
func chargeSeconds(ctx context.Context, tx *sql.Tx, userUID string, reservedCycleStart time.Time, seconds int) error {
	const op = "storage.chargeSeconds"

	result, err := tx.ExecContext(ctx,
		`UPDATE user_subscriptions
		 SET used_seconds = used_seconds + $2
		 WHERE user_uid = $1
		   AND cycle_start = $3
		   AND used_seconds + $2 <= plan_monthly_minutes * 60`,
		userUID, seconds, reservedCycleStart)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 1 {
		return nil
	}

	// Either the reservation cycle is gone or the charge would break the cap.
	var usedSeconds, minutes int
	err = tx.QueryRowContext(ctx,
		`SELECT used_seconds, plan_monthly_minutes
		 FROM user_subscriptions
		 WHERE user_uid = $1 AND cycle_start = $2`,
		userUID, reservedCycleStart).Scan(&usedSeconds, &minutes)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, errs.ErrNoActiveSubscription)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, errs.MinuteQuotaExceeded(int64(usedSeconds), int64(minutes*60)))
}

// Rollback возвращает резервацию за окончательно неудавшуюся запись.
// Принятая политика: усечённый возврат. Слот usage_count намеренно остаётся
// потраченным до переката цикла, секунды не списывались и не списываются.
// Метод существует как единственная точка учёта этого решения: каждый
// фатальный исход проходит через него и попадает в метрику.
func (s *Storage) Rollback(ctx context.Context, recordingID string) error {
	const op = "storage.Rollback"

	var status models.RecordingStatus
	err := s.DB.QueryRowContext(ctx,
		`SELECT status FROM recordings WHERE id = $1`,
		recordingID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, errs.ErrRecordingNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if status != models.StatusFailed {
		return fmt.Errorf("%s: %w", op, errs.ErrInvalidRecordingState)
	}

	metrics.QuotaRollbacks.Inc()
	return nil
}

// RolloverExpired перекатывает истёкшие биллинговые циклы ограниченными
// пачками, чтобы не держать блокировки надолго. Для каждой подписки с
// cycle_end в прошлом: счётчики обнуляются, окно продвигается до актуального,
// и если живой план удалён или деактивирован — снапшот обновляется с плана
// по умолчанию (copy-on-rollover). Операция идемпотентна: повторный запуск
// не находит истёкших подписок.
func (s *Storage) RolloverExpired(ctx context.Context, now time.Time, batchSize int) (int, error) {
	const op = "storage.RolloverExpired"

	total := 0
	for {
		n, err := s.rolloverBatch(ctx, now, batchSize)
		if err != nil {
			return total, fmt.Errorf("%s: %w", op, err)
		}
		total += n
		if n < batchSize {
			return total, nil
		}
	}
}

func (s *Storage) rolloverBatch(ctx context.Context, now time.Time, batchSize int) (int, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, plan_id, cycle_start, cycle_end
		 FROM user_subscriptions
		 WHERE cycle_end <= $1
		 ORDER BY cycle_end
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`, now, batchSize)
	if err != nil {
		return 0, err
	}

	type expired struct {
		id     string
		planID *string
		window cycle.Window
	}
	var batch []expired
	for rows.Next() {
		var item expired
		if err := rows.Scan(&item.id, &item.planID, &item.window.Start, &item.window.End); err != nil {
			_ = rows.Close()
			return 0, err
		}
		batch = append(batch, item)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	for _, item := range batch {
		window := cycle.AdvanceUntil(item.window, now)

		resnapshot := true
		if item.planID != nil {
			var isActive bool
			err := tx.QueryRowContext(ctx,
				`SELECT is_active FROM plans WHERE id = $1`, *item.planID).Scan(&isActive)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return 0, err
			}
			resnapshot = errors.Is(err, sql.ErrNoRows) || !isActive
		}

		if resnapshot {
			_, err = tx.ExecContext(ctx,
				`UPDATE user_subscriptions
				 SET usage_count = 0, used_seconds = 0, cycle_start = $2, cycle_end = $3,
				     plan_id = p.id, plan_code = p.code, plan_name = p.name,
				     plan_monthly_minutes = p.monthly_minutes,
				     plan_monthly_usage_limit = p.monthly_usage_limit
				 FROM plans p
				 WHERE user_subscriptions.id = $1 AND p.is_default`,
				item.id, window.Start, window.End)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE user_subscriptions
				 SET usage_count = 0, used_seconds = 0, cycle_start = $2, cycle_end = $3
				 WHERE id = $1`,
				item.id, window.Start, window.End)
		}
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(batch), nil
}
