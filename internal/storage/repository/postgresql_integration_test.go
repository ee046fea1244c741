package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/transcribe-hub/internal/lib/cycle"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

func currentWindow() cycle.Window {
	return cycle.Current(time.Now().UTC())
}

func TestStorage_ReserveRecording_QuotaLimits(t *testing.T) {
	window := currentWindow()

	tests := []struct {
		name        string
		planCode    string
		usageCount  int
		usedSeconds int
		wantKind    string
		wantErr     bool
	}{
		{
			name:     "successful reservation on fresh subscription",
			planCode: "FREE",
			wantErr:  false,
		},
		{
			name:       "job quota exhausted",
			planCode:   "FREE",
			usageCount: 10,
			wantKind:   errs.QuotaKindJob,
			wantErr:    true,
		},
		{
			name:        "minute quota exhausted",
			planCode:    "FREE",
			usedSeconds: 1800,
			wantKind:    errs.QuotaKindMinute,
			wantErr:     true,
		},
		{
			name:        "one second below minute cap still passes",
			planCode:    "FREE",
			usedSeconds: 1799,
			wantErr:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := factory.CreateUser(t, "testuser", "test@example.com")
			factory.CreateSubscriptionOnPlan(t, userUID, tt.planCode, window.Start, window.End)
			if tt.usageCount > 0 || tt.usedSeconds > 0 {
				factory.SetUsage(t, userUID, tt.usageCount, tt.usedSeconds)
			}

			recordingID, err := storage.ReserveRecording(context.Background(), userUID,
				models.SourceUpload, "en", nil)

			if tt.wantErr {
				require.Error(t, err)
				quotaErr, ok := errs.AsQuotaError(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantKind, quotaErr.Kind)
				// Неудачная резервация не создаёт запись и не трогает счетчик.
				verification := NewTestVerification(storage)
				verification.VerifyUsage(t, userUID, tt.usageCount, tt.usedSeconds)
			} else {
				require.NoError(t, err)
				require.NotEmpty(t, recordingID)
				verification := NewTestVerification(storage)
				verification.VerifyRecordingStatus(t, recordingID, "PENDING")
				verification.VerifyUsage(t, userUID, tt.usageCount+1, tt.usedSeconds)
			}
		})
	}
}

func TestStorage_ReserveRecording_NoSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")

	_, err := storage.ReserveRecording(context.Background(), userUID, models.SourceUpload, "en", nil)
	require.ErrorIs(t, err, errs.ErrNoActiveSubscription)
}

func TestStorage_ReserveRecording_SurvivesPlanDeactivation(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "PREMIUM", window.Start, window.End)
	factory.SetUsage(t, userUID, 11, 0)

	// План деактивирован посреди цикла: снапшот лимитов в подписке остаётся
	// в силе до переката, резервации продолжают проходить по допускам PREMIUM,
	// хотя 11 использований уже превышают лимит FREE.
	_, err := storage.DB.Exec(`UPDATE plans SET is_active = false WHERE code = 'PREMIUM'`)
	require.NoError(t, err)

	recordingID, err := storage.ReserveRecording(context.Background(), userUID,
		models.SourceUpload, "en", nil)
	require.NoError(t, err)
	require.NotEmpty(t, recordingID)

	verification := NewTestVerification(storage)
	verification.VerifyRecordingStatus(t, recordingID, "PENDING")
	verification.VerifyUsage(t, userUID, 12, 0)

	sub, err := storage.GetSubscription(context.Background(), userUID)
	require.NoError(t, err)
	assert.Equal(t, 1500, sub.Plan.MonthlyMinutes)
	assert.Equal(t, 500, sub.Plan.MonthlyUsageLimit)
}

func TestStorage_ReserveRecording_ConcurrentNeverOvershoots(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "FREE", window.Start, window.End)
	factory.SetUsage(t, userUID, 7, 0)

	// 10 конкурентных резерваций при 3 оставшихся слотах: ровно 3 должны пройти.
	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := storage.ReserveRecording(context.Background(), userUID,
				models.SourceUpload, "en", nil)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		quotaErr, ok := errs.AsQuotaError(err)
		require.True(t, ok, "unexpected error: %v", err)
		assert.Equal(t, errs.QuotaKindJob, quotaErr.Kind)
		rejected++
	}
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 7, rejected)

	verification := NewTestVerification(storage)
	verification.VerifyUsage(t, userUID, 10, 0)
}

func TestStorage_CompleteRecording(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "FREE", window.Start, window.End)

	recordingID, err := storage.ReserveRecording(context.Background(), userUID,
		models.SourceUpload, "en", nil)
	require.NoError(t, err)
	require.NoError(t, storage.MarkEnqueued(context.Background(), recordingID, time.Now()))
	require.NoError(t, storage.MarkProcessing(context.Background(), recordingID))

	segments := []models.Segment{
		{Idx: 0, StartMS: 0, EndMS: 3000, Text: "hello"},
		{Idx: 1, StartMS: 3000, EndMS: 61500, Text: "world"},
	}
	err = storage.CompleteRecording(context.Background(), recordingID, 61500, segments)
	require.NoError(t, err)

	verification.VerifyRecordingStatus(t, recordingID, "DONE")
	verification.VerifySegmentsCount(t, recordingID, 2)
	// 61500 мс округляются вниз до 61 секунды.
	verification.VerifyUsage(t, userUID, 1, 61)

	rec, gotSegments, err := storage.GetRecording(context.Background(), recordingID)
	require.NoError(t, err)
	assert.Equal(t, int64(61500), rec.DurationMS)
	assert.NotNil(t, rec.CompletedAt)
	require.Len(t, gotSegments, 2)
	assert.Equal(t, "hello", gotSegments[0].Text)

	// Повторный колбэк отклоняется и не списывает секунды второй раз.
	err = storage.CompleteRecording(context.Background(), recordingID, 61500, segments)
	require.ErrorIs(t, err, errs.ErrCallbackOnTerminalRecording)
	verification.VerifyUsage(t, userUID, 1, 61)
	verification.VerifySegmentsCount(t, recordingID, 2)
}

func TestStorage_CompleteRecording_InvalidStates(t *testing.T) {
	window := currentWindow()

	tests := []struct {
		name    string
		status  string
		wantErr error
	}{
		{name: "callback on pending recording", status: "PENDING", wantErr: errs.ErrInvalidRecordingState},
		{name: "callback on failed recording", status: "FAILED", wantErr: errs.ErrCallbackOnTerminalRecording},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userUID := factory.CreateUser(t, "testuser", "test@example.com")
			factory.CreateSubscriptionOnPlan(t, userUID, "FREE", window.Start, window.End)
			recordingID := factory.CreateRecording(t, userUID, tt.status, window.Start)

			err := storage.CompleteRecording(context.Background(), recordingID, 1000, nil)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStorage_CompleteRecording_UnknownRecording(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	err := storage.CompleteRecording(context.Background(),
		"00000000-0000-0000-0000-000000000000", 1000, nil)
	require.ErrorIs(t, err, errs.ErrCallbackOnUnknownRecording)
}

func TestStorage_CompleteRecording_ChargeOvershootDiscarded(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "FREE", window.Start, window.End)

	recordingID, err := storage.ReserveRecording(context.Background(), userUID,
		models.SourceUpload, "en", nil)
	require.NoError(t, err)
	require.NoError(t, storage.MarkEnqueued(context.Background(), recordingID, time.Now()))
	require.NoError(t, storage.MarkProcessing(context.Background(), recordingID))

	// Почти весь лимит секунд уже израсходован, а запись длиннее остатка.
	factory.SetUsage(t, userUID, 1, 1790)
	err = storage.CompleteRecording(context.Background(), recordingID, 120000, nil)
	require.NoError(t, err)

	// Запись завершена, но списание, ломающее лимит, отброшено.
	verification.VerifyRecordingStatus(t, recordingID, "DONE")
	verification.VerifyUsage(t, userUID, 1, 1790)

	rec, _, err := storage.GetRecording(context.Background(), recordingID)
	require.NoError(t, err)
	assert.Contains(t, rec.Meta, "charge_discarded")
}

func TestStorage_CompleteRecording_StaleCycleChargeDiscarded(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "FREE", window.Start, window.End)

	// Запись зарезервирована в прошлом цикле, который уже перекатился.
	staleStart := window.Start.AddDate(0, -1, 0)
	recordingID := factory.CreateRecording(t, userUID, "PROCESSING", staleStart)

	err := storage.CompleteRecording(context.Background(), recordingID, 60000, nil)
	require.NoError(t, err)

	verification.VerifyRecordingStatus(t, recordingID, "DONE")
	verification.VerifyUsage(t, userUID, 0, 0)
}

func TestStorage_FailRecording(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "FREE", window.Start, window.End)

	recordingID, err := storage.ReserveRecording(context.Background(), userUID,
		models.SourceUpload, "en", nil)
	require.NoError(t, err)
	require.NoError(t, storage.MarkEnqueued(context.Background(), recordingID, time.Now()))
	require.NoError(t, storage.MarkProcessing(context.Background(), recordingID))

	err = storage.FailRecording(context.Background(), recordingID, "engine crashed")
	require.NoError(t, err)

	// Слот usage_count остаётся потраченным, секунды не списываются.
	verification.VerifyRecordingStatus(t, recordingID, "FAILED")
	verification.VerifyUsage(t, userUID, 1, 0)

	rec, _, err := storage.GetRecording(context.Background(), recordingID)
	require.NoError(t, err)
	assert.Equal(t, "engine crashed", rec.Meta["error"])

	// Повторный колбэк ошибки на терминальную запись отклоняется.
	err = storage.FailRecording(context.Background(), recordingID, "again")
	require.ErrorIs(t, err, errs.ErrCallbackOnTerminalRecording)
}

func TestStorage_Rollback(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "FREE", window.Start, window.End)

	recordingID, err := storage.ReserveRecording(context.Background(), userUID,
		models.SourceUpload, "en", nil)
	require.NoError(t, err)

	// Возврат применим только к записи в FAILED.
	err = storage.Rollback(context.Background(), recordingID)
	require.ErrorIs(t, err, errs.ErrInvalidRecordingState)

	require.NoError(t, storage.MarkEnqueued(context.Background(), recordingID, time.Now()))
	require.NoError(t, storage.MarkProcessing(context.Background(), recordingID))
	require.NoError(t, storage.FailRecording(context.Background(), recordingID, "engine crashed"))

	require.NoError(t, storage.Rollback(context.Background(), recordingID))

	// Возврат усечённый: слот usage_count остаётся потраченным, секунды
	// не списывались и не списываются.
	verification.VerifyUsage(t, userUID, 1, 0)

	err = storage.Rollback(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, errs.ErrRecordingNotFound)
}

func TestStorage_MarkEnqueued_DuplicateGuard(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "FREE", window.Start, window.End)
	recordingID := factory.CreateRecording(t, userUID, "PENDING", window.Start)

	require.NoError(t, storage.MarkEnqueued(context.Background(), recordingID, time.Now()))
	err := storage.MarkEnqueued(context.Background(), recordingID, time.Now())
	require.ErrorIs(t, err, errs.ErrAlreadyEnqueued)

	err = storage.MarkEnqueued(context.Background(),
		"00000000-0000-0000-0000-000000000000", time.Now())
	require.ErrorIs(t, err, errs.ErrRecordingNotFound)
}

func TestStorage_MarkProcessing_GuardedTransition(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "FREE", window.Start, window.End)

	recordingID := factory.CreateRecording(t, userUID, "PENDING", window.Start)
	require.NoError(t, storage.MarkProcessing(context.Background(), recordingID))

	// Повторный переход из PROCESSING запрещён.
	err := storage.MarkProcessing(context.Background(), recordingID)
	require.ErrorIs(t, err, errs.ErrInvalidRecordingState)

	doneID := factory.CreateRecording(t, userUID, "DONE", window.Start)
	err = storage.MarkProcessing(context.Background(), doneID)
	require.ErrorIs(t, err, errs.ErrInvalidRecordingState)
}

func TestStorage_SweepStuckProcessing(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "FREE", window.Start, window.End)

	stuckID := factory.CreateRecording(t, userUID, "PROCESSING", window.Start)
	factory.MarkEnqueuedAt(t, stuckID, time.Now().Add(-20*time.Minute))
	freshID := factory.CreateRecording(t, userUID, "PROCESSING", window.Start)
	factory.MarkEnqueuedAt(t, freshID, time.Now())
	pendingID := factory.CreateRecording(t, userUID, "PENDING", window.Start)

	killed, err := storage.SweepStuckProcessing(context.Background(), time.Now().Add(-10*time.Minute))
	require.NoError(t, err)
	require.Len(t, killed, 1)
	assert.Equal(t, stuckID, killed[0])

	verification.VerifyRecordingStatus(t, stuckID, "FAILED")
	verification.VerifyRecordingStatus(t, freshID, "PROCESSING")
	verification.VerifyRecordingStatus(t, pendingID, "PENDING")

	// Опоздавший колбэк после свипа проигрывает гонку.
	err = storage.CompleteRecording(context.Background(), stuckID, 60000, nil)
	require.ErrorIs(t, err, errs.ErrCallbackOnTerminalRecording)
	verification.VerifyUsage(t, userUID, 0, 0)
}

func TestStorage_RolloverExpired(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	now := time.Now().UTC()
	currentW := cycle.Current(now)
	expiredW := cycle.Window{
		Start: currentW.Start.AddDate(0, -2, 0),
		End:   currentW.Start.AddDate(0, -1, 0),
	}

	factory := NewTestDataFactory(storage)
	verification := NewTestVerification(storage)

	expiredUID := factory.CreateUser(t, "expired", "expired@example.com")
	factory.CreateSubscriptionOnPlan(t, expiredUID, "BASIC", expiredW.Start, expiredW.End)
	factory.SetUsage(t, expiredUID, 5, 300)

	activeUID := factory.CreateUser(t, "active", "active@example.com")
	factory.CreateSubscriptionOnPlan(t, activeUID, "FREE", currentW.Start, currentW.End)
	factory.SetUsage(t, activeUID, 2, 60)

	n, err := storage.RolloverExpired(context.Background(), now, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Истёкшая подписка обнулена и перенесена в актуальное окно.
	verification.VerifyUsage(t, expiredUID, 0, 0)
	sub, err := storage.GetSubscription(context.Background(), expiredUID)
	require.NoError(t, err)
	assert.True(t, sub.CycleStart.Equal(currentW.Start), "cycle_start = %v, want %v", sub.CycleStart, currentW.Start)
	assert.True(t, sub.CycleEnd.Equal(currentW.End))
	assert.Equal(t, "BASIC", sub.Plan.Code)

	// Активная подписка не тронута.
	verification.VerifyUsage(t, activeUID, 2, 60)

	// Повторный прогон идемпотентен.
	n, err = storage.RolloverExpired(context.Background(), now, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStorage_RolloverExpired_ResnapshotsDeactivatedPlan(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	now := time.Now().UTC()
	currentW := cycle.Current(now)
	expiredW := cycle.Window{
		Start: currentW.Start.AddDate(0, -1, 0),
		End:   currentW.Start,
	}

	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "PREMIUM", expiredW.Start, expiredW.End)

	_, err := storage.DB.Exec(`UPDATE plans SET is_active = false WHERE code = 'PREMIUM'`)
	require.NoError(t, err)

	n, err := storage.RolloverExpired(context.Background(), now, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// План деактивирован, поэтому снапшот заменён планом по умолчанию.
	sub, err := storage.GetSubscription(context.Background(), userUID)
	require.NoError(t, err)
	assert.Equal(t, "FREE", sub.Plan.Code)
	assert.Equal(t, 30, sub.Plan.MonthlyMinutes)
	assert.Equal(t, 10, sub.Plan.MonthlyUsageLimit)
}

func TestStorage_RolloverExpired_Batching(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	now := time.Now().UTC()
	currentW := cycle.Current(now)
	expiredW := cycle.Window{
		Start: currentW.Start.AddDate(0, -1, 0),
		End:   currentW.Start,
	}

	factory := NewTestDataFactory(storage)
	for i := range 5 {
		uid := factory.CreateUser(t,
			fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i))
		factory.CreateSubscriptionOnPlan(t, uid, "FREE", expiredW.Start, expiredW.End)
	}

	// Размер пачки меньше числа истёкших подписок: перекатываются все за
	// несколько пачек внутри одного вызова.
	n, err := storage.RolloverExpired(context.Background(), now, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestStorage_ListRecordings(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	otherUID := factory.CreateUser(t, "other", "other@example.com")
	factory.CreateSubscriptionOnPlan(t, userUID, "FREE", window.Start, window.End)

	factory.CreateRecording(t, userUID, "DONE", window.Start)
	factory.CreateRecording(t, userUID, "DONE", window.Start)
	factory.CreateRecording(t, userUID, "FAILED", window.Start)
	factory.CreateRecording(t, otherUID, "DONE", window.Start)

	doneStatus := "DONE"
	got, total, err := storage.ListRecordings(context.Background(), models.RecordingFilter{
		UserUID: userUID,
		Status:  &doneStatus,
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, got, 2)

	got, total, err = storage.ListRecordings(context.Background(), models.RecordingFilter{
		UserUID: userUID,
		Limit:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, got, 2)
}

func TestStorage_DeleteRecording_OwnerOnly(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")
	otherUID := factory.CreateUser(t, "other", "other@example.com")
	recordingID := factory.CreateRecording(t, userUID, "DONE", window.Start)

	err := storage.DeleteRecording(context.Background(), recordingID, otherUID)
	require.ErrorIs(t, err, errs.ErrRecordingNotFound)

	err = storage.DeleteRecording(context.Background(), recordingID, userUID)
	require.NoError(t, err)

	_, _, err = storage.GetRecording(context.Background(), recordingID)
	require.ErrorIs(t, err, errs.ErrRecordingNotFound)
}

func TestStorage_GetRecordingStats(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	window := currentWindow()
	factory := NewTestDataFactory(storage)
	userUID := factory.CreateUser(t, "testuser", "test@example.com")

	doneID := factory.CreateRecording(t, userUID, "DONE", window.Start)
	_, err := storage.DB.Exec(`UPDATE recordings SET duration_ms = 90000 WHERE id = $1`, doneID)
	require.NoError(t, err)
	factory.CreateRecording(t, userUID, "PROCESSING", window.Start)
	factory.CreateRecording(t, userUID, "FAILED", window.Start)

	stats, err := storage.GetRecordingStats(context.Background(), userUID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRecordings)
	assert.Equal(t, int64(90000), stats.TotalDurationMS)
	assert.InDelta(t, 1.5, stats.TotalDurationMinutes, 0.001)
	assert.Equal(t, 1, stats.DoneCount)
	assert.Equal(t, 1, stats.ProcessingCount)
	assert.Equal(t, 1, stats.FailedCount)
}

func TestStorage_Plans(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	plan, err := storage.GetPlanByCode(context.Background(), "BASIC")
	require.NoError(t, err)
	assert.Equal(t, "BASIC", plan.Code)
	assert.Equal(t, 300, plan.MonthlyMinutes)

	defaultPlan, err := storage.GetDefaultPlan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "FREE", defaultPlan.Code)

	plans, err := storage.ListActivePlans(context.Background())
	require.NoError(t, err)
	assert.Len(t, plans, 3)

	// План по умолчанию деактивировать нельзя.
	err = storage.DeactivatePlan(context.Background(), "FREE")
	require.Error(t, err)

	require.NoError(t, storage.DeactivatePlan(context.Background(), "PREMIUM"))
	plans, err = storage.ListActivePlans(context.Background())
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}
