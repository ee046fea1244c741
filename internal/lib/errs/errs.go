// Package errs определяет ошибки ядра учёта квот и жизненного цикла записей.
// Квотные и валидационные ошибки возвращаются синхронно вызывающему запросу;
// ошибки колбэков на неизвестных или терминальных записях ожидаемы при гонках
// и только логируются.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSubscription — у пользователя нет активной подписки.
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrUploadNotFound — аудиофайл не найден в хранилище при подтверждении загрузки.
	ErrUploadNotFound = errors.New("uploaded file not found in blob store")
	// ErrInvalidRecordingState — операция не применима к текущему статусу записи.
	ErrInvalidRecordingState = errors.New("recording is not in a valid state for this operation")
	// ErrAlreadyEnqueued — задача для записи уже ставилась в очередь.
	ErrAlreadyEnqueued = errors.New("transcription job already enqueued for recording")
	// ErrGatewayTimeout — шлюз транскрибации не ответил вовремя; попытка повторяется один раз.
	ErrGatewayTimeout = errors.New("transcription gateway timed out")
	// ErrGatewayRejected — шлюз транскрибации отклонил задачу; попытка повторяется один раз.
	ErrGatewayRejected = errors.New("transcription gateway rejected the job")
	// ErrCallbackOnUnknownRecording — колбэк для несуществующей записи, молча отбрасывается.
	ErrCallbackOnUnknownRecording = errors.New("callback for unknown recording")
	// ErrCallbackOnTerminalRecording — колбэк для записи в терминальном статусе, молча отбрасывается.
	ErrCallbackOnTerminalRecording = errors.New("callback for recording in terminal state")
	// ErrRecordingNotFound — запись не найдена.
	ErrRecordingNotFound = errors.New("recording not found")
	// ErrRealtimeNotSupported — realtime-записи пока не принимаются: отказ
	// происходит до резервации квоты, слот не расходуется.
	ErrRealtimeNotSupported = errors.New("realtime recordings are not supported yet")
)

// Виды квотных ошибок.
const (
	QuotaKindJob    = "job"
	QuotaKindMinute = "minute"
)

// QuotaError — структурированный отказ по квоте: какой лимит упёрся,
// текущее значение и предел. Не ретраится, отдаётся пользователю как есть.
type QuotaError struct {
	Kind    string `json:"kind"`
	Current int64  `json:"current"`
	Limit   int64  `json:"limit"`
}

func (e *QuotaError) Error() string {
	switch e.Kind {
	case QuotaKindJob:
		return fmt.Sprintf("job quota exceeded: %d of %d recordings used", e.Current, e.Limit)
	case QuotaKindMinute:
		return fmt.Sprintf("minute quota exceeded: %d of %d seconds used", e.Current, e.Limit)
	}
	return fmt.Sprintf("quota exceeded: %d of %d", e.Current, e.Limit)
}

// JobQuotaExceeded возвращает отказ по лимиту количества записей.
func JobQuotaExceeded(current, limit int64) *QuotaError {
	return &QuotaError{Kind: QuotaKindJob, Current: current, Limit: limit}
}

// MinuteQuotaExceeded возвращает отказ по лимиту секунд аудио.
func MinuteQuotaExceeded(current, limit int64) *QuotaError {
	return &QuotaError{Kind: QuotaKindMinute, Current: current, Limit: limit}
}

// AsQuotaError извлекает QuotaError из цепочки ошибок.
func AsQuotaError(err error) (*QuotaError, bool) {
	var qe *QuotaError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}

// Transient сообщает, стоит ли повторять задачу после этой ошибки.
func Transient(err error) bool {
	return errors.Is(err, ErrGatewayTimeout) || errors.Is(err, ErrGatewayRejected)
}
