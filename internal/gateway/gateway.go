// Package gateway содержит клиент удалённого шлюза транскрибации и проверку
// подписи его колбэков. Шлюз работает асинхронно: исходящий запрос только
// принимает задачу, результат приходит отдельным HTTP-колбэком.
package gateway

import (
	"context"
)

// Request — задача транскрибации, отправляемая шлюзу. AudioURL — предподписанная
// ссылка на скачивание аудио, CallbackURL — адрес, куда шлюз пришлёт результат.
type Request struct {
	JobID       string `json:"job_id"`
	RecordingID string `json:"recording_id"`
	AudioURL    string `json:"audio_url"`
	Language    string `json:"language"`
	CallbackURL string `json:"callback_url"`
}

// Transcriber — исходящий контракт шлюза транскрибации.
type Transcriber interface {
	// Transcribe передаёт задачу шлюзу. Возвращает errs.ErrGatewayTimeout,
	// если шлюз не ответил вовремя, и errs.ErrGatewayRejected, если задача
	// отклонена. Обе ошибки транзиентные и дают право на повтор.
	Transcribe(ctx context.Context, req Request) error
}
