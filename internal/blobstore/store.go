// Package blobstore содержит клиент хранилища аудиофайлов. Сервис не
// проксирует байты аудио: клиенты загружают и скачивают файлы напрямую
// по предподписанным URL, а здесь только выписываются URL и проверяется
// существование объекта.
package blobstore

import (
	"context"
	"fmt"
	"time"
)

// Store — операции хранилища аудио, используемые сервисом и воркером.
type Store interface {
	// PresignUpload выписывает URL для загрузки объекта методом PUT.
	PresignUpload(ctx context.Context, key string, expiry time.Duration) (string, error)
	// PresignDownload выписывает URL для скачивания объекта методом GET.
	PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Exists проверяет, что объект действительно загружен.
	Exists(ctx context.Context, key string) (bool, error)
}

// ObjectKey возвращает ключ аудиофайла записи в хранилище.
func ObjectKey(userUID, recordingID string) string {
	return fmt.Sprintf("%s/recordings/%s.wav", userUID, recordingID)
}
