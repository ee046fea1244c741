package models

import "time"

// Job — эфемерный дескриптор задачи транскрибации в очереди. За пределами
// очереди и воркера не хранится: авторитетное состояние задачи выражается
// только статусом записи.
type Job struct {
	JobID       string    `json:"job_id"`
	RecordingID string    `json:"recording_id"`
	UserUID     string    `json:"user_uid"`
	Language    string    `json:"language"`
	Attempt     int       `json:"attempt"` // Номер попытки, начиная с 1
	EnqueuedAt  time.Time `json:"enqueued_at"`
}
