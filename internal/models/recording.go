package models

import "time"

// RecordingStatus описывает состояние записи в конвейере транскрибации.
type RecordingStatus string

// Состояния записи. DONE и FAILED терминальные: переходов из них нет.
const (
	StatusPending    RecordingStatus = "PENDING"
	StatusProcessing RecordingStatus = "PROCESSING"
	StatusDone       RecordingStatus = "DONE"
	StatusFailed     RecordingStatus = "FAILED"
)

// Terminal сообщает, является ли состояние терминальным.
func (s RecordingStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Источники записи.
const (
	SourceUpload   = "upload"
	SourceRealtime = "realtime"
)

// Recording представляет одну попытку транскрибации. Статус меняется только
// через охраняемые переходы в слое хранилища; CycleStart фиксирует цикл
// подписки, в котором была сделана резервация, чтобы списание секунд
// при завершении попало в тот же цикл.
type Recording struct {
	ID          string          // Уникальный идентификатор записи
	UserUID     string          // Владелец записи
	Source      string          // Источник: upload или realtime
	Language    string          // Язык аудио
	Status      RecordingStatus // Текущее состояние
	DurationMS  int64           // Длительность в миллисекундах, 0 до завершения
	CycleStart  time.Time       // Начало цикла подписки на момент резервации
	EnqueuedAt  *time.Time      // Время постановки в очередь, nil если не ставилась
	CreatedAt   time.Time       // Время создания
	CompletedAt *time.Time      // Время завершения (DONE или FAILED)
	Meta        map[string]any  // Произвольные метаданные, сюда же пишется ошибка
}

// RecordingStats — агрегированная статистика записей пользователя.
type RecordingStats struct {
	TotalRecordings      int     `json:"total_recordings"`
	TotalDurationMS      int64   `json:"total_duration_ms"`
	TotalDurationMinutes float64 `json:"total_duration_minutes"`
	DoneCount            int     `json:"done_count"`
	ProcessingCount      int     `json:"processing_count"`
	FailedCount          int     `json:"failed_count"`
}

// RecordingFilter — параметры выборки списка записей.
type RecordingFilter struct {
	UserUID  string  // Владелец
	Status   *string // Фильтр по статусу, nil — без фильтра
	Source   *string // Фильтр по источнику
	Language *string // Фильтр по языку
	Limit    int
	Offset   int
}

// DummyCreateRecording используется для приёма запроса на создание записи.
type DummyCreateRecording struct {
	Source   string         `json:"source" validate:"required,oneof=upload realtime"` // Источник записи
	Language string         `json:"language" validate:"required,min=2,max=8"`         // Код языка, например "vi" или "en"
	Meta     map[string]any `json:"meta,omitempty" validate:"omitempty"`              // Метаданные (опционально)
}

// DummyUploadComplete используется для подтверждения загрузки аудио.
type DummyUploadComplete struct {
	RecordingID string `json:"recording_id" validate:"required,uuid"`
}
