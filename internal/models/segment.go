package models

// Segment — упорядоченный фрагмент расшифровки завершённой записи.
// Сегменты создаются только одним пакетом при завершении записи
// и после этого не изменяются.
type Segment struct {
	ID          string `json:"id"`
	RecordingID string `json:"recording_id"`
	Idx         int    `json:"idx"`      // Порядковый номер, непрерывный с нуля
	StartMS     int64  `json:"start_ms"` // Смещение начала в миллисекундах
	EndMS       int64  `json:"end_ms"`   // Смещение конца в миллисекундах
	Text        string `json:"text"`
}

// DummySegment используется для приёма сегмента из колбэка шлюза.
type DummySegment struct {
	Idx     int    `json:"idx" validate:"min=0"`
	StartMS int64  `json:"start_ms" validate:"min=0"`
	EndMS   int64  `json:"end_ms" validate:"required,min=1"`
	Text    string `json:"text" validate:"required"`
}

// DummyCompleteCallback — тело колбэка успешного завершения транскрибации.
type DummyCompleteCallback struct {
	RecordingID string         `json:"recording_id" validate:"required,uuid"`
	DurationMS  int64          `json:"duration_ms" validate:"required,min=1"`
	Segments    []DummySegment `json:"segments" validate:"required,dive"`
}

// DummyFailCallback — тело колбэка ошибки транскрибации.
type DummyFailCallback struct {
	RecordingID  string `json:"recording_id" validate:"required,uuid"`
	Status       string `json:"status" validate:"required,eq=FAILED"`
	ErrorMessage string `json:"error_message" validate:"required"`
}
