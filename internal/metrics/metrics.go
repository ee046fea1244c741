// Package metrics определяет счётчики Prometheus конвейера транскрибации.
// Сами метрики отдаются на /metrics основного HTTP-сервера.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuotaRejections — отказы в резервации по видам квот.
	QuotaRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcribehub_quota_rejections_total",
		Help: "Reservation rejections by quota kind.",
	}, []string{"kind"})

	// QuotaRollbacks — возвраты резервации за неудачные записи. Счётчики
	// подписки при этом не меняются: слот остаётся потраченным до переката
	// цикла, метрика делает это решение наблюдаемым.
	QuotaRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcribehub_quota_rollbacks_total",
		Help: "Reservation rollbacks for failed recordings (counters intentionally untouched).",
	})

	// RecordingsCompleted — записи, завершённые успешно.
	RecordingsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcribehub_recordings_completed_total",
		Help: "Recordings that reached the DONE state.",
	})

	// RecordingsFailed — записи, завершённые с ошибкой, по источнику отказа.
	RecordingsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcribehub_recordings_failed_total",
		Help: "Recordings that reached the FAILED state by failure origin.",
	}, []string{"origin"})

	// JobRetries — повторные постановки задач после транзиентных ошибок шлюза.
	JobRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcribehub_job_retries_total",
		Help: "Transcription jobs re-enqueued after transient gateway errors.",
	})

	// SweptRecordings — записи, добитые свипом по таймауту обработки.
	SweptRecordings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcribehub_swept_recordings_total",
		Help: "Stuck PROCESSING recordings failed by the sweep.",
	})

	// CycleRollovers — перекаты биллинговых циклов подписок.
	CycleRollovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcribehub_cycle_rollovers_total",
		Help: "Subscription billing cycles rolled over.",
	})

	// CallbacksDropped — отброшенные колбэки шлюза по причинам.
	CallbacksDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcribehub_callbacks_dropped_total",
		Help: "Gateway callbacks dropped by reason.",
	}, []string{"reason"})
)

// Причины отказа записи для метрики RecordingsFailed.
const (
	FailOriginGateway = "gateway"
	FailOriginSweep   = "sweep"
	FailOriginWorker  = "worker"
)
