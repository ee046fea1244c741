package models

import "time"

// Subscription представляет подписку пользователя — единственную на пользователя.
// Хранит ссылку на живой план (может стать nil после деактивации плана),
// снапшот плана и счётчики использования текущего биллингового цикла.
// Инварианты: UsageCount <= Plan.MonthlyUsageLimit и
// UsedSeconds <= Plan.MaxSeconds() после каждой зафиксированной мутации.
type Subscription struct {
	ID          string       // Уникальный идентификатор подписки
	UserUID     string       // Идентификатор пользователя (уникальный)
	PlanID      *string      // Ссылка на живой план, nil если план удалён
	Plan        PlanSnapshot // Снапшот плана, по которому ведётся учёт
	CycleStart  time.Time    // Начало биллингового цикла
	CycleEnd    time.Time    // Конец биллингового цикла (не включается)
	UsageCount  int          // Количество созданных записей в этом цикле
	UsedSeconds int          // Потраченные секунды аудио в этом цикле
}

// UsageStats — статистика использования квот для выдачи пользователю.
type UsageStats struct {
	UsageCount        int     `json:"usage_count"`
	MonthlyUsageLimit int     `json:"monthly_usage_limit"`
	RemainingCount    int     `json:"remaining_count"`
	UsedSeconds       int     `json:"used_seconds"`
	MonthlySeconds    int     `json:"monthly_seconds"`
	RemainingSeconds  int     `json:"remaining_seconds"`
	UsedMinutes       float64 `json:"used_minutes"`
	MonthlyMinutes    int     `json:"monthly_minutes"`
	RemainingMinutes  float64 `json:"remaining_minutes"`
	UsedPercent       float64 `json:"used_percent"`
}

// BuildUsageStats собирает статистику использования из подписки.
func BuildUsageStats(sub *Subscription) UsageStats {
	monthlySeconds := sub.Plan.MaxSeconds()
	remainingSeconds := monthlySeconds - sub.UsedSeconds
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}
	remainingCount := sub.Plan.MonthlyUsageLimit - sub.UsageCount
	if remainingCount < 0 {
		remainingCount = 0
	}
	var usedPercent float64
	if monthlySeconds > 0 {
		usedPercent = float64(sub.UsedSeconds) / float64(monthlySeconds) * 100
	}
	return UsageStats{
		UsageCount:        sub.UsageCount,
		MonthlyUsageLimit: sub.Plan.MonthlyUsageLimit,
		RemainingCount:    remainingCount,
		UsedSeconds:       sub.UsedSeconds,
		MonthlySeconds:    monthlySeconds,
		RemainingSeconds:  remainingSeconds,
		UsedMinutes:       float64(sub.UsedSeconds) / 60,
		MonthlyMinutes:    sub.Plan.MonthlyMinutes,
		RemainingMinutes:  float64(remainingSeconds) / 60,
		UsedPercent:       usedPercent,
	}
}
