// Package models содержит доменные структуры подписочной модели и жизненного цикла
// записей, а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Plan представляет тарифный план. После публикации план не изменяется:
// вместо правки существующего плана создаётся новый, а старый деактивируется.
// Деактивация не ломает действующие подписки — они работают по снапшоту
// до следующего переката цикла.
type Plan struct {
	ID                string    // Уникальный идентификатор плана
	Code              string    // Код плана (уникальный, верхний регистр, например "FREE")
	Name              string    // Отображаемое имя плана
	MonthlyMinutes    int       // Лимит минут аудио на биллинговый цикл
	MonthlyUsageLimit int       // Лимит количества записей на биллинговый цикл
	IsActive          bool      // Активен ли план для новых подписок
	IsDefault         bool      // Является ли план системным планом по умолчанию
	CreatedAt         time.Time // Дата создания
}

// PlanSnapshot — копия атрибутов плана, встроенная в подписку в момент
// подключения или переката цикла. Учёт квот ведётся только по снапшоту,
// поэтому удаление или деактивация живого плана не влияет на текущий цикл.
type PlanSnapshot struct {
	Code              string // Код плана на момент снапшота
	Name              string // Имя плана на момент снапшота
	MonthlyMinutes    int    // Лимит минут на цикл
	MonthlyUsageLimit int    // Лимит записей на цикл
}

// MaxSeconds возвращает лимит секунд аудио, вычисленный из лимита минут.
func (p PlanSnapshot) MaxSeconds() int {
	return p.MonthlyMinutes * 60
}
