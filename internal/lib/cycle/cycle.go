// Package cycle содержит расчёт биллинговых окон подписки.
// Окно полуоткрытое: [Start, End), счётчики использования копятся внутри него.
package cycle

import "time"

// Window — биллинговое окно подписки.
type Window struct {
	Start time.Time
	End   time.Time
}

// Current возвращает месячное окно, содержащее момент now:
// с первого числа месяца до первого числа следующего месяца (UTC).
func Current(now time.Time) Window {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// Next возвращает окно, следующее сразу за w.
func Next(w Window) Window {
	return Window{Start: w.End, End: w.End.AddDate(0, 1, 0)}
}

// AdvanceUntil продвигает окно вперёд помесячно, пока now не окажется внутри него.
// Перекат, запущенный после нескольких пропущенных периодов, должен открыть
// актуальное окно, а не следующее за протухшим.
func AdvanceUntil(w Window, now time.Time) Window {
	now = now.UTC()
	for !w.End.After(now) {
		w = Next(w)
	}
	return w
}

// Expired сообщает, закончилось ли окно к моменту now.
func Expired(w Window, now time.Time) bool {
	return !w.End.After(now.UTC())
}
