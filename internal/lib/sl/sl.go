// Package sl содержит мелкие помощники для структурированного логирования
// через slog.
package sl

import "log/slog"

// Err упаковывает ошибку в slog.Attr с ключом "error", чтобы поле ошибки
// во всех логах сервиса называлось одинаково.
//
//	log.Error("failed to reserve recording", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.String("error", err.Error())
}
