// Package stats реализует HTTP-обработчик статистики записей пользователя.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/transcribe-hub/internal/http/middlewarectx"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/response"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// Handler управляет HTTP-запросами на получение статистики записей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики статистики.
type Service interface {
	Stats(ctx context.Context, userUID string) (*models.RecordingStats, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить статистику записей
// @Description Возвращает агрегированную статистику: количество записей по статусам и суммарную длительность.
// @Tags Recordings
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} models.RecordingStats "Статистика записей"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /recordings/stats [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recording.stats"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFromContext(r.Context())
	if !ok {
		log.Error("user uid missing in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.Stats(r.Context(), userUID)
	if err != nil {
		log.Error("failed to get recording stats", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get recording stats"))
		return
	}

	render.JSON(w, r, response.OKWithData(result))
}
