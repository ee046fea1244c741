// Package list реализует HTTP-обработчик списка записей пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/transcribe-hub/internal/http/middlewarectx"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/response"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// Handler управляет HTTP-запросами на получение списка записей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка записей.
type Service interface {
	List(ctx context.Context, filter models.RecordingFilter) ([]*models.Recording, int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить список записей
// @Description Возвращает записи пользователя с фильтрами по статусу, источнику и языку.
// @Tags Recordings
// @Security BearerAuth
// @Produce  json
// @Param status query string false "Фильтр по статусу"
// @Param source query string false "Фильтр по источнику"
// @Param language query string false "Фильтр по языку"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]any "Список записей и общее количество"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /recordings [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recording.list"
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

	filter := models.RecordingFilter{UserUID: userUID}
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("source"); v != "" {
		filter.Source = &v
	}
	if v := q.Get("language"); v != "" {
		filter.Language = &v
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	recordings, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error("failed to list recordings", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list recordings"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"recordings": recordings,
		"total":      total,
	}))
}
