// Package remove реализует HTTP-обработчик удаления записи.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/transcribe-hub/internal/http/middlewarectx"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/response"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
)

// Handler управляет HTTP-запросами на удаление записи.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления записи.
type Service interface {
	Remove(ctx context.Context, userUID, recordingID string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить запись
// @Description Удаляет запись вместе с сегментами. Слот квоты не возвращается.
// @Tags Recordings
// @Security BearerAuth
// @Produce  json
// @Param id path string true "ID записи"
// @Success 200 {object} response.Response "Запись удалена"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /recordings/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recording.remove"
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

	recordingID := chi.URLParam(r, "id")
	if err := h.service.Remove(r.Context(), userUID, recordingID); err != nil {
		if errors.Is(err, errs.ErrRecordingNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("recording not found"))
			return
		}
		log.Error("failed to remove recording", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not remove recording"))
		return
	}

	log.Info("recording removed", slog.String("recording_id", recordingID))
	render.JSON(w, r, response.OK())
}
