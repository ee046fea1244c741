// Package read реализует HTTP-обработчик получения записи с сегментами.
package read

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
	recording "github.com/magabrotheeeer/transcribe-hub/internal/services/recording"
)

// Handler управляет HTTP-запросами на чтение записи.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения записи.
type Service interface {
	Read(ctx context.Context, userUID, recordingID string) (*recording.RecordingDetail, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить запись
// @Description Возвращает запись и её сегменты транскрипции. Запись доступна только владельцу.
// @Tags Recordings
// @Security BearerAuth
// @Produce  json
// @Param id path string true "ID записи"
// @Success 200 {object} map[string]any "Запись и сегменты"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /recordings/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recording.read"
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
	detail, err := h.service.Read(r.Context(), userUID, recordingID)
	if err != nil {
		if errors.Is(err, errs.ErrRecordingNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("recording not found"))
			return
		}
		log.Error("failed to read recording", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read recording"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"recording": detail.Recording,
		"segments":  detail.Segments,
	}))
}
