// Package uploadcomplete реализует HTTP-обработчик подтверждения загрузки аудио.
package uploadcomplete

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/transcribe-hub/internal/http/middlewarectx"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/response"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// Handler управляет HTTP-запросами на подтверждение загрузки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики подтверждения загрузки.
type Service interface {
	UploadComplete(ctx context.Context, userUID, recordingID string) (string, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Подтвердить загрузку аудио
// @Description Проверяет наличие файла в хранилище и ставит задачу транскрибации в очередь.
// @Tags Recordings
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.DummyUploadComplete true "ID записи"
// @Success 200 {object} map[string]any "Идентификатор поставленной задачи"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Запись или файл не найдены"
// @Failure 409 {object} response.ErrorResponse "Задача уже в очереди или запись в неверном статусе"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /recordings/upload-complete [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recording.uploadcomplete"
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

	var req models.DummyUploadComplete
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	jobID, err := h.service.UploadComplete(r.Context(), userUID, req.RecordingID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrRecordingNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("recording not found"))
		case errors.Is(err, errs.ErrUploadNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("uploaded file not found"))
		case errors.Is(err, errs.ErrAlreadyEnqueued):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("transcription job already enqueued"))
		case errors.Is(err, errs.ErrInvalidRecordingState):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("recording is not awaiting upload"))
		default:
			log.Error("failed to complete upload", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not enqueue transcription job"))
		}
		return
	}

	log.Info("transcription job enqueued",
		slog.String("recording_id", req.RecordingID),
		slog.String("job_id", jobID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"job_id": jobID,
	}))
}
