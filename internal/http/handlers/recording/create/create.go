// Package create реализует HTTP-обработчик создания записи.
//
// Создание записи резервирует слот в квоте пользователя атомарно:
// при исчерпании лимита возвращается структурированный отказ с видом
// квоты и текущими значениями счётчиков.
package create

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
	recording "github.com/magabrotheeeer/transcribe-hub/internal/services/recording"
)

// Handler управляет HTTP-запросами на создание записей.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики записей
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики создания записи.
type Service interface {
	Create(ctx context.Context, userUID string, req models.DummyCreateRecording) (*recording.CreateResult, error)
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
// @Summary Создать запись
// @Description Резервирует слот в квоте и создает запись в статусе PENDING. Для источника upload возвращает presigned URL для загрузки аудио.
// @Tags Recordings
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.DummyCreateRecording true "Данные записи"
// @Success 200 {object} map[string]any "ID записи и URL загрузки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 402 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} map[string]any "Квота исчерпана"
// @Failure 501 {object} response.ErrorResponse "Realtime-записи не поддерживаются"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /recordings [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.recording.create"
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

	var req models.DummyCreateRecording
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

	result, err := h.service.Create(r.Context(), userUID, req)
	if err != nil {
		if qe, isQuota := errs.AsQuotaError(err); isQuota {
			log.Info("quota exceeded",
				slog.String("kind", qe.Kind),
				slog.Int64("current", qe.Current),
				slog.Int64("limit", qe.Limit))
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, map[string]any{
				"status": response.StatusError,
				"error":  qe.Error(),
				"quota":  qe,
			})
			return
		}
		if errors.Is(err, errs.ErrRealtimeNotSupported) {
			log.Info("realtime recording rejected", slog.String("user_uid", userUID))
			w.WriteHeader(http.StatusNotImplemented)
			render.JSON(w, r, response.Error("realtime recordings are not supported yet"))
			return
		}
		if errors.Is(err, errs.ErrNoActiveSubscription) {
			log.Info("no active subscription", slog.String("user_uid", userUID))
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("no active subscription"))
			return
		}
		log.Error("failed to create recording", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create recording"))
		return
	}

	log.Info("recording created", slog.String("recording_id", result.RecordingID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"recording_id": result.RecordingID,
		"upload_url":   result.UploadURL,
		"object_key":   result.ObjectKey,
	}))
}
