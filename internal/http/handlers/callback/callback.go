// Package callback реализует HTTP-обработчик колбэков шлюза транскрибации.
//
// Колбэк — недоверенный вход: тело подписывается HMAC-SHA256 общим
// секретом, подпись проверяется до разбора JSON. Колбэки для
// несуществующих или уже завершённых записей отбрасываются с успешным
// статусом, чтобы шлюз не повторял доставку.
package callback

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/transcribe-hub/internal/gateway"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/response"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
	"github.com/magabrotheeeer/transcribe-hub/internal/metrics"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// maxBodySize ограничивает размер тела колбэка.
const maxBodySize = 4 << 20

// Handler управляет HTTP-запросами колбэков транскрибации.
type Handler struct {
	log      *slog.Logger
	service  Service
	secret   string
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики завершения транскрибации.
type Service interface {
	Complete(ctx context.Context, req models.DummyCompleteCallback) error
	Fail(ctx context.Context, req models.DummyFailCallback) error
}

// New создает новый Handler с переданными логгером, сервисом и секретом подписи.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		secret:   secret,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Принять колбэк транскрибации
// @Description Принимает результат транскрибации от шлюза. Тело подписано HMAC-SHA256 в заголовке X-Callback-Signature.
// @Tags Callbacks
// @Accept  json
// @Produce  json
// @Param X-Callback-Signature header string true "HMAC-SHA256 подпись тела"
// @Success 200 {object} response.Response "Колбэк обработан или отброшен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /callbacks/transcription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.callback"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	signature := r.Header.Get(gateway.SignatureHeader)
	if !gateway.VerifySignature(h.secret, body, signature) {
		log.Warn("callback signature mismatch")
		metrics.CallbacksDropped.WithLabelValues("bad_signature").Inc()
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var peek struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &peek); err != nil {
		log.Error("failed to decode callback", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if peek.Status == string(models.StatusFailed) {
		h.handleFail(w, r, log, body)
		return
	}
	h.handleComplete(w, r, log, body)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request, log *slog.Logger, body []byte) {
	var req models.DummyCompleteCallback
	if err := json.Unmarshal(body, &req); err != nil {
		log.Error("failed to decode callback", sl.Err(err))
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

	if err := h.service.Complete(r.Context(), req); err != nil {
		if h.dropCallback(w, r, log, req.RecordingID, err) {
			return
		}
		log.Error("failed to complete recording", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not process callback"))
		return
	}

	log.Info("recording completed", slog.String("recording_id", req.RecordingID))
	render.JSON(w, r, response.OK())
}

func (h *Handler) handleFail(w http.ResponseWriter, r *http.Request, log *slog.Logger, body []byte) {
	var req models.DummyFailCallback
	if err := json.Unmarshal(body, &req); err != nil {
		log.Error("failed to decode callback", sl.Err(err))
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

	if err := h.service.Fail(r.Context(), req); err != nil {
		if h.dropCallback(w, r, log, req.RecordingID, err) {
			return
		}
		log.Error("failed to fail recording", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not process callback"))
		return
	}

	log.Info("recording failed by gateway",
		slog.String("recording_id", req.RecordingID),
		slog.String("error_message", req.ErrorMessage))
	render.JSON(w, r, response.OK())
}

// dropCallback молча отбрасывает колбэки для неизвестных и завершённых
// записей: шлюзу отвечаем успехом, чтобы он не ретраил доставку.
func (h *Handler) dropCallback(w http.ResponseWriter, r *http.Request, log *slog.Logger, recordingID string, err error) bool {
	switch {
	case errors.Is(err, errs.ErrCallbackOnUnknownRecording):
		log.Warn("callback for unknown recording", slog.String("recording_id", recordingID))
		metrics.CallbacksDropped.WithLabelValues("unknown_recording").Inc()
	case errors.Is(err, errs.ErrCallbackOnTerminalRecording):
		log.Info("callback for terminal recording", slog.String("recording_id", recordingID))
		metrics.CallbacksDropped.WithLabelValues("terminal_recording").Inc()
	default:
		return false
	}
	render.JSON(w, r, response.OK())
	return true
}
