// Package usage реализует HTTP-обработчик текущего использования квоты.
package usage

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/transcribe-hub/internal/http/middlewarectx"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/response"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// Handler управляет HTTP-запросами на получение использования квоты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики использования квоты.
type Service interface {
	Usage(ctx context.Context, userUID string) (*models.UsageStats, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить использование квоты
// @Description Возвращает счётчики текущего расчётного цикла: использованные задачи и секунды, остатки по лимитам плана.
// @Tags Subscriptions
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} models.UsageStats "Использование квоты"
// @Failure 402 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/usage [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.usage"
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

	result, err := h.service.Usage(r.Context(), userUID)
	if err != nil {
		if errors.Is(err, errs.ErrNoActiveSubscription) {
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("no active subscription"))
			return
		}
		log.Error("failed to get usage", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get usage"))
		return
	}

	render.JSON(w, r, response.OKWithData(result))
}
