// Package plans реализует HTTP-обработчик списка активных тарифных планов.
package plans

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/transcribe-hub/internal/http/response"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/sl"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// Handler управляет HTTP-запросами на получение списка планов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка планов.
type Service interface {
	Plans(ctx context.Context) ([]*models.Plan, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить список тарифных планов
// @Description Возвращает активные тарифные планы с лимитами по задачам и минутам.
// @Tags Subscriptions
// @Security BearerAuth
// @Produce  json
// @Success 200 {array} models.Plan "Список планов"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.plans"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	result, err := h.service.Plans(r.Context())
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list plans"))
		return
	}

	render.JSON(w, r, response.OKWithData(result))
}
