package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/transcribe-hub/internal/http/response"
	"github.com/magabrotheeeer/transcribe-hub/internal/storage/repository"
)

type Handler struct {
	log     *slog.Logger
	storage *repository.Storage
}

func New(log *slog.Logger, storage *repository.Storage) *Handler {
	return &Handler{
		log: log,
		storage: storage,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	if err := repository.CheckDatabaseReady(h.storage); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database is not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": "ok",
	}))
}
