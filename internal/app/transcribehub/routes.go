package transcribehub

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/transcribe-hub/internal/config"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/callback"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/health"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/recording/create"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/recording/list"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/recording/read"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/recording/remove"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/recording/stats"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/recording/uploadcomplete"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/subscription/plans"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/handlers/subscription/usage"
	"github.com/magabrotheeeer/transcribe-hub/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/transcribe-hub/internal/services/auth"
	quotaservice "github.com/magabrotheeeer/transcribe-hub/internal/services/quota"
	recordingservice "github.com/magabrotheeeer/transcribe-hub/internal/services/recording"
	"github.com/magabrotheeeer/transcribe-hub/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	db *repository.Storage, limiter *rate.Limiter,
	authService *authservice.AuthService,
	quotaService *quotaservice.QuotaService,
	recordingService *recordingservice.RecordingService,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Колбэк шлюза транскрибации: аутентифицируется подписью тела,
		// не JWT пользователя.
		r.Post("/callbacks/transcription", callback.New(logger, recordingService, cfg.CallbackSecret).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
			r.Post("/recordings", create.New(logger, recordingService).ServeHTTP)
			r.Post("/recordings/upload-complete", uploadcomplete.New(logger, recordingService).ServeHTTP)
			r.Get("/recordings/stats", stats.New(logger, recordingService).ServeHTTP)
			r.Get("/recordings/{id}", read.New(logger, recordingService).ServeHTTP)
			r.Delete("/recordings/{id}", remove.New(logger, recordingService).ServeHTTP)
			r.Get("/recordings", list.New(logger, recordingService).ServeHTTP)
			r.Get("/subscriptions/usage", usage.New(logger, quotaService).ServeHTTP)
			r.Get("/subscriptions/plans", plans.New(logger, quotaService).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
