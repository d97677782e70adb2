// Package http собирает REST API video-hub на chi.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/video-hub/internal/http/handlers"
	"github.com/pribylovaa/video-hub/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// UploadTimeout — дедлайн multipart-запросов; 0 означает Timeout.
	UploadTimeout time.Duration
	BasePath      string // например, "/api/v1"; если пустой — роуты регистрируются на корне.
	// Metrics — опционально; nil отключает сбор HTTP-метрик.
	Metrics *middleware.Metrics
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
// auth проверяет access-токен на защищённых маршрутах.
func NewRouter(h *handlers.Handlers, auth middleware.SubjectResolver, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Metrics != nil {
		root.Use(opts.Metrics.Middleware())
	}
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout, opts.UploadTimeout)) // дедлайн запроса
	}

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, auth)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, auth)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, auth middleware.SubjectResolver) {
	// users: публичные
	r.Post("/users/register", h.Register)
	r.Post("/users/login", h.Login)
	r.Post("/users/refresh-token", h.RefreshToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(auth))

		// users
		r.Post("/users/logout", h.Logout)
		r.Get("/users/profile", h.Profile)
		r.Post("/users/change-password", h.ChangePassword)
		r.Patch("/users/profile", h.UpdateProfile)
		r.Patch("/users/avatar", h.UpdateAvatar)
		r.Patch("/users/cover-image", h.UpdateCover)

		// videos
		r.Get("/videos", h.ListVideos)
		r.Post("/videos", h.PublishVideo)
		r.Get("/videos/{videoID}", h.GetVideo)
		r.Patch("/videos/{videoID}", h.UpdateVideo)
		r.Delete("/videos/{videoID}", h.DeleteVideo)
		r.Patch("/videos/toggle/publish/{videoID}", h.TogglePublish)
	})
}
