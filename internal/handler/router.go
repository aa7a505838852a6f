package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-sync/internal/service"
	"github.com/BuzzLyutic/todo-sync/pkg/respond"
)

func NewRouter(tasks *service.TaskSync, session *service.AuthSession, logger *zap.Logger) http.Handler {
	th := NewTaskHandler(tasks, logger)
	ah := NewAuthHandler(session, tasks, logger)

	r := chi.NewRouter() // Создаем роутер
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", ah.Session)
		r.Post("/auth/login", ah.Login)
		r.Post("/auth/signup", ah.SignUp)
		r.Post("/auth/logout", ah.Logout)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", th.List)
			r.Post("/", th.Create)
			r.Get("/stream", th.Stream)
			r.Get("/add-result", th.AddResult)
			r.Delete("/add-result", th.ResetAddResult)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", th.Get)
				r.Patch("/", th.Update)
				r.Delete("/", th.Delete)
				r.Put("/completed", th.SetCompleted)
			})
		})
	})

	return r
}
