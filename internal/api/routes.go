package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes builds the service router. uploadsDir, when non-empty, is
// served under /uploads/ so locally stored attachments resolve.
func Routes(h *Handlers, uploadsDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Publish-Secret"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.HandleHealth)
	r.Get("/unsubscribe", h.HandleUnsubscribeLink)

	r.Route("/api", func(r chi.Router) {
		r.Post("/subscribe", h.HandleSubscribe)
		r.Post("/unsubscribe", h.HandleUnsubscribe)
		r.Get("/subscription", h.HandleSubscription)
		r.Post("/publish", h.HandlePublish)
		r.Get("/posts", h.HandlePosts)
	})

	if uploadsDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	return r
}
