package httpapi

import "github.com/go-chi/chi/v5"

// NewRouter builds the public route tree. Queue endpoints sit behind the
// bearer-token middleware; auth endpoints and the health check do not.
func NewRouter(a *API) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", healthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", a.registerHandler)
			r.Post("/login", a.loginHandler)
			r.Post("/refresh", a.refreshHandler)
		})

		r.Route("/queue", func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/pop", a.popHandler)
			r.Post("/complete", a.completeHandler)
			r.Post("/fail", a.failHandler)
			r.Post("/reset", a.resetHandler)
			r.Post("/enqueue", a.enqueueHandler)
			r.Post("/status", a.statusHandler)
		})
	})

	return r
}
