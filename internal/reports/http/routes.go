package reporthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/snapshots", h.handleSnapshots)
		r.Get("/{type}", h.handleReport)
		r.Post("/{type}/normalize", h.handleNormalize)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/{type}/export.csv", h.handleCSV)
		})
	})
}
