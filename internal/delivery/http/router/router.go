package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/linkfinder-service/internal/delivery/http/handler"
	"github.com/user/linkfinder-service/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.Post("/audits", h.HandleStartAudit)
		r.Get("/audits/{id}", h.HandleGetAudit)
		r.Delete("/audits/{id}", h.HandleCancelAudit)
		r.Post("/probe", h.HandleProbe)
		r.Post("/rewrites", h.HandleSubmitRewrites)
	})

	return r
}
