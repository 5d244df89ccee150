package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ocrmill/internal/auth"
	"ocrmill/internal/license"
)

// NewRouter assembles the API router around the two engines
func NewRouter(licenseMgr *license.Manager, authMgr *auth.Manager, registry *prometheus.Registry, logger *slog.Logger) http.Handler {
	licenseHandler := NewLicenseHandler(licenseMgr, logger)
	authHandler := NewAuthHandler(authMgr, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/license", func(r chi.Router) {
			r.Get("/", licenseHandler.Info)
			r.Get("/status", licenseHandler.Status)
			r.Post("/activate", licenseHandler.Activate)
			r.Delete("/", licenseHandler.Clear)
		})
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/windows", authHandler.WindowsLogin)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
			r.Get("/domains", authHandler.Domains)
			r.Put("/domains", authHandler.SetDomains)
		})
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
