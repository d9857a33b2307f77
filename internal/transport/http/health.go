package http

import (
	"net/http"

	"github.com/go-chi/render"

	"gridcli/internal/services"
)

// healthz answers 503 while any data directory is missing
func healthz(svc *services.HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := svc.HealthCheck(r.Context())
		if status.Status != "ok" {
			render.Status(r, http.StatusServiceUnavailable)
		}
		render.JSON(w, r, status)
	}
}

func version(svc *services.HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, svc.Version())
	}
}
