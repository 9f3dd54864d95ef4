/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/rses/*         RSE records and availability grids
  /api/assignments/*  Project assignments
  /api/capacities/*   Capacity overrides
  /api/timesheets/*   Timesheet summaries and utilisation
  /api/leave/*        Leave days
  /api/calendar/*     Closures and financial years
  /*                  Static files (frontend)

SECURITY NOTE:
  No authentication middleware. Deploy behind the institutional proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. staticDir
// holds the built frontend; when it does not exist a placeholder page is
// served instead.
func NewRouter(h *Handler, staticDir string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/rses", func(r chi.Router) {
			r.Get("/", h.ListRSEs)
			r.Post("/", h.CreateRSE)
			r.Get("/{id}", h.GetRSE)
			r.Delete("/{id}", h.DeleteRSE)
			r.Get("/{id}/availability", h.GetAvailability)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.ListAssignments)
			r.Post("/", h.CreateAssignment)
			r.Post("/plan", h.PlanAssignments)
			r.Delete("/{id}", h.DeleteAssignment)
		})

		r.Route("/capacities", func(r chi.Router) {
			r.Get("/", h.ListCapacities)
			r.Post("/", h.CreateCapacity)
			r.Delete("/{id}", h.DeleteCapacity)
		})

		r.Route("/timesheets", func(r chi.Router) {
			r.Get("/summary", h.GetTimesheetSummary)
			r.Get("/utilisation", h.GetUtilisation)
		})

		r.Get("/leave/{rse}", h.GetLeave)

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/closures", h.GetClosures)
			r.Get("/financial-year", h.GetFinancialYear)
		})
	})

	if staticDir != "" {
		if _, err := os.Stat(staticDir); err == nil {
			fileServer := http.FileServer(http.Dir(staticDir))
			r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
				fullPath := filepath.Join(staticDir, r.URL.Path)
				if _, err := os.Stat(fullPath); os.IsNotExist(err) {
					// SPA routing: serve index.html
					http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
					return
				}
				fileServer.ServeHTTP(w, r)
			})
			return r
		}
	}

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>RSE Admin</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>RSE Admin API</h1>
<p>The frontend is not built.</p>
<ul>
<li><a href="/api/rses">/api/rses</a> - RSEs and next availability</li>
<li><a href="/api/timesheets/utilisation">/api/timesheets/utilisation</a> - Utilisation this financial year</li>
<li><a href="/api/calendar/financial-year">/api/calendar/financial-year</a> - Current financial year</li>
</ul>
</body>
</html>`))
	})

	return r
}
