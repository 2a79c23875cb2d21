package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/middleware"
)

// Role sets allowed on each route. Routes not guarded here are open to any
// authenticated role of the tenant.
var (
	planners    = []domain.Role{domain.RolePlanner, domain.RoleAdmin}
	cancellers  = []domain.Role{domain.RolePlanner, domain.RoleSupervisor, domain.RoleAdmin}
	operators   = []domain.Role{domain.RoleDriver, domain.RoleSupervisor, domain.RoleAdmin}
	reporters   = []domain.Role{domain.RoleDriver, domain.RoleAdmin}
	supervisors = []domain.Role{domain.RoleSupervisor, domain.RoleAdmin}
)

// Routes returns the chi router of the whole API. auth must authenticate the
// caller and store its Principal (see middleware.NewJWTAuth); /healthz and
// /openapi.yaml stay outside it.
func (s *Server) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Route("/services", func(r chi.Router) {
			r.With(middleware.RequireRole(planners...)).Post("/", s.CreateService)
			r.Get("/active", s.ListActiveServices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetService)
				r.With(middleware.RequireRole(planners...)).Post("/clone", s.CloneService)
				r.With(middleware.RequireRole(cancellers...)).Post("/cancel", s.transition(domain.StateCancelled))
				r.With(middleware.RequireRole(operators...)).Post("/start", s.transition(domain.StateInProgress))
				r.With(middleware.RequireRole(operators...)).Post("/finish", s.transition(domain.StateFinished))

				r.With(middleware.RequireRole(reporters...)).Post("/positions", s.ReportPosition)
				r.Get("/positions", s.PositionHistory)
				r.Get("/positions/latest", s.LatestPosition)

				r.Get("/attendance", s.ListAttendance)
				r.With(middleware.RequireRole(operators...)).Post("/attendance", s.BulkCheckIn)
				r.With(middleware.RequireRole(operators...)).Put("/attendance/{workerId}", s.CheckInWorker)
			})
		})

		r.With(middleware.RequireRole(supervisors...)).Get("/fleet", s.GetFleetSnapshot)

		r.Route("/alerts", func(r chi.Router) {
			r.Use(middleware.RequireRole(supervisors...))
			r.Get("/", s.ListActiveAlerts)
			r.Post("/scan", s.RunAnomalyScan)
		})
	})
	return r
}
