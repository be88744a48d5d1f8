/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the HTTP router (chi), middleware stack, and route
	definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
 1. Logger:     Request logging
 2. Recoverer:  Panic recovery (500 instead of crash)
 3. RequestID:  Unique ID per request for tracing
 4. CORS:       Cross-origin requests for frontend
 5. Auth:       Bearer-token identity on everything except login and
    the open registration route

ROUTE GROUPS:

	/api/auth/*           Registration, login, current identity
	/api/employees/*      Directory reads
	/api/leave-types/*    Leave type catalogue (hr_admin to mutate)
	/api/balances/*       Balance reads and yearly initialization
	/api/requests/*       Submission, decisions, cancellation
	/api/holidays/*       Holiday calendar (hr_admin to mutate)
	/api/delegations/*    Approval delegations
	/api/reports/*        Team calendar and per-employee summary

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Identity extraction and role gates
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/leave-engine/leave"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
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
		// Open routes. Register is open so the first hr_admin can be
		// bootstrapped; subsequent account creation normally goes
		// through an authenticated admin client anyway.
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		// Everything below requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(h.Authenticated)

			r.Get("/auth/me", h.Me)

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.ListEmployees)
				r.Get("/{id}", h.GetEmployee)
				r.Get("/{id}/team", h.GetTeam)
			})

			r.Route("/leave-types", func(r chi.Router) {
				r.Get("/", h.ListLeaveTypes)
				r.With(RequireRole(leave.RoleHRAdmin)).Post("/", h.CreateLeaveType)
			})

			r.Route("/balances", func(r chi.Router) {
				r.Get("/me", h.MyBalances)
				r.With(RequireRole(leave.RoleHRAdmin)).Post("/initialize/{year}", h.InitializeYear)
				r.Get("/{employeeID}", h.GetBalances)
			})

			r.Route("/requests", func(r chi.Router) {
				r.Post("/", h.SubmitRequest)
				r.Get("/", h.ListMyRequests)
				r.Get("/pending-approvals", h.PendingApprovals)
				r.Get("/{id}", h.GetRequest)
				r.Post("/{id}/approve", h.ApproveRequest)
				r.Post("/{id}/reject", h.RejectRequest)
				r.Delete("/{id}", h.CancelRequest)
			})

			r.Route("/holidays", func(r chi.Router) {
				r.Get("/", h.ListHolidays)
				r.With(RequireRole(leave.RoleHRAdmin)).Post("/", h.CreateHoliday)
				r.With(RequireRole(leave.RoleHRAdmin)).Delete("/{id}", h.DeleteHoliday)
			})

			r.Route("/delegations", func(r chi.Router) {
				r.Get("/", h.ListDelegations)
				r.With(RequireRole(leave.RoleManager, leave.RoleHRAdmin)).Post("/", h.CreateDelegation)
				r.Delete("/{id}", h.RevokeDelegation)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/team-calendar", h.TeamCalendar)
				r.Get("/leave-summary", h.LeaveSummary)
			})
		})
	})

	return r
}
