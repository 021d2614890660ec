package usershandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"perftrack/internal/domain/auth"
	"perftrack/internal/transport/http/api"
	"perftrack/internal/transport/http/middleware"
)

type Handler struct {
	Users *auth.Store
}

func NewHandler(users *auth.Store) *Handler {
	return &Handler{Users: users}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Get("/", h.handleListAll)
		r.With(middleware.RequireRole(auth.RoleManager, auth.RoleAdmin)).Get("/reports", h.handleListReports)
	})
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListAll(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "users_list_failed", "failed to list users", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, users, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reports, err := h.Users.ListReports(r.Context(), user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "reports_list_failed", "failed to list reports", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, reports, middleware.GetRequestID(r.Context()))
}
