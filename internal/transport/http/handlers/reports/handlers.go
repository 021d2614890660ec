package reportshandler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/reports"
	"perftrack/internal/transport/http/api"
	"perftrack/internal/transport/http/middleware"
)

type Handler struct {
	Service *reports.Service
}

func NewHandler(service *reports.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleManager, auth.RoleAdmin))
		r.Get("/goals/summary", h.handleSummary)
		r.Get("/goals/export", h.handleExport)
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	summary, err := h.Service.Summary(r.Context(), user)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	path, err := h.Service.ExportPDF(r.Context(), user)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_export_failed", "failed to export report", middleware.GetRequestID(r.Context()))
		return
	}
	defer os.Remove(path)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}
