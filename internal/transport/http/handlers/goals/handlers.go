package goalshandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"perftrack/internal/domain/audit"
	"perftrack/internal/domain/auth"
	"perftrack/internal/domain/goals"
	"perftrack/internal/domain/notifications"
	"perftrack/internal/domain/suggest"
	"perftrack/internal/transport/http/api"
	"perftrack/internal/transport/http/middleware"
	"perftrack/internal/transport/http/shared"
)

type Handler struct {
	Service *goals.Service
	Notify  *notifications.Service
	Audit   *audit.Service
	Suggest *suggest.Service
}

func NewHandler(service *goals.Service, notify *notifications.Service, auditSvc *audit.Service, suggestSvc *suggest.Service) *Handler {
	return &Handler{Service: service, Notify: notify, Audit: auditSvc, Suggest: suggestSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/goals", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Post("/suggest", h.handleSuggest)
		r.With(middleware.RequireRole(auth.RoleManager, auth.RoleAdmin)).Post("/manager-ratings", h.handleBatchManagerRating)
		r.Route("/{goalID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
			r.With(middleware.RequireRole(auth.RoleAdmin)).Delete("/purge", h.handlePurge)
			r.Put("/approve", h.handleApprove)
			r.Put("/reject", h.handleReject)
			r.Put("/resubmit", h.handleResubmit)
			r.Put("/complete", h.handleComplete)
			r.Put("/progress", h.handleProgress)
			r.Post("/self-rating", h.handleSelfRating)
			r.Post("/manager-rating", h.handleManagerRating)
			r.Get("/rating", h.handleGetRating)
		})
	})
}

// failDomain translates domain sentinel errors to the API's status codes.
// Out-of-scope goals surface as 404, the same as missing ones.
func failDomain(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, goals.ErrInvalidArgument):
		api.Fail(w, http.StatusBadRequest, "invalid_argument", err.Error(), requestID)
	case errors.Is(err, goals.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "goal not found", requestID)
	case errors.Is(err, goals.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
	case errors.Is(err, goals.ErrPrecondition):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	default:
		slog.Error("goal operation failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}

func (h *Handler) audit(r *http.Request, actorID, action, goalID string, detail any) {
	if err := h.Audit.Record(r.Context(), actorID, action, "goal", goalID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), detail); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func (h *Handler) notify(r *http.Request, userID, ntype, title, body string) {
	if h.Notify == nil {
		return
	}
	if err := h.Notify.Notify(r.Context(), userID, ntype, title, body); err != nil {
		slog.Warn("goal notification failed", "type", ntype, "err", err)
	}
}

type createGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	DueDate     string `json:"dueDate"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	dueDate, err := shared.ParseDate(payload.DueDate)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "dueDate must be a valid date", middleware.GetRequestID(r.Context()))
		return
	}

	goal, err := h.Service.Create(r.Context(), user, goals.CreateInput{
		Title:       payload.Title,
		Description: payload.Description,
		Category:    payload.Category,
		DueDate:     dueDate,
	})
	if err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.create", goal.ID, payload)
	if goal.ManagerID != goal.EmployeeID {
		h.notify(r, goal.ManagerID, notifications.TypeGoalSubmitted,
			"Goal awaiting approval",
			fmt.Sprintf("A new goal %q was submitted for your approval.", goal.Title))
	}
	api.Created(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	status := r.URL.Query().Get("status")
	includeDeleted := r.URL.Query().Get("includeDeleted") == "true"

	list, err := h.Service.List(r.Context(), user, status, includeDeleted)
	if err != nil {
		failDomain(w, r, err)
		return
	}
	if list == nil {
		list = []goals.Goal{}
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	goal, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "goalID"))
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

type updateGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	DueDate     string `json:"dueDate"`
	Status      string `json:"status"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	goalID := chi.URLParam(r, "goalID")

	var payload updateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	dueDate, err := shared.ParseDate(payload.DueDate)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "dueDate must be a valid date", middleware.GetRequestID(r.Context()))
		return
	}

	goal, err := h.Service.Update(r.Context(), user, goalID, goals.ContentUpdate{
		Title:       payload.Title,
		Description: payload.Description,
		Category:    payload.Category,
		DueDate:     dueDate,
		Status:      payload.Status,
	})
	if err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.update", goal.ID, payload)
	if other := goals.CounterpartID(goal, user.UserID); other != "" {
		h.notify(r, other, notifications.TypeGoalSubmitted,
			"Goal updated",
			fmt.Sprintf("Goal %q was updated.", goal.Title))
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	goalID := chi.URLParam(r, "goalID")

	decision, err := h.Service.Approve(r.Context(), user, goalID)
	if err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.approve", goalID, nil)
	h.notify(r, decision.EmployeeID, notifications.TypeGoalApproved,
		"Goal approved",
		fmt.Sprintf("Your goal %q was approved.", decision.Title))
	api.Success(w, decision, middleware.GetRequestID(r.Context()))
}

type rejectRequest struct {
	ManagerComments string `json:"managerComments"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	goalID := chi.URLParam(r, "goalID")

	var payload rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	decision, err := h.Service.Reject(r.Context(), user, goalID, payload.ManagerComments)
	if err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.reject", goalID, map[string]string{"managerComments": payload.ManagerComments})
	h.notify(r, decision.EmployeeID, notifications.TypeGoalRejected,
		"Goal rejected",
		fmt.Sprintf("Your goal %q was rejected: %s", decision.Title, decision.Feedback))
	api.Success(w, decision, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	goal, err := h.Service.Resubmit(r.Context(), user, chi.URLParam(r, "goalID"))
	if err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.resubmit", goal.ID, nil)
	if goal.ManagerID != goal.EmployeeID {
		h.notify(r, goal.ManagerID, notifications.TypeGoalResubmitted,
			"Goal resubmitted",
			fmt.Sprintf("Goal %q was resubmitted for approval.", goal.Title))
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	goal, err := h.Service.Complete(r.Context(), user, chi.URLParam(r, "goalID"))
	if err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.complete", goal.ID, nil)
	if other := goals.CounterpartID(goal, user.UserID); other != "" {
		h.notify(r, other, notifications.TypeGoalCompleted,
			"Goal completed",
			fmt.Sprintf("Goal %q was marked completed.", goal.Title))
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

type progressRequest struct {
	Progress float64 `json:"progress"`
	Notes    string  `json:"notes"`
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	goalID := chi.URLParam(r, "goalID")

	var payload progressRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	goal, err := h.Service.UpdateProgress(r.Context(), user, goalID, payload.Progress, payload.Notes)
	if err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.progress", goal.ID, payload)
	if goal.ManagerID != goal.EmployeeID {
		h.notify(r, goal.ManagerID, notifications.TypeGoalProgress,
			"Goal progress updated",
			fmt.Sprintf("Goal %q is now at %d%% progress.", goal.Title, goal.Progress))
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	goal, err := h.Service.Delete(r.Context(), user, chi.URLParam(r, "goalID"))
	if err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.delete", goal.ID, nil)
	if other := goals.CounterpartID(goal, user.UserID); other != "" {
		h.notify(r, other, notifications.TypeGoalDeleted,
			"Goal deleted",
			fmt.Sprintf("Goal %q was deleted.", goal.Title))
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePurge(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	goalID := chi.URLParam(r, "goalID")

	if err := h.Service.Purge(r.Context(), user, goalID); err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.purge", goalID, nil)
	api.Success(w, map[string]string{"status": "purged"}, middleware.GetRequestID(r.Context()))
}

type ratingRequest struct {
	Score    float64 `json:"score"`
	Comments string  `json:"comments"`
}

func (h *Handler) handleSelfRating(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	goalID := chi.URLParam(r, "goalID")

	var payload ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	rating, goal, err := h.Service.SubmitSelfRating(r.Context(), user, goalID, payload.Score, payload.Comments)
	if err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.rating.self", goalID, payload)
	if goal.ManagerID != goal.EmployeeID {
		h.notify(r, goal.ManagerID, notifications.TypeSelfRatingReceived,
			"Self-rating submitted",
			fmt.Sprintf("A self-rating was submitted for goal %q.", goal.Title))
	}
	api.Success(w, rating, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleManagerRating(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	goalID := chi.URLParam(r, "goalID")

	var payload ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	rating, goal, err := h.Service.SubmitManagerRating(r.Context(), user, goalID, payload.Score, payload.Comments)
	if err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.rating.manager", goalID, payload)
	if goal.EmployeeID != user.UserID {
		h.notify(r, goal.EmployeeID, notifications.TypeManagerRatingReceived,
			"Manager rating received",
			fmt.Sprintf("Your manager rated goal %q.", goal.Title))
	}
	api.Success(w, rating, middleware.GetRequestID(r.Context()))
}

type batchRatingRequest struct {
	Ratings []struct {
		GoalID   string  `json:"goalId"`
		Score    float64 `json:"score"`
		Comments string  `json:"comments"`
	} `json:"ratings"`
}

func (h *Handler) handleBatchManagerRating(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload batchRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	items := make([]goals.BatchRatingItem, 0, len(payload.Ratings))
	for _, entry := range payload.Ratings {
		items = append(items, goals.BatchRatingItem{
			GoalID:   entry.GoalID,
			Score:    entry.Score,
			Comments: entry.Comments,
		})
	}

	ratings, err := h.Service.SubmitManagerRatingBatch(r.Context(), user, items)
	if err != nil {
		failDomain(w, r, err)
		return
	}

	h.audit(r, user.UserID, "goal.rating.batch", "", map[string]int{"count": len(ratings)})
	api.Success(w, ratings, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRating(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	rating, err := h.Service.GetRating(r.Context(), user, chi.URLParam(r, "goalID"))
	if err != nil {
		failDomain(w, r, err)
		return
	}
	api.Success(w, rating, middleware.GetRequestID(r.Context()))
}

type suggestRequest struct {
	Category string `json:"category"`
	Focus    string `json:"focus"`
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var payload suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if !goals.ValidCategory(payload.Category) {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "unknown category", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Focus == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_argument", "focus is required", middleware.GetRequestID(r.Context()))
		return
	}
	if h.Suggest == nil || !h.Suggest.Available() {
		api.Fail(w, http.StatusServiceUnavailable, "suggestions_unavailable", "goal suggestions are not configured", middleware.GetRequestID(r.Context()))
		return
	}

	draft, err := h.Suggest.DraftGoal(r.Context(), payload.Category, payload.Focus)
	if err != nil {
		slog.Warn("goal suggestion failed", "err", err)
		api.Fail(w, http.StatusBadGateway, "suggestion_failed", "failed to draft a suggestion", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, draft, middleware.GetRequestID(r.Context()))
}
