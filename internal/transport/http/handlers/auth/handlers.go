package authhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"perftrack/internal/domain/audit"
	"perftrack/internal/domain/auth"
	"perftrack/internal/requestctx"
	"perftrack/internal/transport/http/api"
	"perftrack/internal/transport/http/middleware"
	"perftrack/internal/transport/http/shared"
)

type Handler struct {
	Users    *auth.Store
	Audit    *audit.Service
	Secret   string
	TokenTTL time.Duration
}

func NewHandler(users *auth.Store, auditSvc *audit.Service, secret string, tokenTTL time.Duration) *Handler {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &Handler{Users: users, Audit: auditSvc, Secret: secret, TokenTTL: tokenTTL}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	user, err := h.Users.FindByEmail(r.Context(), payload.Email)
	if err != nil || !user.Active {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestctx.GetRequestID(r.Context()))
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, payload.Password); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestctx.GetRequestID(r.Context()))
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{
		UserID:    user.ID,
		Role:      string(user.Role),
		ManagerID: user.ManagerID,
	}, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", requestctx.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.ID, "auth.login", "user", user.ID, requestctx.GetRequestID(r.Context()), shared.ClientIP(r), nil); err != nil {
		slog.Warn("audit auth.login failed", "err", err)
	}

	api.Success(w, map[string]any{
		"token": token,
		"user":  user,
	}, requestctx.GetRequestID(r.Context()))
}

// HandleLogout exists for API symmetry: tokens are stateless, so the client
// simply discards its copy. The event is still audited.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if user, ok := middleware.GetUser(r.Context()); ok {
		if err := h.Audit.Record(r.Context(), user.UserID, "auth.logout", "user", user.UserID, requestctx.GetRequestID(r.Context()), shared.ClientIP(r), nil); err != nil {
			slog.Warn("audit auth.logout failed", "err", err)
		}
	}
	api.Success(w, map[string]string{"status": "logged_out"}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestctx.GetRequestID(r.Context()))
		return
	}
	full, err := h.Users.FindByID(r.Context(), user.UserID)
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "account no longer valid", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, full, requestctx.GetRequestID(r.Context()))
}
