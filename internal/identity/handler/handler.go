// Package handler exposes the registration and verification operations over
// HTTP. It is a thin layer: decode, delegate, encode.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"signup/internal/identity/models"
	"signup/internal/transport/http/shared"
	id "signup/pkg/domain"
	dErrors "signup/pkg/domain-errors"
	"signup/pkg/requestcontext"
)

// Service defines the registration operations the HTTP layer delegates to.
type Service interface {
	Register(ctx context.Context, username, email string) (models.User, error)
	Verify(ctx context.Context, token string) (models.User, error)
	Resend(ctx context.Context, email string) (bool, error)
	IsVerifiedByPublicID(ctx context.Context, publicID id.UserID) (bool, error)
	CheckUsernameAvailable(ctx context.Context, username string) (bool, error)
	CheckEmailAvailable(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// BonusReader reads bonus balances granted by the registration listeners.
type BonusReader interface {
	Balance(ctx context.Context, userID id.UserID) (int64, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
	bonus   BonusReader
}

func New(svc Service, bonus BonusReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: svc, bonus: bonus}
}

// Register mounts the identity routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Get("/verify-email", h.handleVerifyEmail)
	r.Post("/resend-verification", h.handleResendVerification)
	r.Get("/check-username", h.handleCheckUsername)
	r.Get("/check-email", h.handleCheckEmail)
	r.Get("/users/count", h.handleUserCount)
	r.Get("/users/{publicID}/verified", h.handleIsVerified)
	r.Get("/users/{publicID}/bonus", h.handleBonusBalance)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	EmailVerified bool      `json:"email_verified"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:            user.PublicID.String(),
		Username:      user.Username,
		Email:         user.Email,
		CreatedAt:     user.CreatedAt,
		EmailVerified: user.EmailVerified,
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, err := h.service.Register(ctx, req.Username, req.Email)
	if err != nil {
		h.logWarn(ctx, "registration rejected", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.service.Verify(ctx, r.URL.Query().Get("token"))
	if err != nil {
		h.logWarn(ctx, "verification rejected", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

type resendRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	sent, err := h.service.Resend(ctx, req.Email)
	if err != nil {
		h.logWarn(ctx, "resend rejected", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]bool{"sent": sent})
}

func (h *Handler) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	available, err := h.service.CheckUsernameAvailable(ctx, r.URL.Query().Get("username"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (h *Handler) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	available, err := h.service.CheckEmailAvailable(ctx, r.URL.Query().Get("email"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (h *Handler) handleUserCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handler) handleIsVerified(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	publicID, err := id.ParseUserID(chi.URLParam(r, "publicID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	verified, err := h.service.IsVerifiedByPublicID(ctx, publicID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]bool{"verified": verified})
}

func (h *Handler) handleBonusBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	publicID, err := id.ParseUserID(chi.URLParam(r, "publicID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	// The balance read does not prove the identity exists; unknown ids
	// answer zero. Existence checks belong to the verified endpoint.
	balance, err := h.bonus.Balance(ctx, publicID)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read bonus balance"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (h *Handler) logWarn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
