package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/msassist/internal/api"
	"github.com/cloo-solutions/msassist/internal/api/middleware"
	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, email, password, confirm string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*service.Token, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   string       `json:"expires_at"`
	User        UserResponse `json:"user"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		api.Error(w, http.StatusBadRequest, "email, password and confirm_password are required")
		return
	}

	user, err := h.svc.Register(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusCreated, userToResponse(user))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusOK, TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   token.ExpiresAt.Format(timeFormat),
		User:        userToResponse(token.User),
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusOK, userToResponse(user))
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		api.Error(w, http.StatusBadRequest, "old_password and new_password are required")
		return
	}

	if err := h.svc.ChangePassword(r.Context(), middleware.GetUserID(r.Context()), req.OldPassword, req.NewPassword); err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "password updated"})
}
