package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testUser() *domain.User {
	return domain.NewUser("user-1", "pat@example.com", "hash", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		setup      func(m *MockAuthService)
		wantStatus int
	}{
		{
			name: "created",
			body: RegisterRequest{Email: "pat@example.com", Password: "longenough", ConfirmPassword: "longenough"},
			setup: func(m *MockAuthService) {
				m.On("Register", mock.Anything, "pat@example.com", "longenough", "longenough").Return(testUser(), nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing confirmation",
			body:       RegisterRequest{Email: "pat@example.com", Password: "longenough"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate",
			body: RegisterRequest{Email: "pat@example.com", Password: "longenough", ConfirmPassword: "longenough"},
			setup: func(m *MockAuthService) {
				m.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrUserAlreadyExists)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "mismatch",
			body: RegisterRequest{Email: "pat@example.com", Password: "longenough", ConfirmPassword: "different"},
			setup: func(m *MockAuthService) {
				m.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrPasswordMismatch)
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockAuthService)
			if tt.setup != nil {
				tt.setup(mockSvc)
			}

			w := httptest.NewRecorder()
			NewAuthHandler(mockSvc).Register(w, newRequest(t, http.MethodPost, "/auth/register", tt.body))

			assert.Equal(t, tt.wantStatus, w.Code)
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	mockSvc := new(MockAuthService)
	expires := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mockSvc.On("Login", mock.Anything, "pat@example.com", "longenough").
		Return(&service.Token{AccessToken: "jwt", ExpiresAt: expires, User: testUser()}, nil)
	mockSvc.On("Login", mock.Anything, "pat@example.com", "wrong").Return(nil, domain.ErrInvalidCredentials)

	handler := NewAuthHandler(mockSvc)

	w := httptest.NewRecorder()
	handler.Login(w, newRequest(t, http.MethodPost, "/auth/login", LoginRequest{Email: "pat@example.com", Password: "longenough"}))
	assert.Equal(t, http.StatusOK, w.Code)
	var resp TokenResponse
	decodeData(t, w, &resp)
	assert.Equal(t, "jwt", resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "2026-03-02T09:00:00Z", resp.ExpiresAt)
	assert.Equal(t, "user-1", resp.User.ID)

	w = httptest.NewRecorder()
	handler.Login(w, newRequest(t, http.MethodPost, "/auth/login", LoginRequest{Email: "pat@example.com", Password: "wrong"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_MeAndChangePassword(t *testing.T) {
	mockSvc := new(MockAuthService)
	mockSvc.On("Me", mock.Anything, "user-1").Return(testUser(), nil)
	mockSvc.On("ChangePassword", mock.Anything, "user-1", "old-password", "new-password").Return(nil)
	mockSvc.On("ChangePassword", mock.Anything, "user-1", "bad", "new-password").Return(domain.ErrInvalidCredentials)

	handler := NewAuthHandler(mockSvc)

	w := httptest.NewRecorder()
	handler.Me(w, newRequest(t, http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var user UserResponse
	decodeData(t, w, &user)
	assert.Equal(t, "pat@example.com", user.Email)

	w = httptest.NewRecorder()
	handler.ChangePassword(w, newRequest(t, http.MethodPut, "/auth/password",
		ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"}))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ChangePassword(w, newRequest(t, http.MethodPut, "/auth/password",
		ChangePasswordRequest{OldPassword: "bad", NewPassword: "new-password"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	handler.ChangePassword(w, newRequest(t, http.MethodPut, "/auth/password", ChangePasswordRequest{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertExpectations(t)
}
