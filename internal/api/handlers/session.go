package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloo-solutions/msassist/internal/api"
	"github.com/cloo-solutions/msassist/internal/api/middleware"
	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/export"
	"github.com/cloo-solutions/msassist/internal/service"
	"github.com/go-chi/chi/v5"
)

type SessionService interface {
	CreateSession(ctx context.Context, userID, title string) (*domain.Session, error)
	GetSession(ctx context.Context, userID, sessionID string) (*domain.Session, error)
	ListSessions(ctx context.Context, userID string) (domain.SessionGroups, error)
	ListMessages(ctx context.Context, userID, sessionID string) ([]*domain.Message, error)
}

type ChatService interface {
	Send(ctx context.Context, in service.SendInput) (*service.SendResult, error)
	Analyze(ctx context.Context, in service.AnalyzeRequest) (*service.AnalyzeResult, error)
}

type TranscriptExporter interface {
	Export(ctx context.Context, userID, sessionID string, format export.Format) (*service.ExportResult, error)
}

type SessionHandler struct {
	sessions SessionService
	chat     ChatService
	exporter TranscriptExporter
}

func NewSessionHandler(sessions SessionService, chat ChatService, exporter TranscriptExporter) *SessionHandler {
	return &SessionHandler{sessions: sessions, chat: chat, exporter: exporter}
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type ChatResponse struct {
	Session          SessionResponse   `json:"session"`
	UserMessage      *MessageResponse  `json:"user_message"`
	AssistantMessage *MessageResponse  `json:"assistant_message"`
	Sources          []SourceResponse  `json:"sources"`
	MatchedSymptoms  []SymptomResponse `json:"matched_symptoms"`
	SessionCreated   bool              `json:"session_created"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if strings.TrimSpace(req.Title) == "" {
		req.Title = domain.DefaultSessionTitle
	}

	session, err := h.sessions.CreateSession(r.Context(), middleware.GetUserID(r.Context()), req.Title)
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusCreated, sessionToResponse(session))
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.sessions.ListSessions(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusOK, groupsToResponse(groups))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.GetSession(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusOK, sessionToResponse(session))
}

func (h *SessionHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.sessions.ListMessages(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusOK, messagesToResponse(messages))
}

// SendMessage chats in an existing session.
func (h *SessionHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.send(w, r, chi.URLParam(r, "id"), req.Message)
}

// Chat answers a message, starting a new session when none is given.
func (h *SessionHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.send(w, r, req.SessionID, req.Message)
}

func (h *SessionHandler) send(w http.ResponseWriter, r *http.Request, sessionID, message string) {
	if strings.TrimSpace(message) == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := h.chat.Send(r.Context(), service.SendInput{
		UserID:    middleware.GetUserID(r.Context()),
		SessionID: sessionID,
		Query:     message,
	})
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	api.Success(w, status, ChatResponse{
		Session:          sessionToResponse(result.Session),
		UserMessage:      messageToResponse(result.UserMessage),
		AssistantMessage: messageToResponse(result.AssistantMessage),
		Sources:          sourcesToResponse(result.Sources),
		MatchedSymptoms:  symptomsToResponse(result.MatchedSymptoms),
		SessionCreated:   result.Created,
	})
}

// Export streams the transcript as a file download.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := export.Format(r.URL.Query().Get("format"))

	result, err := h.exporter.Export(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), format)
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}
