package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cloo-solutions/msassist/internal/api"
	"github.com/cloo-solutions/msassist/internal/api/middleware"
	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/service"
)

type SymptomCatalog interface {
	ByCategory(c domain.SymptomCategory) []domain.SymptomEntry
}

type SymptomHandler struct {
	catalog SymptomCatalog
	chat    ChatService
}

func NewSymptomHandler(catalog SymptomCatalog, chat ChatService) *SymptomHandler {
	return &SymptomHandler{catalog: catalog, chat: chat}
}

type SymptomCatalogResponse struct {
	CommonSymptoms     []SymptomResponse `json:"common_symptoms"`
	LessCommonSymptoms []SymptomResponse `json:"less_common_symptoms"`
	SymptomPatterns    []SymptomResponse `json:"symptom_patterns"`
}

type AnalyzeSymptomsRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
}

type AnalyzeSymptomsResponse struct {
	Analysis         string            `json:"analysis"`
	MatchedSymptoms  []SymptomResponse `json:"matched_symptoms"`
	Sources          []SourceResponse  `json:"sources"`
	SessionID        string            `json:"session_id,omitempty"`
	UserMessage      *MessageResponse  `json:"user_message,omitempty"`
	AssistantMessage *MessageResponse  `json:"assistant_message,omitempty"`
}

func (h *SymptomHandler) List(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, SymptomCatalogResponse{
		CommonSymptoms:     symptomsToResponse(h.catalog.ByCategory(domain.SymptomCommon)),
		LessCommonSymptoms: symptomsToResponse(h.catalog.ByCategory(domain.SymptomLessCommon)),
		SymptomPatterns:    symptomsToResponse(h.catalog.ByCategory(domain.SymptomPattern)),
	})
}

func (h *SymptomHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeSymptomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := h.chat.Analyze(r.Context(), service.AnalyzeRequest{
		UserID:       middleware.GetUserID(r.Context()),
		SessionID:    req.SessionID,
		ClinicalText: req.Text,
	})
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	resp := AnalyzeSymptomsResponse{
		Analysis:         result.Analysis,
		MatchedSymptoms:  symptomsToResponse(result.MatchedSymptoms),
		Sources:          sourcesToResponse(result.Sources),
		UserMessage:      messageToResponse(result.UserMessage),
		AssistantMessage: messageToResponse(result.AssistantMessage),
	}
	if result.Session != nil {
		resp.SessionID = result.Session.ID
	}
	api.Success(w, http.StatusOK, resp)
}
