package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/msassist/internal/api"
	"github.com/cloo-solutions/msassist/internal/api/middleware"
	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/pagination"
	"github.com/cloo-solutions/msassist/internal/service"
	"github.com/go-chi/chi/v5"
)

const multipartMemory = 8 << 20

type DocumentService interface {
	Ingest(ctx context.Context, in service.IngestInput) (*service.IngestResult, error)
	ListDocuments(ctx context.Context, cursor string, limit int) (pagination.Page[*domain.Document], error)
}

type UploadService interface {
	InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error)
	CompleteUpload(ctx context.Context, input service.CompleteUploadInput) (*domain.IngestionJob, error)
	GetJob(ctx context.Context, userID, jobID string) (*domain.IngestionJob, error)
}

type DocumentHandler struct {
	docs    DocumentService
	uploads UploadService
}

func NewDocumentHandler(docs DocumentService, uploads UploadService) *DocumentHandler {
	return &DocumentHandler{docs: docs, uploads: uploads}
}

type IngestResponse struct {
	DocumentID    string `json:"document_id"`
	Filename      string `json:"filename"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

type DocumentListResponse struct {
	Items      []DocumentResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

type InitUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type InitUploadResponse struct {
	JobID      string `json:"job_id"`
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
}

type CompleteUploadRequest struct {
	StorageKey  string `json:"storage_key"`
	Filename    string `json:"filename"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// limitWatcher remembers whether the body hit its http.MaxBytesReader limit.
// The multipart reader does not always keep that error in the chain it returns.
type limitWatcher struct {
	io.ReadCloser
	hit bool
}

func (l *limitWatcher) Read(p []byte) (int, error) {
	n, err := l.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if err != nil && errors.As(err, &tooLarge) {
		l.hit = true
	}
	return n, err
}

func bodyTooLarge(err error, body *limitWatcher) bool {
	var tooLarge *http.MaxBytesError
	return body.hit || errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge)
}

// Upload ingests a multipart file synchronously.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	body := &limitWatcher{ReadCloser: r.Body}
	r.Body = body

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if bodyTooLarge(err, body) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	result, err := h.docs.Ingest(r.Context(), service.IngestInput{
		UserID:      middleware.GetUserID(r.Context()),
		Filename:    header.Filename,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Data:        data,
	})
	if err != nil {
		committed := 0
		if result != nil {
			committed = result.ChunksIndexed
		}
		api.HandleIngestionError(r.Context(), w, err, committed)
		return
	}

	api.Success(w, http.StatusCreated, IngestResponse{
		DocumentID:    result.DocumentID,
		Filename:      result.Filename,
		ChunksIndexed: result.ChunksIndexed,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	page, err := h.docs.ListDocuments(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	items := make([]DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		items[i] = documentToResponse(d)
	}
	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

func (h *DocumentHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	var req InitUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	result, err := h.uploads.InitUpload(r.Context(), service.InitUploadInput{
		UserID:      middleware.GetUserID(r.Context()),
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusOK, InitUploadResponse{
		JobID:      result.JobID,
		StorageKey: result.StorageKey,
		UploadURL:  result.UploadURL,
	})
}

func (h *DocumentHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	var req CompleteUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.StorageKey == "" || req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "storage_key and filename are required")
		return
	}

	job, err := h.uploads.CompleteUpload(r.Context(), service.CompleteUploadInput{
		UserID:      middleware.GetUserID(r.Context()),
		JobID:       chi.URLParam(r, "id"),
		StorageKey:  req.StorageKey,
		Filename:    req.Filename,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusAccepted, jobToResponse(job))
}

func (h *DocumentHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.uploads.GetJob(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(r.Context(), w, err)
		return
	}

	api.Success(w, http.StatusOK, jobToResponse(job))
}
