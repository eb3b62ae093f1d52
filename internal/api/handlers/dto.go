package handlers

import (
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
)

const timeFormat = time.RFC3339

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type SessionResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type SessionGroupsResponse struct {
	Today     []SessionResponse `json:"today"`
	ThisWeek  []SessionResponse `json:"this_week"`
	ThisMonth []SessionResponse `json:"this_month"`
	Older     []SessionResponse `json:"older"`
}

type MessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Position  int    `json:"position"`
	CreatedAt string `json:"created_at"`
}

type SourceResponse struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Offset     int     `json:"offset"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

type SymptomResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Pattern     string   `json:"pattern,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

type DocumentResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	ChunkCount  int    `json:"chunk_count"`
	CreatedAt   string `json:"created_at"`
}

type IngestionJobResponse struct {
	ID            string  `json:"id"`
	Filename      string  `json:"filename"`
	Status        string  `json:"status"`
	Retries       int32   `json:"retries"`
	Error         string  `json:"error,omitempty"`
	DocumentID    string  `json:"document_id,omitempty"`
	ChunksIndexed int     `json:"chunks_indexed"`
	CreatedAt     string  `json:"created_at"`
	ProcessedAt   *string `json:"processed_at,omitempty"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt.Format(timeFormat)}
}

func sessionToResponse(s *domain.Session) SessionResponse {
	return SessionResponse{ID: s.ID, Title: s.Title, CreatedAt: s.CreatedAt.Format(timeFormat)}
}

func sessionsToResponse(sessions []*domain.Session) []SessionResponse {
	out := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		out[i] = sessionToResponse(s)
	}
	return out
}

func groupsToResponse(g domain.SessionGroups) SessionGroupsResponse {
	return SessionGroupsResponse{
		Today:     sessionsToResponse(g.Today),
		ThisWeek:  sessionsToResponse(g.ThisWeek),
		ThisMonth: sessionsToResponse(g.ThisMonth),
		Older:     sessionsToResponse(g.Older),
	}
}

func messageToResponse(m *domain.Message) *MessageResponse {
	if m == nil {
		return nil
	}
	return &MessageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Position:  m.Position,
		CreatedAt: m.CreatedAt.Format(timeFormat),
	}
}

func messagesToResponse(messages []*domain.Message) []*MessageResponse {
	out := make([]*MessageResponse, len(messages))
	for i, m := range messages {
		out[i] = messageToResponse(m)
	}
	return out
}

func sourcesToResponse(chunks []domain.ScoredChunk) []SourceResponse {
	out := make([]SourceResponse, len(chunks))
	for i, c := range chunks {
		out[i] = SourceResponse{
			DocumentID: c.Chunk.DocumentID,
			Filename:   c.Chunk.Filename,
			Offset:     c.Chunk.Offset,
			Content:    c.Chunk.Content,
			Score:      c.Score,
		}
	}
	return out
}

func symptomsToResponse(entries []domain.SymptomEntry) []SymptomResponse {
	out := make([]SymptomResponse, len(entries))
	for i, e := range entries {
		out[i] = SymptomResponse{
			Name:        e.Name,
			Description: e.Description,
			Category:    string(e.Category),
			Pattern:     e.Pattern,
			Keywords:    e.Keywords,
		}
	}
	return out
}

func documentToResponse(d *domain.Document) DocumentResponse {
	return DocumentResponse{
		ID:          d.ID,
		Filename:    d.Filename,
		Format:      string(d.Format),
		Title:       d.Title,
		Description: d.Description,
		SizeBytes:   d.SizeBytes,
		ChunkCount:  d.ChunkCount,
		CreatedAt:   d.CreatedAt.Format(timeFormat),
	}
}

func jobToResponse(j *domain.IngestionJob) IngestionJobResponse {
	resp := IngestionJobResponse{
		ID:            j.ID,
		Filename:      j.Filename,
		Status:        string(j.Status),
		Retries:       j.Retries,
		Error:         j.Error,
		DocumentID:    j.DocumentID,
		ChunksIndexed: j.ChunksIndexed,
		CreatedAt:     j.CreatedAt.Format(timeFormat),
	}
	if j.ProcessedAt != nil {
		processed := j.ProcessedAt.Format(timeFormat)
		resp.ProcessedAt = &processed
	}
	return resp
}
