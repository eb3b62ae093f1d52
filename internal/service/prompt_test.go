package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyOf(n int) []*domain.Message {
	out := make([]*domain.Message, n)
	for i := range out {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		out[i] = &domain.Message{ID: fmt.Sprint(i), Role: role, Content: fmt.Sprintf("turn %d", i), Position: i + 1, CreatedAt: time.Now()}
	}
	return out
}

func TestBuildPrompt_Chat(t *testing.T) {
	long := strings.Repeat("é", 600)
	in := PromptInput{
		Mode:  PromptModeChat,
		Query: "  Why am I so tired?  ",
		Chunks: []domain.ScoredChunk{
			{Chunk: domain.DocumentChunk{Filename: "fatigue.pdf", Content: "Fatigue affects most people with MS."}, Score: 0.91},
			{Chunk: domain.DocumentChunk{Filename: "long.txt", Content: long}, Score: 0.5},
		},
		Symptoms: []domain.SymptomEntry{
			{Name: "Fatigue", Description: "Extreme tiredness.", Category: domain.SymptomCommon},
		},
		History: historyOf(14),
	}

	p := BuildPrompt(in)

	assert.True(t, strings.HasPrefix(p.System, chatInstruction))
	assert.Contains(t, p.System, "Medical disclaimer")
	assert.Contains(t, p.System, "- Fatigue (common symptom): Extreme tiredness.")
	assert.Contains(t, p.System, "Source 1: fatigue.pdf (relevance 0.91)\nFatigue affects most people with MS.")
	assert.Contains(t, p.System, "Source 2: long.txt (relevance 0.50)\n"+strings.Repeat("é", 500)+"...")
	assert.NotContains(t, p.System, strings.Repeat("é", 501))
	assert.NotContains(t, p.System, emptyContextNote)

	require.Len(t, p.Messages, 11)
	assert.Equal(t, "turn 4", p.Messages[0].Content)
	assert.Equal(t, "turn 13", p.Messages[9].Content)
	assert.Equal(t, PromptRoleAssistant, p.Messages[9].Role)
	assert.Equal(t, PromptMessage{Role: PromptRoleUser, Content: "Why am I so tired?"}, p.Messages[10])

	assert.Equal(t, p, BuildPrompt(in), "prompt must be deterministic")
}

func TestBuildPrompt_EmptyContext(t *testing.T) {
	p := BuildPrompt(PromptInput{Mode: PromptModeChat, Query: "hello"})

	assert.Contains(t, p.System, emptyContextNote)
	assert.NotContains(t, p.System, "symptom reference entries")
	require.Len(t, p.Messages, 1)
}

func TestBuildPrompt_CustomLimits(t *testing.T) {
	p := BuildPrompt(PromptInput{
		Mode:          PromptModeChat,
		Query:         "q",
		Chunks:        []domain.ScoredChunk{{Chunk: domain.DocumentChunk{Filename: "a", Content: "abcdefghij"}, Score: 1}},
		History:       historyOf(6),
		MaxChunkChars: 4,
		HistoryWindow: 2,
	})

	assert.Contains(t, p.System, "\nabcd...")
	require.Len(t, p.Messages, 3)
	assert.Equal(t, "turn 4", p.Messages[0].Content)
}

func TestBuildPrompt_Analysis(t *testing.T) {
	p := BuildPrompt(PromptInput{
		Mode:    PromptModeAnalysis,
		Query:   "numbness in my left arm and constant fatigue",
		History: historyOf(4),
		Symptoms: []domain.SymptomEntry{
			{Name: "Fatigue", Description: "Extreme tiredness.", Category: domain.SymptomCommon},
			{Name: "Numbness or tingling", Description: "Pins and needles.", Category: domain.SymptomCommon},
		},
	})

	for _, section := range []string{
		"Symptom identification",
		"Pathophysiological linkage",
		"Differential causes",
		"Management suggestions",
		"Disclaimer",
	} {
		assert.Contains(t, p.System, section)
	}
	assert.Contains(t, p.System, "- Numbness or tingling (common symptom): Pins and needles.")

	require.Len(t, p.Messages, 1, "analysis ignores chat history")
	assert.Equal(t, `I've been experiencing these symptoms with my MS: "numbness in my left arm and constant fatigue"`, p.Messages[0].Content)
}
