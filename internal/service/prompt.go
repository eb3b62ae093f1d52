package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/msassist/internal/domain"
)

// PromptMode selects the system instruction.
type PromptMode int

const (
	PromptModeChat PromptMode = iota
	PromptModeAnalysis
)

const (
	PromptRoleUser      = "user"
	PromptRoleAssistant = "assistant"

	defaultMaxChunkChars = 500
	defaultHistoryWindow = 10

	emptyContextNote = "No reference documents matched this question. Answer from general MS knowledge and say that no supporting documents were found."
)

const chatInstruction = `You are a Multiple Sclerosis (MS) support assistant. You give compassionate, evidence-based guidance to people living with MS and their carers.

Scope:
- Only discuss MS, its symptoms, treatments, and day-to-day management. Politely decline unrelated requests.
- MS is a chronic autoimmune disease of the central nervous system that damages myelin. Symptoms vary between people and fluctuate over time.
- Disease courses include relapsing-remitting, secondary progressive, primary progressive, and progressive-relapsing.

When you answer:
1. Show empathy for the challenges of living with MS.
2. Ask clarifying questions about specific symptoms when it helps.
3. Prefer the reference documents below when they are relevant, and do not invent sources.
4. Refer back to earlier parts of the conversation when relevant.
5. Address emotional as well as physical aspects of MS.
6. Acknowledge that MS symptoms are variable and unpredictable.

Medical disclaimer: you are an AI assistant, not a clinician. Every answer that touches on diagnosis or treatment must remind the person to consult their neurologist or MS care team, and urgent or worsening symptoms must be directed to professional care promptly.`

const analysisInstruction = `You are an MS support assistant specialising in symptom assessment. The person describes what they are experiencing; analyse it against the MS symptom reference entries below.

Your response must contain all five of these sections, in this order:
1. Symptom identification: which described experiences match known MS symptoms, and which do not.
2. Pathophysiological linkage: how demyelination and nerve damage can produce each matched symptom.
3. Differential causes: other conditions or factors (medication, infection, heat, stress) that could explain the symptoms.
4. Management suggestions: practical, evidence-based self-care and treatment options to discuss with their care team, including which symptoms warrant contacting a neurologist promptly.
5. Disclaimer: state clearly that this is supportive information based on limited text, not a diagnosis, and that they should seek a professional medical assessment.

Be warm and supportive while keeping appropriate boundaries.`

// PromptMessage is one conversational turn sent to the generator.
type PromptMessage struct {
	Role    string
	Content string
}

// Prompt is a generator-neutral request: a system instruction followed by
// alternating turns ending with the user's question.
type Prompt struct {
	System   string
	Messages []PromptMessage
}

// PromptInput carries everything the prompt is built from.
type PromptInput struct {
	Mode          PromptMode
	Query         string
	Chunks        []domain.ScoredChunk
	Symptoms      []domain.SymptomEntry
	History       []*domain.Message
	MaxChunkChars int
	HistoryWindow int
}

// BuildPrompt assembles the generator prompt. It has no side effects, so the
// same input always produces the same prompt.
func BuildPrompt(in PromptInput) Prompt {
	maxChars := in.MaxChunkChars
	if maxChars <= 0 {
		maxChars = defaultMaxChunkChars
	}
	window := in.HistoryWindow
	if window <= 0 {
		window = defaultHistoryWindow
	}

	var sys strings.Builder
	if in.Mode == PromptModeAnalysis {
		sys.WriteString(analysisInstruction)
	} else {
		sys.WriteString(chatInstruction)
	}

	if len(in.Symptoms) > 0 {
		sys.WriteString("\n\nMS symptom reference entries mentioned by the person:\n")
		for _, s := range in.Symptoms {
			fmt.Fprintf(&sys, "- %s (%s): %s\n", s.Name, categoryLabel(s.Category), s.Description)
		}
	}

	sys.WriteString("\n\nReference documents:\n")
	if len(in.Chunks) == 0 {
		sys.WriteString(emptyContextNote)
	} else {
		for i, c := range in.Chunks {
			fmt.Fprintf(&sys, "\nSource %d: %s (relevance %.2f)\n%s\n",
				i+1, c.Chunk.Filename, c.Score, truncateRunes(strings.TrimSpace(c.Chunk.Content), maxChars))
		}
	}

	var messages []PromptMessage
	if in.Mode == PromptModeChat {
		for _, m := range domain.RecentHistory(in.History, window) {
			messages = append(messages, PromptMessage{Role: string(m.Role), Content: m.Content})
		}
	}

	query := strings.TrimSpace(in.Query)
	if in.Mode == PromptModeAnalysis {
		query = fmt.Sprintf("I've been experiencing these symptoms with my MS: %q", query)
	}
	messages = append(messages, PromptMessage{Role: PromptRoleUser, Content: query})

	return Prompt{
		System:   strings.TrimRight(sys.String(), "\n"),
		Messages: messages,
	}
}

func categoryLabel(c domain.SymptomCategory) string {
	switch c {
	case domain.SymptomCommon:
		return "common symptom"
	case domain.SymptomLessCommon:
		return "less common symptom"
	case domain.SymptomPattern:
		return "disease course"
	default:
		return string(c)
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
