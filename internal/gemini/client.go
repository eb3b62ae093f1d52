// Package gemini adapts Google's Gemini models to the generation interfaces
// of the service layer.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/msassist/internal/service"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultChatModel = "gemini-1.5-flash-latest"

	roleUser  = "user"
	roleModel = "model"

	titleInstruction = "You generate concise titles for chat conversations. " +
		"The title should be under 30 characters. Return the title only."
	titleMaxTokens = 20
)

var (
	ErrNoAPIKey      = errors.New("gemini API key is required")
	ErrEmptyPrompt   = errors.New("prompt has no messages")
	ErrEmptyResponse = errors.New("gemini returned no text")
)

// Client generates completions with a Gemini model.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client for model. Close it when done.
func NewClient(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultChatModel
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Generate sends the prompt's last user message with the earlier messages as
// chat history.
func (c *Client) Generate(ctx context.Context, prompt service.Prompt, opts service.GenerateOptions) (string, error) {
	history, last, err := toContents(prompt)
	if err != nil {
		return "", err
	}

	model := c.client.GenerativeModel(c.model)
	if prompt.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(prompt.System))
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	model.SetTemperature(opts.Temperature)

	chat := model.StartChat()
	chat.History = history

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return responseText(resp)
}

// GenerateTitle names a conversation after its first message.
func (c *Client) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(titleInstruction))
	model.SetMaxOutputTokens(titleMaxTokens)
	model.SetTemperature(0.3)

	resp, err := model.GenerateContent(ctx, genai.Text(firstMessage))
	if err != nil {
		return "", fmt.Errorf("gemini title generation failed: %w", err)
	}
	title, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return strings.Trim(title, "\"'\n\r\t ."), nil
}

// toContents maps prompt messages to Gemini contents, splitting off the final
// message, which must come from the user.
func toContents(prompt service.Prompt) ([]*genai.Content, *genai.Content, error) {
	if len(prompt.Messages) == 0 {
		return nil, nil, ErrEmptyPrompt
	}

	contents := make([]*genai.Content, len(prompt.Messages))
	for i, m := range prompt.Messages {
		role := roleUser
		if m.Role == service.PromptRoleAssistant {
			role = roleModel
		}
		contents[i] = &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}}
	}

	last := contents[len(contents)-1]
	if last.Role != roleUser {
		return nil, nil, fmt.Errorf("last prompt message must be from the user, got %q", last.Role)
	}
	return contents[:len(contents)-1], last, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
