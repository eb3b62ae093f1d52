// Package openai adapts the OpenAI API to the embedding and generation
// interfaces of the service layer.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cloo-solutions/msassist/internal/service"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions matches the vector column of the chunks table.
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel answers questions and names sessions.
	DefaultChatModel = openai.GPT4o

	defaultBatchSize  = 64
	defaultRetries    = 3
	defaultRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 5 * time.Second
	titleMaxTokens    = 20
)

const titleInstruction = "Generate a short title, under 30 characters, for a conversation that starts with " +
	"the message below. Reply with the title only, without quotes."

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoChoices is returned when a completion has no choices
	ErrNoChoices = errors.New("completion returned no choices")
)

type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for a compatible proxy.
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	// BatchSize caps how many texts go into one embeddings request.
	BatchSize int
	// Retries is the number of attempts per embeddings request.
	Retries    uint
	RetryDelay time.Duration
}

// Client embeds text and generates completions with the OpenAI API.
type Client struct {
	api *openai.Client
	cfg Config
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Retries == 0 {
		cfg.Retries = defaultRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Client{
		api: openai.NewClientWithConfig(apiCfg),
		cfg: cfg,
	}
}

// Embed generates an embedding for the given text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts in request-sized batches and returns the vectors in
// input order. Each request is retried on transient failures.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrEmptyText
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(texts))

		var batch [][]float32
		err := retry.Do(
			func() error {
				var err error
				batch, err = c.createEmbeddings(ctx, texts[start:end])
				return err
			},
			retry.Context(ctx),
			retry.Attempts(c.cfg.Retries),
			retry.Delay(c.cfg.RetryDelay),
			retry.MaxDelay(maxRetryDelay),
			retry.RetryIf(retryable),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w", err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *Client) createEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: c.cfg.EmbeddingModel,
	}
	if supportsDimensions(c.cfg.EmbeddingModel) {
		req.Dimensions = c.cfg.EmbeddingDimensions
	}

	resp, err := c.api.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, retry.Unrecoverable(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != c.cfg.EmbeddingDimensions {
			return nil, retry.Unrecoverable(fmt.Errorf("%w: expected %d, got %d",
				ErrWrongDimensions, c.cfg.EmbeddingDimensions, len(d.Embedding)))
		}
		out[i] = d.Embedding
	}
	return out, nil
}

// Generate runs one non-streaming chat completion. It is never retried.
func (c *Client) Generate(ctx context.Context, prompt service.Prompt, opts service.GenerateOptions) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(prompt.Messages)+1)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	for _, m := range prompt.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == service.PromptRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
}

// GenerateTitle names a conversation after its first message.
func (c *Client) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: titleInstruction},
			{Role: openai.ChatMessageRoleUser, Content: firstMessage},
		},
		MaxTokens:   titleMaxTokens,
		Temperature: 0.3,
	})
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// retryable reports whether an embeddings call may succeed on a later attempt:
// rate limits, server errors and transport failures.
func retryable(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

// supportsDimensions reports whether the model accepts a requested output
// size. ada-002 rejects the parameter.
func supportsDimensions(model openai.EmbeddingModel) bool {
	return strings.HasPrefix(string(model), "text-embedding-3")
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
