package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/cloo-solutions/msassist/internal/service"
)

// EmbeddingDimensions matches the vector column of the chunks table.
const EmbeddingDimensions = 1536

// HashEmbedder maps each word to a fixed dimension, so texts sharing words
// land close together. It is deterministic and needs no network.
type HashEmbedder struct{}

func (HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return hashVector(text), nil
}

func (HashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

func hashVector(text string) []float32 {
	v := make([]float32, EmbeddingDimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%EmbeddingDimensions]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// EchoGenerator answers with a fixed reply and records every prompt it saw.
type EchoGenerator struct {
	Reply string

	mu      sync.Mutex
	delay   time.Duration
	prompts []service.Prompt
}

// SetDelay makes later calls stall for d before answering, or until the
// caller's deadline passes.
func (g *EchoGenerator) SetDelay(d time.Duration) {
	g.mu.Lock()
	g.delay = d
	g.mu.Unlock()
}

func (g *EchoGenerator) Generate(ctx context.Context, prompt service.Prompt, _ service.GenerateOptions) (string, error) {
	g.mu.Lock()
	delay := g.delay
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.Reply, nil
}

// Prompts returns the prompts seen so far.
func (g *EchoGenerator) Prompts() []service.Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]service.Prompt(nil), g.prompts...)
}
