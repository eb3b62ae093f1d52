package service

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how extracted text is split before embedding.
type ChunkConfig struct {
	// Size is the maximum chunk length in runes.
	Size int
	// Overlap is how many runes consecutive chunks share.
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

// TextChunk is a span of text and its rune offset in the source.
type TextChunk struct {
	Offset  int
	Content string
}

// chunkText splits text into overlapping windows. Cuts fall on whitespace
// when there is any in the second half of a window; each chunk records where
// its trimmed content starts.
func chunkText(text string, cfg ChunkConfig) []TextChunk {
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		cfg.Overlap = 0
	}

	runes := []rune(text)
	chunks := make([]TextChunk, 0, len(runes)/cfg.Size+1)

	start := skipSpace(runes, 0)
	for start < len(runes) {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			minCut := start + cfg.Size/2
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					end = i
					break
				}
			}
		}

		content := strings.TrimRightFunc(string(runes[start:end]), unicode.IsSpace)
		if content != "" {
			chunks = append(chunks, TextChunk{Offset: start, Content: content})
		}

		if end >= len(runes) {
			break
		}

		next := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			next = end - cfg.Overlap
		}
		if next <= start {
			next = end
		}
		start = skipSpace(runes, next)
	}

	return chunks
}

func skipSpace(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}
