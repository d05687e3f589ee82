// Package embedder turns text into vectors. Providers talk to Ollama, an
// OpenAI-compatible API or a local hugot pipeline; EmbedAll adds batching
// and normalisation on top of any of them.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"repocite/internal/logging"
)

// Common errors
var (
	ErrProviderFailed  = errors.New("embedding provider failed")
	ErrUnknownProvider = errors.New("unknown embedding provider")
	ErrEmptyEmbedding  = errors.New("provider returned no embedding")
	ErrCountMismatch   = errors.New("embedding count mismatch")
)

// DefaultBatchSize is the number of texts sent per provider call.
const DefaultBatchSize = 64

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedAll embeds texts in consecutive batches of batchSize and L2
// normalises every vector. A batch that fails, or returns the wrong number
// of vectors, contributes nothing and is logged; later batches still run.
// The result may therefore be shorter than texts.
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize int, log *slog.Logger) [][]float32 {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = logging.Discard()
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		if ctx.Err() != nil {
			log.Warn("embedding cancelled", "batch_start", i, "error", ctx.Err())
			return out
		}
		vecs, err := e.Embed(ctx, texts[i:end])
		if err == nil && len(vecs) != end-i {
			err = fmt.Errorf("%w: sent %d, got %d", ErrCountMismatch, end-i, len(vecs))
		}
		if err != nil {
			log.Warn("embedding batch failed", "batch_start", i, "batch_size", end-i, "error", err)
			continue
		}
		for _, v := range vecs {
			out = append(out, Normalize(v))
		}
		log.Debug("embedded batch", "batch_start", i, "batch_size", end-i)
	}
	return out
}

// EmbedQuery embeds a single text and normalises it. Unlike EmbedAll a
// failure is returned to the caller.
func EmbedQuery(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embed query: %w", ErrEmptyEmbedding)
	}
	return Normalize(vecs[0]), nil
}

// Normalize returns v scaled to unit L2 length. A zero vector is returned
// unchanged. The input is not modified.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
