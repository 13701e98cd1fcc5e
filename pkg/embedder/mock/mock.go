// Package mock provides a deterministic in-process embedder for tests.
package mock

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// ErrEmbeddingUnavailable is returned by a failing mock embedder.
var ErrEmbeddingUnavailable = errors.New("mock embedder: embedding unavailable")

// Embedder implements embedder.Provider with deterministic bag-of-words
// vectors: each lowercased token hashes to a vector slot. Texts sharing
// tokens therefore have positive cosine similarity, which is enough to
// exercise retrieval and ranking paths without a network call.
type Embedder struct {
	dimensions int

	mu         sync.Mutex
	failAll    bool
	embedCalls int
}

// New creates a mock embedder producing vectors of the given dimension.
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &Embedder{dimensions: dimensions}
}

// SetFailAll makes every subsequent Embed/EmbedBatch call fail.
func (e *Embedder) SetFailAll(fail bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failAll = fail
}

// EmbedCalls returns the number of Embed calls made so far.
func (e *Embedder) EmbedCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.embedCalls
}

// Embed converts a single text into a deterministic vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.mu.Lock()
	e.embedCalls++
	fail := e.failAll
	e.mu.Unlock()

	if fail {
		return nil, ErrEmbeddingUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return e.vectorize(text), nil
}

// EmbedBatch converts multiple texts into deterministic vectors.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vector, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// Dimensions returns the vector dimensionality.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

func (e *Embedder) vectorize(text string) []float64 {
	vector := make([]float64, e.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,!?;:\"'()")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vector[int(h.Sum32())%e.dimensions] += 1.0
	}

	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	if norm == 0 {
		vector[0] = 1.0
		return vector
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}
