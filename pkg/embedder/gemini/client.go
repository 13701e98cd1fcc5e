// Package gemini provides a Gemini-backed embedding provider.
//
// The Vdemy support agent was originally deployed against Gemini's
// embedding-001 model with 768-dimensional vectors, so that is the default.
package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// Client implements embedder.Provider using the Google GenAI SDK.
type Client struct {
	client     *genai.Client
	model      string
	taskType   string
	dimensions int
}

// Config contains configuration for the Gemini embedder.
//
// APIKey is required. Model defaults to gemini-embedding-001 and
// Dimensions defaults to 768.
type Config struct {
	APIKey     string
	Model      string
	Dimensions int
}

// NewClient creates a new Gemini embedder client.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini embedder: api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-embedding-001"
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 768
	}

	return &Client{
		client:     client,
		model:      model,
		taskType:   "RETRIEVAL_DOCUMENT",
		dimensions: dimensions,
	}, nil
}

// Embed converts a single text into a vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch converts multiple texts into vectors.
//
// The GenAI API supports batching natively; the returned slice preserves
// input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := c.client.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		TaskType: c.taskType,
	})
	if err != nil {
		return nil, err
	}

	if len(result.Embeddings) != len(texts) {
		return nil, errors.New("embedding generation failed: result count mismatch from Gemini API")
	}

	embeddings := make([][]float64, len(texts))
	for i, emb := range result.Embeddings {
		vector := make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			vector[j] = float64(v)
		}
		embeddings[i] = vector
	}

	return embeddings, nil
}

// Dimensions returns the vector dimensionality.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Close is a no-op; the GenAI client holds no connection state that
// needs releasing.
func (c *Client) Close() error {
	return nil
}
