// Package gemini provides a Gemini-backed LLM provider.
//
// The Vdemy support agent was originally deployed against
// gemini-1.5-flash, so that is the default model.
package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/vdemy/supportmem-go/pkg/llm"
)

// Client implements llm.Provider using the Google GenAI SDK.
type Client struct {
	client *genai.Client
	model  string
}

// Config contains configuration for the Gemini LLM.
//
// APIKey is required. Model defaults to gemini-1.5-flash.
type Config struct {
	APIKey string
	Model  string
}

// NewClient creates a new Gemini LLM client.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini llm: api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	return &Client{
		client: client,
		model:  model,
	}, nil
}

// Generate generates text from a single user prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return c.GenerateWithMessages(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// GenerateWithMessages generates text from a conversation history.
//
// System messages are folded into the request's system instruction;
// assistant messages map to the Gemini "model" role.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	temperature := float32(options.Temperature)
	topP := float32(options.TopP)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		TopP:            &topP,
		MaxOutputTokens: int32(options.MaxTokens),
		StopSequences:   options.Stop,
	}

	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			config.SystemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("llm generation failed: empty response from Gemini API")
	}

	return text, nil
}

// Close is a no-op; the GenAI client holds no connection state that
// needs releasing.
func (c *Client) Close() error {
	return nil
}
