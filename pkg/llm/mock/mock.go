// Package mock provides a canned-response LLM provider for tests.
package mock

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/vdemy/supportmem-go/pkg/llm"
)

// ErrGenerationUnavailable is returned by a failing mock provider.
var ErrGenerationUnavailable = errors.New("mock llm: generation unavailable")

// Provider implements llm.Provider with canned responses keyed by
// prompt substring. When no canned response matches, the default
// response is returned.
type Provider struct {
	mu              sync.Mutex
	responses       map[string]string
	defaultResponse string
	failAll         bool
	prompts         []string
}

// New creates a mock provider with the given default response.
func New(defaultResponse string) *Provider {
	return &Provider{
		responses:       make(map[string]string),
		defaultResponse: defaultResponse,
	}
}

// AddResponse registers a canned response returned whenever the prompt
// contains the given substring.
func (p *Provider) AddResponse(substring, response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses[substring] = response
}

// SetFailAll makes every subsequent generation call fail.
func (p *Provider) SetFailAll(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAll = fail
}

// Prompts returns a copy of all prompts seen so far.
func (p *Provider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.prompts))
	copy(out, p.prompts)
	return out
}

// Generate generates text from a single user prompt.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return p.GenerateWithMessages(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// GenerateWithMessages generates text from a conversation history.
func (p *Provider) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, msg := range messages {
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	prompt := sb.String()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)

	if p.failAll {
		return "", ErrGenerationUnavailable
	}

	for substring, response := range p.responses {
		if strings.Contains(prompt, substring) {
			return response, nil
		}
	}

	return p.defaultResponse, nil
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
