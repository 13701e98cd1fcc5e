// Package intent classifies user queries into language, intent,
// confidence, and entities.
//
// The primary path prompts the generative model for a strict JSON
// object. Any failure (call error, unparsable output, missing keys,
// unknown intent) routes to a heuristic fallback that needs no
// external call, so classification never returns nil and never panics
// out to its caller.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vdemy/supportmem-go/pkg/llm"
)

// Closed set of intent labels.
const (
	IntentNavigationHelp       = "navigation_help"
	IntentCourseRecommendation = "course_recommendation"
	IntentGeneralInquiry       = "general_inquiry"
)

// Language codes reported by the classifier.
const (
	LanguageVietnamese = "vi"
	LanguageEnglish    = "en"
)

// fallbackConfidence marks heuristic results as lower certainty than
// model-produced ones.
const fallbackConfidence = 0.55

// Result is a fully populated classification outcome.
//
// Entities uses a small closed key set: "topic", "skill_level",
// "course_name".
type Result struct {
	Language   string            `json:"language"`
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities"`
}

// Classifier produces classification results from queries.
type Classifier struct {
	llm     llm.Provider
	timeout time.Duration
	logger  *zap.Logger
}

// Options configures optional classifier behavior.
type Options struct {
	// Timeout bounds the model call. Defaults to 15s.
	Timeout time.Duration

	// Logger receives fallback-path warnings. Defaults to a no-op logger.
	Logger *zap.Logger
}

// NewClassifier creates a classifier backed by the given model.
//
// A nil provider is allowed; every classification then uses the
// heuristic fallback.
func NewClassifier(provider llm.Provider, opts *Options) *Classifier {
	timeout := 15 * time.Second
	logger := zap.NewNop()
	if opts != nil {
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
		if opts.Logger != nil {
			logger = opts.Logger
		}
	}
	return &Classifier{llm: provider, timeout: timeout, logger: logger}
}

// Classify classifies a query given a short window of recent turns.
//
// The returned Result is never nil.
func (c *Classifier) Classify(ctx context.Context, query string, recentTurns []string) *Result {
	if c.llm == nil {
		return FallbackClassify(query)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.llm.GenerateWithMessages(callCtx, []llm.Message{
		{Role: "system", Content: classifyPrompt},
		{Role: "user", Content: buildClassifyInput(query, recentTurns)},
	}, llm.WithTemperature(0.0), llm.WithMaxTokens(300))
	if err != nil {
		c.logger.Warn("intent: model call failed, using fallback", zap.Error(err))
		return FallbackClassify(query)
	}

	result, err := parseResult(response)
	if err != nil {
		c.logger.Warn("intent: malformed model output, using fallback",
			zap.String("output", truncate(response, 200)),
			zap.Error(err))
		return FallbackClassify(query)
	}

	return result
}

const classifyPrompt = `You are an intent classifier for an online learning platform's customer support assistant.
Classify the user's latest message.

Return ONLY a JSON object with exactly these keys:
{"language": "vi" or "en", "intent": one of "navigation_help", "course_recommendation", "general_inquiry", "confidence": number between 0 and 1, "entities": object}

The entities object may contain: "topic" (subject the user wants to learn), "skill_level" (one of "beginner", "intermediate", "advanced"), "course_name" (a specific course mentioned). Omit keys you cannot extract.

No prose, no code fences, just the JSON object.`

// buildClassifyInput renders the query and recent turns for the model.
func buildClassifyInput(query string, recentTurns []string) string {
	if len(recentTurns) == 0 {
		return fmt.Sprintf("Message: %s", query)
	}
	return fmt.Sprintf("Recent conversation:\n%s\n\nMessage: %s",
		strings.Join(recentTurns, "\n"), query)
}

// parseResult parses the model's JSON output into a Result and
// validates every key against the closed sets.
func parseResult(response string) (*Result, error) {
	response = removeCodeBlocks(response)

	var raw struct {
		Language   string            `json:"language"`
		Intent     string            `json:"intent"`
		Confidence *float64          `json:"confidence"`
		Entities   map[string]string `json:"entities"`
	}
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	switch raw.Intent {
	case IntentNavigationHelp, IntentCourseRecommendation, IntentGeneralInquiry:
	default:
		return nil, fmt.Errorf("unknown intent %q", raw.Intent)
	}

	if raw.Language != LanguageVietnamese && raw.Language != LanguageEnglish {
		return nil, fmt.Errorf("unknown language %q", raw.Language)
	}

	if raw.Confidence == nil {
		return nil, fmt.Errorf("missing confidence")
	}
	confidence := *raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	entities := raw.Entities
	if entities == nil {
		entities = map[string]string{}
	}

	return &Result{
		Language:   raw.Language,
		Intent:     raw.Intent,
		Confidence: confidence,
		Entities:   entities,
	}, nil
}

// removeCodeBlocks strips ```json ... ``` fences some models emit
// despite instructions.
func removeCodeBlocks(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
