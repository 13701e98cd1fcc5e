package agent

import (
	"errors"
	"fmt"
)

// Sentinel errors for agent operations. Callers match these with
// errors.Is after unwrapping an AgentError.
var (
	// ErrInvalidConfig indicates the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotFound indicates a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmbeddingFailed indicates an embedding operation failed.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrLLMOperation indicates an LLM call failed.
	ErrLLMOperation = errors.New("llm operation failed")

	// ErrStorageOperation indicates a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrMalformedOutput indicates the LLM returned output the agent
	// could not parse.
	ErrMalformedOutput = errors.New("malformed llm output")
)

// AgentError wraps an error with the operation that produced it.
type AgentError struct {
	Op  string
	Err error
}

func (e *AgentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("supportmem: %s", e.Op)
	}
	return fmt.Sprintf("supportmem: %s: %v", e.Op, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentError creates an AgentError for the given operation.
func NewAgentError(op string, err error) *AgentError {
	return &AgentError{Op: op, Err: err}
}
