package agent_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdemy/supportmem-go/pkg/agent"
)

func TestAgentErrorFormatting(t *testing.T) {
	err := agent.NewAgentError("load config", errors.New("file missing"))
	assert.Equal(t, "supportmem: load config: file missing", err.Error())

	bare := agent.NewAgentError("close", nil)
	assert.Equal(t, "supportmem: close", bare.Error())
}

func TestAgentErrorUnwrap(t *testing.T) {
	err := agent.NewAgentError("generate", agent.ErrLLMOperation)

	assert.ErrorIs(t, err, agent.ErrLLMOperation)
	assert.Equal(t, agent.ErrLLMOperation, err.Unwrap())
}

func TestAgentErrorMatchesThroughWrapping(t *testing.T) {
	inner := fmt.Errorf("context: %w", agent.ErrStorageOperation)
	err := agent.NewAgentError("upsert", inner)

	assert.ErrorIs(t, err, agent.ErrStorageOperation)

	var agentErr *agent.AgentError
	require.ErrorAs(t, error(err), &agentErr)
	assert.Equal(t, "upsert", agentErr.Op)
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		agent.ErrInvalidConfig,
		agent.ErrNotFound,
		agent.ErrEmbeddingFailed,
		agent.ErrLLMOperation,
		agent.ErrStorageOperation,
		agent.ErrMalformedOutput,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b)
		}
	}
}
