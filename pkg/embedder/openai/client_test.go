package openai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdemy/supportmem-go/pkg/embedder/openai"
)

func TestNewClientDefaults(t *testing.T) {
	client, err := openai.NewClient(&openai.Config{APIKey: "test-key"})

	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	assert.Equal(t, 1536, client.Dimensions())
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := openai.NewClient(&openai.Config{})
	assert.Error(t, err)
}

func TestNewClientAcceptsSupportedModelNames(t *testing.T) {
	for _, model := range []string{"", "text-embedding-ada-002", "text-search-ada-doc-001", "text-search-ada-query-001"} {
		_, err := openai.NewClient(&openai.Config{APIKey: "test-key", Model: model})
		assert.NoError(t, err, "model %q", model)
	}
}

func TestNewClientRejectsUnknownModel(t *testing.T) {
	_, err := openai.NewClient(&openai.Config{APIKey: "test-key", Model: "text-embedding-3-small"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model")
}
