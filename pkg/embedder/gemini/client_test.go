package gemini_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdemy/supportmem-go/pkg/embedder/gemini"
)

func TestNewClientDefaults(t *testing.T) {
	client, err := gemini.NewClient(context.Background(), &gemini.Config{APIKey: "test-key"})

	require.NoError(t, err)
	assert.Equal(t, 768, client.Dimensions())
	assert.NoError(t, client.Close())
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := gemini.NewClient(context.Background(), &gemini.Config{})
	assert.Error(t, err)
}
