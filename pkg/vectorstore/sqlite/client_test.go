package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdemy/supportmem-go/pkg/vectorstore"
	"github.com/vdemy/supportmem-go/pkg/vectorstore/sqlite"
)

func newTestClient(t *testing.T) *sqlite.Client {
	t.Helper()

	client, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.EnsureCollection(context.Background(), 3, vectorstore.MetricCosine))
	return client
}

func record(id int64, userID, content string, embedding []float64, at time.Time) *vectorstore.Record {
	return &vectorstore.Record{
		ID:        id,
		UserID:    userID,
		Role:      "user",
		SessionID: "s1",
		Content:   content,
		Embedding: embedding,
		CreatedAt: at,
	}
}

func TestUpsertAndSearch(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, client.Upsert(ctx, record(1, "alice", "about python", []float64{1, 0, 0}, now)))
	require.NoError(t, client.Upsert(ctx, record(2, "alice", "about cooking", []float64{0, 1, 0}, now)))

	results, err := client.Search(ctx, []float64{1, 0, 0}, &vectorstore.SearchOptions{UserID: "alice", Limit: 10})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "about python", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.0, results[1].Score, 1e-9)
}

func TestUpsertReplacesExistingID(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, client.Upsert(ctx, record(1, "alice", "first version", []float64{1, 0, 0}, now)))
	require.NoError(t, client.Upsert(ctx, record(1, "alice", "second version", []float64{1, 0, 0}, now)))

	results, err := client.Search(ctx, []float64{1, 0, 0}, &vectorstore.SearchOptions{UserID: "alice", Limit: 10})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "second version", results[0].Content)
}

func TestSearchScopedToUser(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, client.Upsert(ctx, record(1, "alice", "alice's note", []float64{1, 0, 0}, now)))
	require.NoError(t, client.Upsert(ctx, record(2, "bob", "bob's note", []float64{1, 0, 0}, now)))

	results, err := client.Search(ctx, []float64{1, 0, 0}, &vectorstore.SearchOptions{UserID: "alice", Limit: 10})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "alice", results[0].UserID)
}

func TestSearchMinScore(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, client.Upsert(ctx, record(1, "alice", "close", []float64{1, 0, 0}, now)))
	require.NoError(t, client.Upsert(ctx, record(2, "alice", "orthogonal", []float64{0, 1, 0}, now)))

	results, err := client.Search(ctx, []float64{1, 0, 0}, &vectorstore.SearchOptions{UserID: "alice", Limit: 10, MinScore: 0.5})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "close", results[0].Content)
}

func TestScrollNewestFirst(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, client.Upsert(ctx, record(i, "alice", "turn", []float64{1, 0, 0}, base.Add(time.Duration(i)*time.Second))))
	}

	results, err := client.Scroll(ctx, &vectorstore.ScrollOptions{UserID: "alice", Limit: 2})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, int64(3), results[0].ID)
	assert.Equal(t, int64(2), results[1].ID)

	page2, err := client.Scroll(ctx, &vectorstore.ScrollOptions{UserID: "alice", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, int64(1), page2[0].ID)
}

func TestDeleteByUser(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, client.Upsert(ctx, record(1, "alice", "a", []float64{1, 0, 0}, now)))
	require.NoError(t, client.Upsert(ctx, record(2, "bob", "b", []float64{1, 0, 0}, now)))

	require.NoError(t, client.Delete(ctx, &vectorstore.DeleteFilter{UserID: "alice"}))

	remaining, err := client.Scroll(ctx, &vectorstore.ScrollOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "bob", remaining[0].UserID)
}

func TestDeleteBefore(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, client.Upsert(ctx, record(1, "alice", "old", []float64{1, 0, 0}, now.Add(-2*time.Hour))))
	require.NoError(t, client.Upsert(ctx, record(2, "alice", "new", []float64{1, 0, 0}, now)))

	require.NoError(t, client.Delete(ctx, &vectorstore.DeleteFilter{Before: now.Add(-time.Hour)}))

	remaining, err := client.Scroll(ctx, &vectorstore.ScrollOptions{UserID: "alice", Limit: 10})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].Content)
}

func TestDeleteEmptyFilterRejected(t *testing.T) {
	client := newTestClient(t)

	err := client.Delete(context.Background(), &vectorstore.DeleteFilter{})
	assert.Error(t, err)
}
