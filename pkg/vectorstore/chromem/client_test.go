package chromem_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdemy/supportmem-go/pkg/vectorstore"
	"github.com/vdemy/supportmem-go/pkg/vectorstore/chromem"
)

func newTestClient(t *testing.T) *chromem.Client {
	t.Helper()

	client, err := chromem.NewClient(&chromem.Config{})
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

	require.NotEmpty(t, results)
	assert.Equal(t, "about python", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
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
}

func TestDeleteByUser(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, client.Upsert(ctx, record(1, "alice", "a", []float64{1, 0, 0}, now)))
	require.NoError(t, client.Upsert(ctx, record(2, "bob", "b", []float64{1, 0, 0}, now)))

	require.NoError(t, client.Delete(ctx, &vectorstore.DeleteFilter{UserID: "alice"}))

	results, err := client.Search(ctx, []float64{1, 0, 0}, &vectorstore.SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bob", results[0].UserID)
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

func TestPersistentReopenRestoresRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chromem")
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	first, err := chromem.NewClient(&chromem.Config{PersistPath: path})
	require.NoError(t, err)
	require.NoError(t, first.EnsureCollection(ctx, 3, vectorstore.MetricCosine))
	require.NoError(t, first.Upsert(ctx, record(1, "alice", "remember me", []float64{1, 0, 0}, now)))
	require.NoError(t, first.Upsert(ctx, record(2, "bob", "me too", []float64{0, 1, 0}, now)))
	require.NoError(t, first.Close())

	second, err := chromem.NewClient(&chromem.Config{PersistPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })
	require.NoError(t, second.EnsureCollection(ctx, 3, vectorstore.MetricCosine))

	restored, err := second.Scroll(ctx, &vectorstore.ScrollOptions{UserID: "alice", Limit: 10})
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, "remember me", restored[0].Content)
	assert.True(t, restored[0].CreatedAt.Equal(now))
}

func TestPersistentReopenDeletesRestoredRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chromem")
	ctx := context.Background()
	now := time.Now()

	first, err := chromem.NewClient(&chromem.Config{PersistPath: path})
	require.NoError(t, err)
	require.NoError(t, first.EnsureCollection(ctx, 3, vectorstore.MetricCosine))
	require.NoError(t, first.Upsert(ctx, record(1, "alice", "secret", []float64{1, 0, 0}, now)))
	require.NoError(t, first.Upsert(ctx, record(2, "bob", "other", []float64{0, 1, 0}, now)))
	require.NoError(t, first.Close())

	second, err := chromem.NewClient(&chromem.Config{PersistPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })
	require.NoError(t, second.EnsureCollection(ctx, 3, vectorstore.MetricCosine))

	require.NoError(t, second.Delete(ctx, &vectorstore.DeleteFilter{UserID: "alice"}))

	results, err := second.Search(ctx, []float64{1, 0, 0}, &vectorstore.SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bob", results[0].UserID)

	assert.Empty(t, mustScroll(t, second, "alice"))
}

func TestRejectsNonCosineMetric(t *testing.T) {
	client, err := chromem.NewClient(&chromem.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	assert.Error(t, client.EnsureCollection(context.Background(), 3, vectorstore.MetricL2))
}

func mustScroll(t *testing.T, client *chromem.Client, userID string) []*vectorstore.Record {
	t.Helper()
	records, err := client.Scroll(context.Background(), &vectorstore.ScrollOptions{UserID: userID, Limit: 100})
	require.NoError(t, err)
	return records
}
