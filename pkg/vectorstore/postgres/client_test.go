package postgres_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdemy/supportmem-go/pkg/vectorstore"
	"github.com/vdemy/supportmem-go/pkg/vectorstore/postgres"
)

// setupPostgresTest connects to the PostgreSQL instance described by
// the environment. Tests are skipped when POSTGRES_PASSWORD is unset,
// so the suite stays runnable without a database.
func setupPostgresTest(t *testing.T) *postgres.Client {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "127.0.0.1"
	}

	portStr := os.Getenv("POSTGRES_PORT")
	if portStr == "" {
		portStr = "5432"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Skipf("skipping PostgreSQL test: invalid POSTGRES_PORT %q", portStr)
	}

	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "postgres"
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		t.Skip("skipping PostgreSQL test: POSTGRES_PASSWORD not set")
	}

	dbName := os.Getenv("POSTGRES_DATABASE")
	if dbName == "" {
		dbName = "supportmem_test"
	}

	client, err := postgres.NewClient(&postgres.Config{
		Host:           host,
		Port:           port,
		User:           user,
		Password:       password,
		DBName:         dbName,
		CollectionName: "support_turns_test",
		Dimensions:     3,
		SSLMode:        "disable",
	})
	require.NoError(t, err)

	require.NoError(t, client.EnsureCollection(context.Background(), 3, vectorstore.MetricCosine))
	require.NoError(t, client.Delete(context.Background(), &vectorstore.DeleteFilter{Before: time.Now().Add(time.Hour)}))
	t.Cleanup(func() { client.Close() })

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
	client := setupPostgresTest(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, client.Upsert(ctx, record(1, "alice", "about python", []float64{1, 0, 0}, now)))
	require.NoError(t, client.Upsert(ctx, record(2, "alice", "about cooking", []float64{0, 1, 0}, now)))

	results, err := client.Search(ctx, []float64{1, 0, 0}, &vectorstore.SearchOptions{UserID: "alice", Limit: 10})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "about python", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSearchScopedToUser(t *testing.T) {
	client := setupPostgresTest(t)
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
	client := setupPostgresTest(t)
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

func TestDeleteByUserAndAge(t *testing.T) {
	client := setupPostgresTest(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, client.Upsert(ctx, record(1, "alice", "old", []float64{1, 0, 0}, now.Add(-2*time.Hour))))
	require.NoError(t, client.Upsert(ctx, record(2, "alice", "new", []float64{1, 0, 0}, now)))
	require.NoError(t, client.Upsert(ctx, record(3, "bob", "other", []float64{1, 0, 0}, now)))

	require.NoError(t, client.Delete(ctx, &vectorstore.DeleteFilter{Before: now.Add(-time.Hour)}))
	require.NoError(t, client.Delete(ctx, &vectorstore.DeleteFilter{UserID: "bob"}))

	remaining, err := client.Scroll(ctx, &vectorstore.ScrollOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].Content)
}
