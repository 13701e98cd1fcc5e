// Package chromem provides an embedded, in-process vector store backed
// by chromem-go. No external database is required, which makes it the
// default backend for development and tests that need real similarity
// search without a server.
package chromem

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/vdemy/supportmem-go/pkg/vectorstore"
)

// Client implements vectorstore.Store using chromem-go.
//
// chromem-go exposes neither paged listing nor filtered deletion by
// age, so the client keeps a side index of record payloads. The index
// and the collection are updated together under the mutex; readers of
// search results may still observe a record deleted concurrently,
// which is the accepted race documented on vectorstore.Store.
type Client struct {
	db         *chromemgo.DB
	collection *chromemgo.Collection

	mu      sync.RWMutex
	records map[int64]*vectorstore.Record
}

// Config contains configuration for the chromem store.
type Config struct {
	// CollectionName is the name of the collection. Defaults to
	// "customer_support".
	CollectionName string

	// PersistPath, when set, stores the collection on disk instead of
	// purely in memory.
	PersistPath string
}

// NewClient creates a new chromem store client.
func NewClient(cfg *Config) (*Client, error) {
	var db *chromemgo.DB
	var err error
	if cfg.PersistPath != "" {
		db, err = chromemgo.NewPersistentDB(cfg.PersistPath, false)
		if err != nil {
			return nil, fmt.Errorf("NewChromemClient: %w", err)
		}
	} else {
		db = chromemgo.NewDB()
	}

	name := cfg.CollectionName
	if name == "" {
		name = "customer_support"
	}

	// Embeddings are always supplied by the caller, so no embedding
	// function is registered. Distance is chromem's default (cosine).
	collection, err := db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("NewChromemClient: %w", err)
	}

	return &Client{
		db:         db,
		collection: collection,
		records:    make(map[int64]*vectorstore.Record),
	}, nil
}

// EnsureCollection validates the metric and, for a persistent store
// that already holds documents from an earlier process, rebuilds the
// side index so Scroll and filtered deletes see the restored records.
func (c *Client) EnsureCollection(ctx context.Context, dimensions int, metric vectorstore.MetricType) error {
	if metric != "" && metric != vectorstore.MetricCosine {
		return fmt.Errorf("EnsureCollection: chromem supports only cosine, got %q", metric)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	count := c.collection.Count()
	if count == 0 || len(c.records) >= count {
		return nil
	}
	if dimensions <= 0 {
		return fmt.Errorf("EnsureCollection: dimensions required to reindex persisted records")
	}

	// chromem has no listing API. An exhaustive similarity query with a
	// unit vector returns every stored document along with its
	// metadata and embedding.
	unit := make([]float32, dimensions)
	unit[0] = 1
	results, err := c.collection.QueryEmbedding(ctx, unit, count, nil, nil)
	if err != nil {
		return fmt.Errorf("EnsureCollection: reindex: %w", err)
	}

	for _, result := range results {
		record, err := recordFromResult(result)
		if err != nil {
			continue
		}
		c.records[record.ID] = record
	}

	return nil
}

// Upsert writes a record, replacing any existing record with the same ID.
func (c *Client) Upsert(ctx context.Context, record *vectorstore.Record) error {
	stored := *record
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	doc := chromemgo.Document{
		ID:        strconv.FormatInt(stored.ID, 10),
		Content:   stored.Content,
		Embedding: toFloat32(stored.Embedding),
		Metadata: map[string]string{
			"user_id":    stored.UserID,
			"role":       stored.Role,
			"session_id": stored.SessionID,
			"created_at": stored.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	c.records[stored.ID] = &stored

	return nil
}

// Search performs vector similarity search.
func (c *Client) Search(ctx context.Context, embedding []float64, opts *vectorstore.SearchOptions) ([]*vectorstore.Record, error) {
	if opts == nil {
		opts = &vectorstore.SearchOptions{}
	}

	var where map[string]string
	if opts.UserID != "" {
		where = map[string]string{"user_id": opts.UserID}
	}

	c.mu.RLock()
	count := c.collection.Count()
	c.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	// chromem rejects nResults greater than the collection size.
	if limit > count {
		limit = count
	}
	if limit == 0 {
		return nil, nil
	}

	results, err := c.collection.QueryEmbedding(ctx, toFloat32(embedding), limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}

	var records []*vectorstore.Record
	for _, result := range results {
		score := float64(result.Similarity)
		if score < opts.MinScore {
			continue
		}
		record, err := recordFromResult(result)
		if err != nil {
			continue
		}
		record.Score = score
		records = append(records, record)
	}

	return records, nil
}

// Scroll pages through records newest first, without similarity ranking.
func (c *Client) Scroll(ctx context.Context, opts *vectorstore.ScrollOptions) ([]*vectorstore.Record, error) {
	if opts == nil {
		opts = &vectorstore.ScrollOptions{}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	c.mu.RLock()
	all := make([]*vectorstore.Record, 0, len(c.records))
	for _, record := range c.records {
		if opts.UserID != "" && record.UserID != opts.UserID {
			continue
		}
		copied := *record
		all = append(all, &copied)
	}
	c.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if opts.Offset >= len(all) {
		return nil, nil
	}
	all = all[opts.Offset:]
	if len(all) > limit {
		all = all[:limit]
	}

	return all, nil
}

// Delete removes every record matching the filter.
func (c *Client) Delete(ctx context.Context, filter *vectorstore.DeleteFilter) error {
	if filter.Empty() {
		return fmt.Errorf("Delete: empty filter")
	}

	explicit := make(map[int64]bool, len(filter.IDs))
	for _, id := range filter.IDs {
		explicit[id] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var docIDs []string
	var recordIDs []int64
	for id, record := range c.records {
		if filter.UserID != "" && record.UserID != filter.UserID {
			continue
		}
		if !filter.Before.IsZero() && !record.CreatedAt.Before(filter.Before) {
			continue
		}
		if len(explicit) > 0 && !explicit[id] {
			continue
		}
		docIDs = append(docIDs, strconv.FormatInt(id, 10))
		recordIDs = append(recordIDs, id)
	}

	if len(docIDs) == 0 {
		return nil
	}

	if err := c.collection.Delete(ctx, nil, nil, docIDs...); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	for _, id := range recordIDs {
		delete(c.records, id)
	}

	return nil
}

// Close releases resources. chromem keeps everything in memory, so
// there is nothing to close.
func (c *Client) Close() error {
	return nil
}

// recordFromResult rebuilds a record from a chromem query result.
func recordFromResult(result chromemgo.Result) (*vectorstore.Record, error) {
	id, err := strconv.ParseInt(result.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad record id %q: %w", result.ID, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, result.Metadata["created_at"])
	if err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}

	return &vectorstore.Record{
		ID:        id,
		UserID:    result.Metadata["user_id"],
		Role:      result.Metadata["role"],
		SessionID: result.Metadata["session_id"],
		Content:   result.Content,
		Embedding: toFloat64(result.Embedding),
		CreatedAt: createdAt,
	}, nil
}

// toFloat32 narrows vectors to chromem's float32 representation.
func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// toFloat64 widens chromem's float32 vectors back to the store contract.
func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
