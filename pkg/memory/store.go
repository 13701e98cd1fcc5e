// Package memory provides the durable per-turn conversation log with
// semantic and temporal retrieval and bounded retention.
//
// Every external call (embedding, vector search, deletion) is bounded
// by a timeout and degrades to "no memory" on failure: Record reports
// false, retrieval operations return empty slices. Failures are logged
// but never propagate to callers.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/vdemy/supportmem-go/pkg/embedder"
	"github.com/vdemy/supportmem-go/pkg/vectorstore"
)

// Conversational roles attached to each stored turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultRecallLimit = 3
)

// Retrieved is a single retrieved conversation turn.
type Retrieved struct {
	// Text is the turn's content.
	Text string `json:"text"`

	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Timestamp is when the turn was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Score is the similarity score for semantic retrieval, 0 for
	// temporal retrieval.
	Score float64 `json:"score,omitempty"`
}

// Store is the conversational memory store.
//
// A Store owns its records exclusively: records are created by Record,
// destroyed only by PurgeExpired or PurgeUser, and never mutated.
type Store struct {
	store    vectorstore.Store
	embedder embedder.Provider
	node     *snowflake.Node
	timeout  time.Duration
	logger   *zap.Logger
}

// Options configures optional store behavior.
type Options struct {
	// Timeout bounds each external call. Defaults to 15s.
	Timeout time.Duration

	// Logger receives degraded-operation warnings. Defaults to a no-op
	// logger.
	Logger *zap.Logger
}

// NewStore creates a memory store over the given vector store and
// embedding provider.
func NewStore(store vectorstore.Store, provider embedder.Provider, opts *Options) (*Store, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}

	timeout := defaultTimeout
	logger := zap.NewNop()
	if opts != nil {
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
		if opts.Logger != nil {
			logger = opts.Logger
		}
	}

	return &Store{
		store:    store,
		embedder: provider,
		node:     node,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Record stores one conversation turn.
//
// The text is embedded first; if embedding fails, nothing is written
// and Record returns false. There are no partial writes: a stored
// record always carries a non-nil vector.
func (s *Store) Record(ctx context.Context, text, userID, role, sessionID string) bool {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	embedding, err := s.embedder.Embed(callCtx, text)
	if err != nil || len(embedding) == 0 {
		s.logger.Warn("memory: embedding failed, turn not recorded",
			zap.String("user_id", userID),
			zap.String("role", role),
			zap.Error(err))
		return false
	}

	record := &vectorstore.Record{
		ID:        s.node.Generate().Int64(),
		UserID:    userID,
		Role:      role,
		SessionID: sessionID,
		Content:   text,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}

	if err := s.store.Upsert(callCtx, record); err != nil {
		s.logger.Warn("memory: upsert failed, turn not recorded",
			zap.String("user_id", userID),
			zap.Error(err))
		return false
	}

	return true
}

// RetrieveBySimilarity returns the turns most semantically similar to
// the query, strictly scoped to userID and sorted descending by
// similarity. On any failure it returns an empty slice.
func (s *Store) RetrieveBySimilarity(ctx context.Context, query, userID string, limit int, minScore float64) []Retrieved {
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	embedding, err := s.embedder.Embed(callCtx, query)
	if err != nil || len(embedding) == 0 {
		s.logger.Warn("memory: query embedding failed, recall degraded to empty",
			zap.String("user_id", userID),
			zap.Error(err))
		return []Retrieved{}
	}

	records, err := s.store.Search(callCtx, embedding, &vectorstore.SearchOptions{
		UserID:   userID,
		Limit:    limit,
		MinScore: minScore,
	})
	if err != nil {
		s.logger.Warn("memory: search failed, recall degraded to empty",
			zap.String("user_id", userID),
			zap.Error(err))
		return []Retrieved{}
	}

	retrieved := make([]Retrieved, 0, len(records))
	for _, record := range records {
		retrieved = append(retrieved, Retrieved{
			Text:      record.Content,
			Role:      record.Role,
			Timestamp: record.CreatedAt,
			Score:     record.Score,
		})
	}
	return retrieved
}

// RetrieveRecent returns the user's most recent turns in chronological
// order (oldest first), independent of semantic relevance. On failure
// it returns an empty slice.
func (s *Store) RetrieveRecent(ctx context.Context, userID string, limit int) []Retrieved {
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.store.Scroll(callCtx, &vectorstore.ScrollOptions{
		UserID: userID,
		Limit:  limit,
	})
	if err != nil {
		s.logger.Warn("memory: scroll failed, history degraded to empty",
			zap.String("user_id", userID),
			zap.Error(err))
		return []Retrieved{}
	}

	// Scroll returns newest first; reverse into chronological order.
	retrieved := make([]Retrieved, len(records))
	for i, record := range records {
		retrieved[len(records)-1-i] = Retrieved{
			Text:      record.Content,
			Role:      record.Role,
			Timestamp: record.CreatedAt,
		}
	}
	return retrieved
}

// History returns up to limit of the user's stored turns in
// chronological order. A limit <= 0 uses a single full scroll page.
func (s *Store) History(ctx context.Context, userID string, limit int) []Retrieved {
	if limit <= 0 {
		limit = 100
	}
	return s.RetrieveRecent(ctx, userID, limit)
}

// PurgeExpired deletes every record older than the retention period.
// Records inside the retention window are never deleted. Idempotent;
// returns the cutoff that was applied.
func (s *Store) PurgeExpired(ctx context.Context, retention time.Duration) time.Time {
	cutoff := time.Now().Add(-retention)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.Delete(callCtx, &vectorstore.DeleteFilter{Before: cutoff}); err != nil {
		s.logger.Warn("memory: retention sweep failed",
			zap.Time("cutoff", cutoff),
			zap.Error(err))
	}
	return cutoff
}

// PurgeUser deletes all of a user's records on demand. Returns false
// if the deletion failed.
func (s *Store) PurgeUser(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.Delete(callCtx, &vectorstore.DeleteFilter{UserID: userID}); err != nil {
		s.logger.Warn("memory: user purge failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return false
	}
	return true
}

// StartSweeper runs PurgeExpired on the given interval in a background
// goroutine until the returned stop function is called. The sweep does
// not block in-flight reads; a record may appear in a search result
// initiated just before its deletion.
func (s *Store) StartSweeper(retention, interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.PurgeExpired(context.Background(), retention)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
