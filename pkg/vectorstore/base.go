// Package vectorstore provides interfaces and types for vector storage backends.
//
// It defines the Store interface that all storage implementations must satisfy,
// along with the record type and filter options.
package vectorstore

import (
	"context"
	"time"
)

// Record represents a conversation turn stored in the vector store.
//
// Records are immutable once written; they are removed only by
// filter-based deletion (retention sweeps, per-user purges).
type Record struct {
	// ID is the unique identifier of the record.
	ID int64

	// UserID identifies the user who owns this record.
	UserID string

	// Role is the conversational role of the turn: "user" or "assistant".
	Role string

	// SessionID groups records belonging to one conversation session (optional).
	SessionID string

	// Content is the text content of the turn.
	Content string

	// Embedding is the vector embedding for similarity search.
	Embedding []float64

	// CreatedAt is when the record was written.
	CreatedAt time.Time

	// Score is the similarity score from search operations (0.0-1.0).
	Score float64
}

// MetricType defines the distance metric for vector similarity.
type MetricType string

const (
	// MetricCosine uses cosine similarity.
	MetricCosine MetricType = "cosine"

	// MetricL2 uses Euclidean distance (L2 norm).
	MetricL2 MetricType = "l2"

	// MetricIP uses inner product (dot product).
	MetricIP MetricType = "ip"
)

// Store defines the interface for vector storage backends.
//
// All storage implementations (SQLite, PostgreSQL, chromem) must
// implement this interface. Implementations must be safe for
// concurrent use: retention sweeps delete records while searches are
// in flight, and a record may legitimately appear in a search result
// initiated just before its deletion.
type Store interface {
	// EnsureCollection creates the backing collection/table if it does
	// not already exist, sized for vectors of the given dimension and
	// compared with the given metric. Idempotent.
	EnsureCollection(ctx context.Context, dimensions int, metric MetricType) error

	// Upsert writes a record. Writing an existing ID replaces the record.
	Upsert(ctx context.Context, record *Record) error

	// Search performs vector similarity search.
	//
	// Returns matching records sorted by similarity (highest first).
	Search(ctx context.Context, embedding []float64, opts *SearchOptions) ([]*Record, error)

	// Scroll pages through records without similarity ranking,
	// newest first.
	Scroll(ctx context.Context, opts *ScrollOptions) ([]*Record, error)

	// Delete removes every record matching the filter. Deleting an
	// empty match set is not an error.
	Delete(ctx context.Context, filter *DeleteFilter) error

	// Close closes the store and releases resources.
	Close() error
}

// SearchOptions contains options for search operations.
type SearchOptions struct {
	// UserID scopes results to a specific user. Required for
	// per-user isolation; an empty value searches all users.
	UserID string

	// Limit sets the maximum number of results to return.
	Limit int

	// MinScore sets the minimum similarity score for results.
	MinScore float64
}

// ScrollOptions contains options for scroll operations.
type ScrollOptions struct {
	// UserID scopes results to a specific user.
	UserID string

	// Limit sets the maximum number of records per page.
	Limit int

	// Offset sets the number of records to skip (for pagination).
	Offset int
}

// DeleteFilter selects records for deletion.
//
// Conditions combine with AND; zero values are ignored. At least one
// condition must be set.
type DeleteFilter struct {
	// UserID deletes only records belonging to this user.
	UserID string

	// Before deletes only records created strictly before this time.
	Before time.Time

	// IDs deletes only the listed record IDs.
	IDs []int64
}

// Empty reports whether the filter has no conditions set.
func (f *DeleteFilter) Empty() bool {
	return f == nil || (f.UserID == "" && f.Before.IsZero() && len(f.IDs) == 0)
}
