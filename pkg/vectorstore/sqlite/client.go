// Package sqlite provides a SQLite implementation for vector storage.
//
// SQLite is a lightweight, file-based database suitable for local development
// and single-node deployments. Vectors are stored as JSON strings in TEXT
// fields, and similarity search uses in-memory cosine similarity calculation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vdemy/supportmem-go/pkg/vectorstore"
)

// Client implements vectorstore.Store using SQLite as the backend.
type Client struct {
	db             *sql.DB
	collectionName string
	dimensions     int
}

// Config contains configuration for creating a SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CollectionName is the name of the table to use.
	CollectionName string

	// Dimensions is the dimension of embedding vectors.
	Dimensions int
}

// NewClient creates a new SQLite store client and initializes the schema.
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	collection := cfg.CollectionName
	if collection == "" {
		collection = "customer_support"
	}

	client := &Client{
		db:             db,
		collectionName: collection,
		dimensions:     cfg.Dimensions,
	}

	if err := client.EnsureCollection(context.Background(), cfg.Dimensions, vectorstore.MetricCosine); err != nil {
		return nil, err
	}

	return client, nil
}

// EnsureCollection creates the backing table and indexes if absent.
//
// SQLite has no native vector type; dimensions and metric are recorded
// only for interface compatibility and the metric is always cosine.
func (c *Client) EnsureCollection(ctx context.Context, dimensions int, metric vectorstore.MetricType) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			session_id TEXT,
			content TEXT NOT NULL,
			embedding TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`, c.collectionName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("EnsureCollection: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_user_created ON %s(user_id, created_at)
	`, c.collectionName, c.collectionName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("EnsureCollection: %w", err)
	}

	if dimensions > 0 {
		c.dimensions = dimensions
	}

	return nil
}

// Upsert writes a record, replacing any existing record with the same ID.
func (c *Client) Upsert(ctx context.Context, record *vectorstore.Record) error {
	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s
		(id, user_id, role, session_id, content, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.collectionName)

	embeddingJSON, err := json.Marshal(record.Embedding)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = c.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Role,
		record.SessionID,
		record.Content,
		string(embeddingJSON),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	return nil
}

// Search performs vector similarity search using cosine similarity.
//
// SQLite does not have native vector operations, so similarity is
// calculated in memory after loading all matching records.
func (c *Client) Search(ctx context.Context, embedding []float64, opts *vectorstore.SearchOptions) ([]*vectorstore.Record, error) {
	if opts == nil {
		opts = &vectorstore.SearchOptions{}
	}

	whereClause, args := buildWhereClause(opts.UserID)

	query := fmt.Sprintf(`
		SELECT id, user_id, role, session_id, content, embedding, created_at
		FROM %s
		%s
		ORDER BY id
	`, c.collectionName, whereClause)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*vectorstore.Record
	for rows.Next() {
		record, err := c.scanRecord(rows)
		if err != nil {
			return nil, err
		}

		record.Score = cosineSimilarity(embedding, record.Embedding)
		if record.Score >= opts.MinScore {
			records = append(records, record)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
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

	whereClause, args := buildWhereClause(opts.UserID)

	query := fmt.Sprintf(`
		SELECT id, user_id, role, session_id, content, embedding, created_at
		FROM %s
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, c.collectionName, whereClause)

	args = append(args, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Scroll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*vectorstore.Record
	for rows.Next() {
		record, err := c.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Scroll: %w", err)
	}

	return records, nil
}

// Delete removes every record matching the filter.
func (c *Client) Delete(ctx context.Context, filter *vectorstore.DeleteFilter) error {
	if filter.Empty() {
		return fmt.Errorf("Delete: empty filter")
	}

	whereClause, args := buildDeleteClause(filter)
	query := fmt.Sprintf("DELETE FROM %s %s", c.collectionName, whereClause)

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// scanRecord scans a record from a database row.
func (c *Client) scanRecord(rows *sql.Rows) (*vectorstore.Record, error) {
	var record vectorstore.Record
	var embeddingStr string
	var sessionID sql.NullString

	err := rows.Scan(
		&record.ID,
		&record.UserID,
		&record.Role,
		&sessionID,
		&record.Content,
		&embeddingStr,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sessionID.Valid {
		record.SessionID = sessionID.String
	}

	if err := json.Unmarshal([]byte(embeddingStr), &record.Embedding); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}

	return &record, nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
