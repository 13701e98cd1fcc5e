// Package postgres provides a PostgreSQL + pgvector implementation for
// vector storage. Requires the pgvector extension on the server.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/vdemy/supportmem-go/pkg/vectorstore"
)

// Client implements vectorstore.Store using PostgreSQL with pgvector.
type Client struct {
	db             *sql.DB
	collectionName string
	dimensions     int
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	CollectionName string
	Dimensions     int
	SSLMode        string
}

// NewClient creates a new PostgreSQL client and initializes the schema.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	collection := cfg.CollectionName
	if collection == "" {
		collection = "customer_support"
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 768
	}

	client := &Client{
		db:             db,
		collectionName: collection,
		dimensions:     dimensions,
	}

	if err := client.EnsureCollection(context.Background(), dimensions, vectorstore.MetricCosine); err != nil {
		return nil, err
	}

	return client, nil
}

// EnsureCollection enables the pgvector extension and creates the table
// and indexes if absent.
func (c *Client) EnsureCollection(ctx context.Context, dimensions int, metric vectorstore.MetricType) error {
	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("EnsureCollection: create extension: %w", err)
	}

	if dimensions > 0 {
		c.dimensions = dimensions
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			role VARCHAR(32) NOT NULL,
			session_id VARCHAR(255),
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, c.collectionName, c.dimensions)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("EnsureCollection: create table: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_user_created ON %s(user_id, created_at)
	`, c.collectionName, c.collectionName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("EnsureCollection: create index: %w", err)
	}

	return nil
}

// Upsert writes a record, replacing any existing record with the same ID.
func (c *Client) Upsert(ctx context.Context, record *vectorstore.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, role, session_id, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, CURRENT_TIMESTAMP))
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding
	`, c.collectionName)

	var createdAt interface{}
	if !record.CreatedAt.IsZero() {
		createdAt = record.CreatedAt
	}

	_, err := c.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Role,
		record.SessionID,
		record.Content,
		vectorToString(record.Embedding),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	return nil
}

// Search performs vector search using pgvector's cosine distance operator.
func (c *Client) Search(ctx context.Context, embedding []float64, opts *vectorstore.SearchOptions) ([]*vectorstore.Record, error) {
	if opts == nil {
		opts = &vectorstore.SearchOptions{}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	// <=> is cosine distance; similarity = 1 - distance.
	whereClause := ""
	args := []interface{}{vectorToString(embedding)}
	if opts.UserID != "" {
		whereClause = "WHERE user_id = $2"
		args = append(args, opts.UserID)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, role, session_id, content, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, c.collectionName, whereClause, len(args)+1)
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*vectorstore.Record
	for rows.Next() {
		var record vectorstore.Record
		var sessionID sql.NullString
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Role,
			&sessionID,
			&record.Content,
			&record.CreatedAt,
			&record.Score,
		); err != nil {
			return nil, fmt.Errorf("Search: %w", err)
		}
		if sessionID.Valid {
			record.SessionID = sessionID.String
		}
		if record.Score >= opts.MinScore {
			records = append(records, &record)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Search: %w", err)
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

	whereClause := ""
	args := []interface{}{}
	if opts.UserID != "" {
		whereClause = "WHERE user_id = $1"
		args = append(args, opts.UserID)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, role, session_id, content, created_at
		FROM %s
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, c.collectionName, whereClause, len(args)+1, len(args)+2)
	args = append(args, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Scroll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*vectorstore.Record
	for rows.Next() {
		var record vectorstore.Record
		var sessionID sql.NullString
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Role,
			&sessionID,
			&record.Content,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("Scroll: %w", err)
		}
		if sessionID.Valid {
			record.SessionID = sessionID.String
		}
		records = append(records, &record)
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
