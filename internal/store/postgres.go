package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS nomcom_artifacts (
	key TEXT PRIMARY KEY,
	stage TEXT NOT NULL,
	content BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps artifacts in a PostgreSQL table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and ensures the artifacts table exists
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize artifacts table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Get retrieves the content for key
func (s *PostgresStore) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var content []byte
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM nomcom_artifacts WHERE key = $1`,
		key.String(),
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &OpError{Op: "get", Key: key, Cause: ErrNotFound}
		}
		return nil, &OpError{Op: "get", Key: key, Cause: err}
	}
	return content, nil
}

// Put upserts the content for key
func (s *PostgresStore) Put(ctx context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO nomcom_artifacts (key, stage, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET content = $3, updated_at = NOW()`,
		key.String(), string(key.Stage), data,
	)
	if err != nil {
		return &OpError{Op: "put", Key: key, Cause: err}
	}
	return nil
}

// Delete removes the row for key
func (s *PostgresStore) Delete(ctx context.Context, key Key) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM nomcom_artifacts WHERE key = $1`, key.String()); err != nil {
		return &OpError{Op: "delete", Key: key, Cause: err}
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
