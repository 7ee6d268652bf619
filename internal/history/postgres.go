// Package history records reputation changes in PostgreSQL so trust
// movements can be queried after the fact.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Change is one recorded reputation change.
type Change struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"` // "file" or "cert"
	PrimaryHash string    `json:"primary_hash"`
	UpdateTime  int64     `json:"update_time"`
	Document    []byte    `json:"document"` // normalized change as JSON
	CreatedAt   time.Time `json:"created_at"`
}

// PostgresRepository stores changes in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository opens a connection pool and verifies connectivity.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// RunMigrations applies the SQL migrations in dir against the database.
// Already-applied migrations are skipped.
func RunMigrations(connString, dir string) error {
	m, err := migrate.New("file://"+dir, connString)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Record inserts one change. A missing ID is generated.
func (r *PostgresRepository) Record(ctx context.Context, c *Change) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO reputation_changes (id, kind, primary_hash, update_time, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Kind, c.PrimaryHash, c.UpdateTime, c.Document, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record change: %w", err)
	}

	return nil
}

// ListByHash returns the most recent changes for an artifact digest,
// newest first.
func (r *PostgresRepository) ListByHash(ctx context.Context, digest string, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, kind, primary_hash, update_time, document, created_at
		FROM reputation_changes
		WHERE primary_hash = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, digest, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.ID, &c.Kind, &c.PrimaryHash, &c.UpdateTime, &c.Document, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read changes: %w", err)
	}

	return changes, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}
