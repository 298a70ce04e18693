package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autovagas/autovagas/internal/core"
)

// PostgresStore keeps history in Postgres for service installs where the
// orchestrator must not forget applications across deploys.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, verifies the connection, and ensures the
// application_history table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS application_history (
			id             BIGSERIAL PRIMARY KEY,
			platform       TEXT NOT NULL,
			external_id    TEXT NOT NULL,
			success        BOOLEAN NOT NULL,
			application_id TEXT,
			error          TEXT,
			raw_job        JSONB,
			applied_at     TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create application_history: %w", err)
	}

	// Partial unique index backs the no-double-apply invariant at the
	// storage layer as well.
	_, err = s.pool.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS application_history_applied_once
		ON application_history (platform, external_id)
		WHERE success`)
	if err != nil {
		return fmt.Errorf("create unique index: %w", err)
	}

	return nil
}

func (s *PostgresStore) Applied(ctx context.Context, key core.JobKey) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM application_history
			WHERE platform = $1 AND external_id = $2 AND success
		)`, key.Platform, key.ExternalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query application_history: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) AppliedKeys(ctx context.Context) ([]core.JobKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT platform, external_id
		FROM application_history
		WHERE success`)
	if err != nil {
		return nil, fmt.Errorf("query application_history: %w", err)
	}
	defer rows.Close()

	var keys []core.JobKey
	for rows.Next() {
		var key core.JobKey
		if err := rows.Scan(&key.Platform, &key.ExternalID); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func (s *PostgresStore) Record(ctx context.Context, result *core.ApplicationResult) error {
	rawJob, err := json.Marshal(result.Job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO application_history
			(platform, external_id, success, application_id, error, raw_job, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
		result.Platform, result.Job.ExternalID, result.Success,
		result.ApplicationID, result.Error, string(rawJob), result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert application_history: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
