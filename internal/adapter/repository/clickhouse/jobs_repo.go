package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noplanalderson/argus/internal/entity"
)

// JobsRepository persists the raw provider payloads of the latest
// aggregation run per observable. It backs the collector's freshness check:
// exactly one row per observable, replaced on every fresh run.
type JobsRepository struct {
	conn *Connection
}

// NewJobsRepository creates a new jobs repository
func NewJobsRepository(conn *Connection) *JobsRepository {
	return &JobsRepository{conn: conn}
}

// GetLatest returns the stored provider run and its fetch time.
// A missing row comes back as (nil, zero, nil).
func (r *JobsRepository) GetLatest(ctx context.Context, observable string) ([]entity.ProviderResult, time.Time, error) {
	query := `
		SELECT results, fetched_at
		FROM tb_jobs FINAL
		WHERE observable = ?
		LIMIT 1
	`

	rows, err := r.conn.Query(ctx, query, observable)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query provider run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, time.Time{}, nil
	}

	var encoded string
	var fetchedAt time.Time
	if err := rows.Scan(&encoded, &fetchedAt); err != nil {
		return nil, time.Time{}, fmt.Errorf("scan provider run: %w", err)
	}

	var results []entity.ProviderResult
	if err := json.Unmarshal([]byte(encoded), &results); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode provider run: %w", err)
	}

	return results, fetchedAt, nil
}

// Replace stores a fresh provider run, superseding any previous one.
func (r *JobsRepository) Replace(ctx context.Context, observable string, results []entity.ProviderResult) error {
	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode provider run: %w", err)
	}

	query := `INSERT INTO tb_jobs (observable, results, fetched_at) VALUES (?, ?, ?)`
	if err := r.conn.Exec(ctx, query, observable, string(encoded), time.Now().UTC()); err != nil {
		return fmt.Errorf("store provider run: %w", err)
	}

	return nil
}

// Delete drops the stored run for one observable, forcing the next analysis
// to hit the providers again.
func (r *JobsRepository) Delete(ctx context.Context, observable string) error {
	query := `ALTER TABLE tb_jobs DELETE WHERE observable = ?`
	if err := r.conn.Exec(ctx, query, observable); err != nil {
		return fmt.Errorf("delete provider run: %w", err)
	}
	return nil
}
