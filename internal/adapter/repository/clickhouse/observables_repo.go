package clickhouse

import (
	"context"
	"fmt"

	"github.com/noplanalderson/argus/internal/entity"
)

// ObservablesRepository persists observable identity rows in ClickHouse
type ObservablesRepository struct {
	conn *Connection
}

// NewObservablesRepository creates a new observables repository
func NewObservablesRepository(conn *Connection) *ObservablesRepository {
	return &ObservablesRepository{conn: conn}
}

// GetByValue retrieves the identity row for an observable.
// Returns (nil, nil) when the observable is unknown.
func (r *ObservablesRepository) GetByValue(ctx context.Context, observable string) (*entity.ObservableInfo, error) {
	query := `
		SELECT
			observable_id,
			observable,
			observable_type,
			isp,
			location,
			classification,
			created_at,
			updated_at
		FROM tb_observables FINAL
		WHERE observable = ?
		LIMIT 1
	`

	rows, err := r.conn.Query(ctx, query, observable)
	if err != nil {
		return nil, fmt.Errorf("query observable: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	var info entity.ObservableInfo
	if err := rows.Scan(
		&info.ID,
		&info.Observable,
		&info.Type,
		&info.ISP,
		&info.Location,
		&info.Classification,
		&info.CreatedAt,
		&info.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan observable: %w", err)
	}

	return &info, nil
}

// Upsert writes the identity row; re-inserts with a newer updated_at replace
// the previous version.
func (r *ObservablesRepository) Upsert(ctx context.Context, info *entity.ObservableInfo) error {
	query := `
		INSERT INTO tb_observables (
			observable_id, observable, observable_type,
			isp, location, classification,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if err := r.conn.Exec(ctx, query,
		info.ID,
		info.Observable,
		string(info.Type),
		info.ISP,
		info.Location,
		info.Classification,
		info.CreatedAt,
		info.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert observable: %w", err)
	}

	return nil
}
