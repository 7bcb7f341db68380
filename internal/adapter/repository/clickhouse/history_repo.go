package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noplanalderson/argus/internal/entity"
)

// HistoryRepository persists analysis records in ClickHouse
type HistoryRepository struct {
	conn *Connection
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(conn *Connection) *HistoryRepository {
	return &HistoryRepository{conn: conn}
}

const historyColumns = `
	history_id,
	observable_id,
	observable,
	observable_type,
	sub_scores,
	tip_score,
	wazuh_score,
	overall_score,
	blockmode,
	abuse_report,
	notification,
	created_at,
	updated_at
`

// GetLatest retrieves the most recent analysis record for an observable.
// Returns (nil, nil) when the observable has never been analyzed.
func (r *HistoryRepository) GetLatest(ctx context.Context, observable string) (*entity.AnalysisRecord, error) {
	query := `
		SELECT` + historyColumns + `
		FROM tb_analysis_history FINAL
		WHERE observable = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	rows, err := r.conn.Query(ctx, query, observable)
	if err != nil {
		return nil, fmt.Errorf("query latest analysis: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	return scanRecord(rows.Scan)
}

func scanRecord(scan func(...interface{}) error) (*entity.AnalysisRecord, error) {
	var record entity.AnalysisRecord
	var subScores, blockmode string

	if err := scan(
		&record.ID,
		&record.ObservableID,
		&record.Observable,
		&record.Type,
		&subScores,
		&record.TIPScore,
		&record.WazuhScore,
		&record.OverallScore,
		&blockmode,
		&record.Decision.AbuseReport,
		&record.Decision.Notification,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan analysis record: %w", err)
	}

	record.Decision.BlockMode = entity.BlockMode(blockmode)
	if err := json.Unmarshal([]byte(subScores), &record.SubScores); err != nil {
		return nil, fmt.Errorf("decode sub scores: %w", err)
	}
	return &record, nil
}

// Insert appends a new analysis record.
func (r *HistoryRepository) Insert(ctx context.Context, record *entity.AnalysisRecord) error {
	return r.insertRow(ctx, record)
}

// UpdateScoreDecision re-inserts an existing record with updated scores and
// decision; the ReplacingMergeTree collapses versions by updated_at, so the
// caller must bump UpdatedAt and keep ID/CreatedAt intact.
func (r *HistoryRepository) UpdateScoreDecision(ctx context.Context, record *entity.AnalysisRecord) error {
	return r.insertRow(ctx, record)
}

func (r *HistoryRepository) insertRow(ctx context.Context, record *entity.AnalysisRecord) error {
	subScores := record.SubScores
	if subScores == nil {
		subScores = map[string]float64{}
	}
	encoded, err := json.Marshal(subScores)
	if err != nil {
		return fmt.Errorf("encode sub scores: %w", err)
	}

	query := `
		INSERT INTO tb_analysis_history (` + historyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if err := r.conn.Exec(ctx, query,
		record.ID,
		record.ObservableID,
		record.Observable,
		string(record.Type),
		string(encoded),
		record.TIPScore,
		record.WazuhScore,
		record.OverallScore,
		string(record.Decision.BlockMode),
		record.Decision.AbuseReport,
		record.Decision.Notification,
		record.CreatedAt,
		record.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert analysis record: %w", err)
	}

	return nil
}

// ListBlocked returns observables whose latest decision is a block, newest
// first, joined with the observable identity row. The latest row per
// observable is resolved first so a superseding "none" hides earlier block
// rows.
func (r *HistoryRepository) ListBlocked(ctx context.Context, filter entity.BlockedFilter) ([]entity.BlockedEntry, error) {
	where, args := blockedConditions(filter)
	query := `
		SELECT
			h.observable,
			h.observable_type,
			o.isp,
			o.location,
			h.blockmode,
			h.tip_score,
			h.wazuh_score,
			h.overall_score,
			h.created_at,
			h.updated_at
		FROM (` + latestPerObservable + `) AS h
		LEFT JOIN tb_observables AS o FINAL ON o.observable = h.observable
		WHERE ` + where + `
		ORDER BY h.created_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query blocked observables: %w", err)
	}
	defer rows.Close()

	var entries []entity.BlockedEntry
	for rows.Next() {
		var entry entity.BlockedEntry
		var blockmode string

		if err := rows.Scan(
			&entry.Observable,
			&entry.Type,
			&entry.ISP,
			&entry.Location,
			&blockmode,
			&entry.TIPScore,
			&entry.WazuhScore,
			&entry.OverallScore,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan blocked entry: %w", err)
		}

		entry.BlockMode = entity.BlockMode(blockmode)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// latestPerObservable picks each observable's most recent analysis row;
// block filters must apply on top of it, never on the raw history.
const latestPerObservable = `
	SELECT
		observable,
		observable_type,
		blockmode,
		tip_score,
		wazuh_score,
		overall_score,
		created_at,
		updated_at
	FROM tb_analysis_history FINAL
	ORDER BY created_at DESC
	LIMIT 1 BY observable
`

// CountBlocked returns the number of observables whose latest decision is a
// block within the filter's date range.
func (r *HistoryRepository) CountBlocked(ctx context.Context, filter entity.BlockedFilter) (uint64, error) {
	where, args := blockedConditions(filter)
	query := `
		SELECT uniqExact(h.observable)
		FROM (` + latestPerObservable + `) AS h
		WHERE ` + where + `
	`

	var count uint64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count blocked observables: %w", err)
	}
	return count, nil
}

func blockedConditions(filter entity.BlockedFilter) (string, []interface{}) {
	where := "h.blockmode != 'none'"
	var args []interface{}
	if !filter.From.IsZero() {
		where += " AND h.created_at >= ?"
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		where += " AND h.created_at <= ?"
		args = append(args, filter.To)
	}
	return where, args
}

// ListHistory returns the full analysis trail for one observable, newest
// first.
func (r *HistoryRepository) ListHistory(ctx context.Context, observable string, limit int) ([]entity.AnalysisRecord, error) {
	query := `
		SELECT` + historyColumns + `
		FROM tb_analysis_history FINAL
		WHERE observable = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.conn.Query(ctx, query, observable, limit)
	if err != nil {
		return nil, fmt.Errorf("query analysis history: %w", err)
	}
	defer rows.Close()

	var records []entity.AnalysisRecord
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// PurgeOlderThan drops analysis rows older than the cutoff. Used by the
// retention sweep; ClickHouse mutations are asynchronous.
func (r *HistoryRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) error {
	query := `ALTER TABLE tb_analysis_history DELETE WHERE created_at < ?`
	if err := r.conn.Exec(ctx, query, cutoff); err != nil {
		return fmt.Errorf("purge analysis history: %w", err)
	}
	return nil
}
