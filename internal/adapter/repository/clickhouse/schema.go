package clickhouse

import (
	"context"
	"fmt"
)

// All tables are ReplacingMergeTree keyed on updated_at: updates are
// re-inserts of the full row and reads use FINAL to collapse versions.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tb_observables (
		observable_id   UUID,
		observable      String,
		observable_type LowCardinality(String),
		isp             String DEFAULT '',
		location        String DEFAULT '',
		classification  String DEFAULT '',
		created_at      DateTime64(3, 'UTC'),
		updated_at      DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY observable`,

	`CREATE TABLE IF NOT EXISTS tb_analysis_history (
		history_id      UUID,
		observable_id   UUID,
		observable      String,
		observable_type LowCardinality(String),
		sub_scores      String DEFAULT '{}',
		tip_score       Float64,
		wazuh_score     Float64,
		overall_score   Float64,
		blockmode       LowCardinality(String),
		abuse_report    Bool DEFAULT true,
		notification    Bool DEFAULT true,
		created_at      DateTime64(3, 'UTC'),
		updated_at      DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY (observable, history_id)`,

	`CREATE TABLE IF NOT EXISTS tb_jobs (
		observable String,
		results    String,
		fetched_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(fetched_at)
	ORDER BY observable`,
}

// EnsureSchema creates the Argus tables when they don't exist yet.
func EnsureSchema(ctx context.Context, conn *Connection) error {
	for _, ddl := range schema {
		if err := conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
