package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/coinsift/coinsift/internal/model"
	"github.com/coinsift/coinsift/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS scan_results (
	asset_id   TEXT             NOT NULL,
	scan_id    TEXT             NOT NULL,
	scanned_at TIMESTAMPTZ      NOT NULL,
	symbol     TEXT             NOT NULL,
	ai_score   DOUBLE PRECISION NOT NULL,
	record     JSONB            NOT NULL,
	PRIMARY KEY (asset_id)
)`

// resultsRepo implements persistence.ResultsRepo on PostgreSQL. The table
// holds exactly one scan: Replace deletes and reinserts inside a single
// transaction.
type resultsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewResultsRepo connects to Postgres and ensures the results table exists.
func NewResultsRepo(dsn string, timeout time.Duration) (persistence.ResultsRepo, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &resultsRepo{db: db, timeout: timeout}, nil
}

// Replace swaps the stored scan for the given one.
func (r *resultsRepo) Replace(ctx context.Context, result *model.ScanResult) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scan_results`); err != nil {
		return fmt.Errorf("failed to clear previous scan: %w", err)
	}

	const insert = `
		INSERT INTO scan_results (asset_id, scan_id, scanned_at, symbol, ai_score, record)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, rec := range result.Records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx, insert,
			rec.ID, result.ScanID, result.Timestamp, rec.Symbol, rec.AIScore, payload); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// Latest reassembles the stored scan, ordered by score descending.
func (r *resultsRepo) Latest(ctx context.Context) (*model.ScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT scan_id, scanned_at, record
		FROM scan_results
		ORDER BY ai_score DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	result := &model.ScanResult{Records: []model.ScanRecord{}}
	for rows.Next() {
		var (
			scanID  string
			scanned time.Time
			payload []byte
		)
		if err := rows.Scan(&scanID, &scanned, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var rec model.ScanRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		result.ScanID = scanID
		result.Timestamp = scanned
		result.Records = append(result.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if result.ScanID == "" {
		return nil, sql.ErrNoRows
	}
	return result, nil
}

func (r *resultsRepo) Close() error {
	return r.db.Close()
}
