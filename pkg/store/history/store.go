package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/de-tools/site-warden/pkg/models/domain"
)

var ErrRunNotFound = errors.New("run not found")

type Store interface {
	Add(ctx context.Context, summary domain.RunSummary) error
	Get(ctx context.Context, runID string) (*domain.RunSummary, error)
	List(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

type runStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &runStore{db: db}, nil
}

func (s *runStore) Add(ctx context.Context, summary domain.RunSummary) error {
	query := `
		INSERT INTO run_history (
			run_id, started_at, finished_at, sites_scanned, pairs_scanned,
			pairs_failed, record_count, stale_count, warning_count,
			error_count, log_only, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		summary.RunID,
		summary.StartedAt,
		summary.FinishedAt,
		summary.SitesScanned,
		summary.PairsScanned,
		summary.PairsFailed,
		summary.RecordCount,
		summary.StaleCount,
		summary.WarningCount,
		summary.ErrorCount,
		summary.LogOnly,
		string(summary.Status),
	)
	if err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

const selectColumns = `
	run_id, started_at, finished_at, sites_scanned, pairs_scanned,
	pairs_failed, record_count, stale_count, warning_count,
	error_count, log_only, status`

func (s *runStore) Get(ctx context.Context, runID string) (*domain.RunSummary, error) {
	query := `SELECT` + selectColumns + ` FROM run_history WHERE run_id = ?`

	row := s.db.QueryRowContext(ctx, query, runID)
	summary, err := scanSummary(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	return &summary, nil
}

func (s *runStore) List(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT` + selectColumns + ` FROM run_history ORDER BY started_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	var summaries []domain.RunSummary
	for rows.Next() {
		summary, err := scanSummary(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func scanSummary(scan func(dest ...any) error) (domain.RunSummary, error) {
	var summary domain.RunSummary
	var status string
	err := scan(
		&summary.RunID,
		&summary.StartedAt,
		&summary.FinishedAt,
		&summary.SitesScanned,
		&summary.PairsScanned,
		&summary.PairsFailed,
		&summary.RecordCount,
		&summary.StaleCount,
		&summary.WarningCount,
		&summary.ErrorCount,
		&summary.LogOnly,
		&status,
	)
	summary.Status = domain.RunStatus(status)
	return summary, err
}
