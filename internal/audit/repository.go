package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrReportNotFound is returned when a plan has no stored realized report
var ErrReportNotFound = errors.New("realized report not found")

// Repository handles audit data persistence
// ⭐ SSOT: realized report storage is here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRealized stores the latest realized report and its per-race scores of a plan
func (r *Repository) SaveRealized(ctx context.Context, report *RealizedReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO audit.realized_reports (
			plan_id, completed, total_expected, total_actual, report_data, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (plan_id) DO UPDATE SET
			completed = EXCLUDED.completed,
			total_expected = EXCLUDED.total_expected,
			total_actual = EXCLUDED.total_actual,
			report_data = EXCLUDED.report_data,
			generated_at = EXCLUDED.generated_at
	`
	_, err = tx.Exec(ctx, query,
		report.PlanID, report.Completed, report.TotalExpected, report.TotalActual,
		reportJSON, report.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save realized report: %w", err)
	}

	// Replace per-race rows
	_, err = tx.Exec(ctx, "DELETE FROM audit.race_scores WHERE plan_id = $1", report.PlanID)
	if err != nil {
		return fmt.Errorf("failed to delete old race scores: %w", err)
	}

	for _, s := range report.Races {
		_, err := tx.Exec(ctx, `
			INSERT INTO audit.race_scores (plan_id, race_id, expected, actual, hits)
			VALUES ($1, $2, $3, $4, $5)
		`, report.PlanID, s.RaceID, s.Expected, s.Actual, s.Hits)
		if err != nil {
			return fmt.Errorf("failed to insert race score: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRealized retrieves the stored realized report of a plan
func (r *Repository) GetRealized(ctx context.Context, planID string) (*RealizedReport, error) {
	query := `
		SELECT report_data
		FROM audit.realized_reports
		WHERE plan_id = $1
	`

	var reportJSON []byte
	err := r.pool.QueryRow(ctx, query, planID).Scan(&reportJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: plan %s", ErrReportNotFound, planID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get realized report: %w", err)
	}

	var report RealizedReport
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}
