package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nk-tutoring/ledger-api/internal/models"
)

// SummaryRepository persists the monthly summary report rows.
type SummaryRepository struct {
	db *sqlx.DB
}

// NewSummaryRepository constructs a new repository.
func NewSummaryRepository(db *sqlx.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Replace swaps the entire summary for the provided rows in one transaction.
// The rebuild is destructive: prior content is gone regardless of whether the
// new row set is empty.
func (r *SummaryRepository) Replace(ctx context.Context, rows []models.SummaryRow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin summary replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM monthly_summary"); err != nil {
		return fmt.Errorf("clear summary: %w", err)
	}

	insert := `INSERT INTO monthly_summary (position, month, row_kind, label, amount)
VALUES (:position, :month, :row_kind, :label, :amount)`
	for i := range rows {
		if _, err := tx.NamedExecContext(ctx, insert, &rows[i]); err != nil {
			return fmt.Errorf("insert summary row %d: %w", rows[i].Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summary replace: %w", err)
	}
	return nil
}

// List returns the stored summary rows in render order.
func (r *SummaryRepository) List(ctx context.Context) ([]models.SummaryRow, error) {
	query := "SELECT position, month, row_kind, label, amount FROM monthly_summary ORDER BY position"
	var rows []models.SummaryRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list summary rows: %w", err)
	}
	return rows, nil
}
