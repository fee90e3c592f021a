package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nk-tutoring/ledger-api/internal/models"
)

// PayoutRepository persists weekly payout settlement runs.
type PayoutRepository struct {
	db *sqlx.DB
}

// NewPayoutRepository constructs a new repository.
func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// Create inserts a settlement run record.
func (r *PayoutRepository) Create(ctx context.Context, run *models.PayoutRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO payout_runs (id, week_start, week_end, settled_count, totals, created_at)
VALUES (:id, :week_start, :week_end, :settled_count, :totals, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create payout run: %w", err)
	}
	return nil
}

// List returns the most recent settlement runs.
func (r *PayoutRepository) List(ctx context.Context, limit int) ([]models.PayoutRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := "SELECT id, week_start, week_end, settled_count, totals, created_at FROM payout_runs ORDER BY created_at DESC LIMIT $1"
	var runs []models.PayoutRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list payout runs: %w", err)
	}
	return runs, nil
}
