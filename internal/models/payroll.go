package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// WeeklyPayroll is the derived Monday-through-Sunday payout view. The owner
// tutor is excluded; totals are keyed by tutor name.
type WeeklyPayroll struct {
	Start  string                     `json:"start"`
	End    string                     `json:"end"`
	Totals map[string]decimal.Decimal `json:"totals"`
}

// PayoutRun records one weekly settlement: which window was settled, how many
// session payouts were flipped, and a snapshot of the per-tutor totals at the
// time of the run.
type PayoutRun struct {
	ID           string          `db:"id" json:"id"`
	WeekStart    time.Time       `db:"week_start" json:"weekStart"`
	WeekEnd      time.Time       `db:"week_end" json:"weekEnd"`
	SettledCount int             `db:"settled_count" json:"settledCount"`
	Totals       json.RawMessage `db:"totals" json:"totals"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}
