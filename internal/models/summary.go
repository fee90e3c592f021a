package models

import (
	"github.com/shopspring/decimal"
)

// SummaryRowKind labels each persisted monthly summary row.
type SummaryRowKind string

const (
	SummaryRowMonthHeader SummaryRowKind = "month_header"
	SummaryRowTutor       SummaryRowKind = "tutor"
	SummaryRowFreeCost    SummaryRowKind = "free_cost"
	SummaryRowBusiness    SummaryRowKind = "business"
)

// SummaryRow is one line of the monthly summary report. Rows carry an
// explicit position so a rebuild reproduces the exact render order: month
// header, tutors alphabetically, free-session cost, business earnings, with
// months ascending.
type SummaryRow struct {
	Position int                 `db:"position" json:"position"`
	Month    string              `db:"month" json:"month"`
	Kind     SummaryRowKind      `db:"row_kind" json:"kind"`
	Label    string              `db:"label" json:"label"`
	Amount   decimal.NullDecimal `db:"amount" json:"amount"`
}
