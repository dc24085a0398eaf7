// Package models defines the core data structures shared by the data source,
// the ratio calculator, the narrative generator and the renderers.
package models

import (
	"encoding/json"
	"math"
	"sort"
)

// StatementKind identifies one of the three financial statements.
type StatementKind string

const (
	StatementIncome   StatementKind = "income"
	StatementBalance  StatementKind = "balance"
	StatementCashFlow StatementKind = "cashflow"
)

// Line items read by the ratio calculator, named as the provider labels them.
const (
	ItemTotalRevenue       = "Total Revenue"
	ItemNetIncome          = "Net Income"
	ItemEBIT               = "EBIT"
	ItemTotalAssets        = "Total Assets"
	ItemTotalLiabilities   = "Total Liabilities Net Minority Interest"
	ItemStockholdersEquity = "Stockholders Equity"
	ItemInvestedCapital    = "Invested Capital"
	ItemTotalDebt          = "Total Debt"
	ItemCurrentAssets      = "Current Assets"
	ItemCurrentLiabilities = "Current Liabilities"
	ItemOperatingCashFlow  = "Operating Cash Flow"
)

// Statement is a financial report laid out as a table: one row per line
// item, one column per reporting period. Periods are ordered most recent
// first and every row has len(Periods) cells. Empty cells hold NaN.
type Statement struct {
	Kind    StatementKind        `json:"kind"`
	Periods []string             `json:"periods"` // e.g. "2024-09-30"
	Rows    map[string][]float64 `json:"rows"`
}

// NewStatement creates an empty statement with the given period columns.
func NewStatement(kind StatementKind, periods ...string) *Statement {
	return &Statement{
		Kind:    kind,
		Periods: periods,
		Rows:    make(map[string][]float64),
	}
}

// Set stores a row. Missing trailing cells are padded with NaN.
func (s *Statement) Set(item string, values ...float64) {
	row := make([]float64, len(s.Periods))
	for i := range row {
		row[i] = math.NaN()
	}
	copy(row, values)
	s.Rows[item] = row
}

// Lookup returns the line item's value for the most recent period.
// The second result is false when the row is absent or its latest cell is
// empty or not finite.
func (s *Statement) Lookup(item string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	row, ok := s.Rows[item]
	if !ok || len(row) == 0 || math.IsNaN(row[0]) || math.IsInf(row[0], 0) {
		return 0, false
	}
	return row[0], true
}

// Items returns the line-item names in sorted order.
func (s *Statement) Items() []string {
	if s == nil {
		return nil
	}
	items := make([]string, 0, len(s.Rows))
	for k := range s.Rows {
		items = append(items, k)
	}
	sort.Strings(items)
	return items
}

// Empty reports whether the statement has no rows.
func (s *Statement) Empty() bool {
	return s == nil || len(s.Rows) == 0
}

// MarshalJSON encodes empty and infinite cells as null, since JSON has
// neither NaN nor Inf.
func (s *Statement) MarshalJSON() ([]byte, error) {
	rows := make(map[string][]*float64, len(s.Rows))
	for item, row := range s.Rows {
		cells := make([]*float64, len(row))
		for i, v := range row {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				v := v
				cells[i] = &v
			}
		}
		rows[item] = cells
	}
	return json.Marshal(struct {
		Kind    StatementKind         `json:"kind"`
		Periods []string              `json:"periods"`
		Rows    map[string][]*float64 `json:"rows"`
	}{s.Kind, s.Periods, rows})
}

// Statements bundles the three reports fetched for one ticker.
type Statements struct {
	Ticker   string     `json:"ticker"`
	Income   *Statement `json:"income"`
	Balance  *Statement `json:"balance"`
	CashFlow *Statement `json:"cashflow"`
}

// Empty reports whether none of the three statements carries data.
func (s *Statements) Empty() bool {
	return s == nil || (s.Income.Empty() && s.Balance.Empty() && s.CashFlow.Empty())
}
