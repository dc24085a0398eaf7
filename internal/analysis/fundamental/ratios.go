// Package fundamental computes solvency and profitability ratios from the
// three financial statements of a company.
package fundamental

import (
	"math"

	"github.com/seenimoa/ratiodash/pkg/models"
)

// operand is a line-item lookup result.
type operand struct {
	value   float64
	present bool
}

func lookup(s *models.Statement, item string) operand {
	v, ok := s.Lookup(item)
	return operand{value: v, present: ok}
}

// inputs holds the eleven line items read from the latest period.
type inputs struct {
	revenue            operand
	netIncome          operand
	ebit               operand
	totalAssets        operand
	totalLiabilities   operand
	equity             operand
	investedCapital    operand
	totalDebt          operand
	currentAssets      operand
	currentLiabilities operand
	operatingCashFlow  operand
}

func readInputs(income, balance, cashflow *models.Statement) inputs {
	return inputs{
		revenue:            lookup(income, models.ItemTotalRevenue),
		netIncome:          lookup(income, models.ItemNetIncome),
		ebit:               lookup(income, models.ItemEBIT),
		totalAssets:        lookup(balance, models.ItemTotalAssets),
		totalLiabilities:   lookup(balance, models.ItemTotalLiabilities),
		equity:             lookup(balance, models.ItemStockholdersEquity),
		investedCapital:    lookup(balance, models.ItemInvestedCapital),
		totalDebt:          lookup(balance, models.ItemTotalDebt),
		currentAssets:      lookup(balance, models.ItemCurrentAssets),
		currentLiabilities: lookup(balance, models.ItemCurrentLiabilities),
		operatingCashFlow:  lookup(cashflow, models.ItemOperatingCashFlow),
	}
}

// ComputeRatios calculates the six ratios from the most recent period of
// each statement. A ratio whose operands are not both present is marked
// unavailable; a present but zero denominator marks it undefined.
// Nil statements are treated as having no line items.
func ComputeRatios(income, balance, cashflow *models.Statement) models.RatioSet {
	in := readInputs(income, balance, cashflow)

	return models.NewRatioSet(
		ratio(models.RatioROIC, in.netIncome, in.investedCapital, 100),
		ratio(models.RatioROA, in.netIncome, in.totalAssets, 100),
		ratio(models.RatioDebtToEquity, in.totalLiabilities, in.equity, 1),
		ratio(models.RatioCurrent, in.currentAssets, in.currentLiabilities, 1),
		ratio(models.RatioEBITMargin, in.ebit, in.revenue, 100),
		ratio(models.RatioOCFToDebt, in.operatingCashFlow, in.totalDebt, 1),
	)
}

// ComputeFromStatements is ComputeRatios over a fetched bundle.
func ComputeFromStatements(st *models.Statements) models.RatioSet {
	if st == nil {
		return ComputeRatios(nil, nil, nil)
	}
	return ComputeRatios(st.Income, st.Balance, st.CashFlow)
}

func ratio(label string, num, den operand, scale float64) models.Ratio {
	r := models.Ratio{Label: label, Status: models.RatioUnavailable}
	switch {
	case !num.present || !den.present:
	case den.value == 0:
		r.Status = models.RatioUndefined
	default:
		v := num.value / den.value * scale
		if math.IsInf(v, 0) || math.IsNaN(v) {
			// Overflowed quotient: no number to show.
			r.Status = models.RatioUndefined
			break
		}
		r.Value = v
		r.Status = models.RatioAvailable
	}
	return r
}

// Input is one line item as seen by the calculator.
type Input struct {
	Statement models.StatementKind `json:"statement"`
	Item      string               `json:"item"`
	Value     float64              `json:"value"`
	Present   bool                 `json:"present"`
}

// Inputs lists the eleven line items the calculator reads, in a stable order.
func Inputs(income, balance, cashflow *models.Statement) []Input {
	in := readInputs(income, balance, cashflow)
	row := func(kind models.StatementKind, item string, op operand) Input {
		return Input{Statement: kind, Item: item, Value: op.value, Present: op.present}
	}
	return []Input{
		row(models.StatementIncome, models.ItemTotalRevenue, in.revenue),
		row(models.StatementIncome, models.ItemNetIncome, in.netIncome),
		row(models.StatementIncome, models.ItemEBIT, in.ebit),
		row(models.StatementBalance, models.ItemTotalAssets, in.totalAssets),
		row(models.StatementBalance, models.ItemTotalLiabilities, in.totalLiabilities),
		row(models.StatementBalance, models.ItemStockholdersEquity, in.equity),
		row(models.StatementBalance, models.ItemInvestedCapital, in.investedCapital),
		row(models.StatementBalance, models.ItemTotalDebt, in.totalDebt),
		row(models.StatementBalance, models.ItemCurrentAssets, in.currentAssets),
		row(models.StatementBalance, models.ItemCurrentLiabilities, in.currentLiabilities),
		row(models.StatementCashFlow, models.ItemOperatingCashFlow, in.operatingCashFlow),
	}
}
