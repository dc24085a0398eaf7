package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Ratio labels, in display order.
const (
	RatioROIC          = "ROIC (%)"
	RatioROA           = "ROA (%)"
	RatioDebtToEquity  = "Debt-to-Equity"
	RatioCurrent       = "Current Ratio"
	RatioEBITMargin    = "EBIT Margin (%)"
	RatioOCFToDebt     = "Operating Cash Flow to Debt"
	UnavailableMarker  = "N/A"
	UndefinedMarker    = "undefined"
	ratioDisplayPlaces = 3
)

// RatioLabels lists the six ratio labels in their fixed order.
var RatioLabels = []string{
	RatioROIC,
	RatioROA,
	RatioDebtToEquity,
	RatioCurrent,
	RatioEBITMargin,
	RatioOCFToDebt,
}

// RatioStatus tells whether a ratio carries a number.
type RatioStatus string

const (
	// RatioAvailable: both operands were present and the denominator non-zero.
	RatioAvailable RatioStatus = "available"
	// RatioUnavailable: at least one operand was missing from its statement.
	RatioUnavailable RatioStatus = "unavailable"
	// RatioUndefined: both operands were present but the denominator was zero.
	RatioUndefined RatioStatus = "undefined"
)

// Ratio is one labelled entry of a RatioSet.
type Ratio struct {
	Label  string      `json:"label"`
	Value  float64     `json:"value"`
	Status RatioStatus `json:"status"`
}

// Available reports whether the ratio carries a number.
func (r Ratio) Available() bool { return r.Status == RatioAvailable }

// Percent reports whether the ratio is expressed in percent.
func (r Ratio) Percent() bool {
	return r.Label == RatioROIC || r.Label == RatioROA || r.Label == RatioEBITMargin
}

// String renders the value rounded to three decimals, or the marker.
func (r Ratio) String() string {
	switch r.Status {
	case RatioAvailable:
		return decimal.NewFromFloat(r.Value).Round(ratioDisplayPlaces).String()
	case RatioUndefined:
		return UndefinedMarker
	default:
		return UnavailableMarker
	}
}

// MarshalJSON emits a null value for ratios that carry no number.
func (r Ratio) MarshalJSON() ([]byte, error) {
	var v *float64
	if r.Available() {
		val := r.Value
		v = &val
	}
	return json.Marshal(struct {
		Label   string      `json:"label"`
		Value   *float64    `json:"value"`
		Display string      `json:"display"`
		Status  RatioStatus `json:"status"`
	}{r.Label, v, r.String(), r.Status})
}

// RatioSet is the ordered, immutable result of the ratio calculator.
type RatioSet struct {
	ratios []Ratio
}

// NewRatioSet builds a set from ratios in the given order.
func NewRatioSet(ratios ...Ratio) RatioSet {
	out := make([]Ratio, len(ratios))
	copy(out, ratios)
	return RatioSet{ratios: out}
}

// Ratios returns a copy of the entries in order.
func (s RatioSet) Ratios() []Ratio {
	out := make([]Ratio, len(s.ratios))
	copy(out, s.ratios)
	return out
}

// Len returns the number of entries.
func (s RatioSet) Len() int { return len(s.ratios) }

// Labels returns the entry labels in order.
func (s RatioSet) Labels() []string {
	out := make([]string, len(s.ratios))
	for i, r := range s.ratios {
		out[i] = r.Label
	}
	return out
}

// Get returns the ratio with the given label.
func (s RatioSet) Get(label string) (Ratio, bool) {
	for _, r := range s.ratios {
		if r.Label == label {
			return r, true
		}
	}
	return Ratio{}, false
}

// Display returns the rendered value for label, or the unavailable marker
// if the label is not part of the set.
func (s RatioSet) Display(label string) string {
	if r, ok := s.Get(label); ok {
		return r.String()
	}
	return UnavailableMarker
}

// Map returns label → rendered value.
func (s RatioSet) Map() map[string]string {
	m := make(map[string]string, len(s.ratios))
	for _, r := range s.ratios {
		m[r.Label] = r.String()
	}
	return m
}

// MarshalJSON encodes the set as an ordered array.
func (s RatioSet) MarshalJSON() ([]byte, error) {
	if s.ratios == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.ratios)
}
