package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AAPL", "AAPL"},
		{"aapl", "AAPL"},
		{"  tsla \n", "TSLA"},
		{"$msft", "MSFT"},
		{"brk.b", "BRK-B"},
		{"BRK-B", "BRK-B"},
		{"RELIANCE.NS", "RELIANCE.NS"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTicker(tt.input))
		})
	}
}

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{383285000000, "383.29B"},
		{-2500000, "-2.50M"},
		{1500, "1.50K"},
		{12.345, "12.35"},
		{3.2e12, "3.20T"},
		{0, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCompact(tt.amount))
		})
	}
}
