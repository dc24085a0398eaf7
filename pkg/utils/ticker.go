// Package utils provides small helpers shared by the CLI and the dashboard.
package utils

import (
	"regexp"
	"strings"
)

// shareClass matches class suffixes written with a dot, e.g. "BRK.B".
var shareClass = regexp.MustCompile(`^([A-Z0-9]+)\.([A-Z])$`)

// NormalizeTicker normalizes user input: trims whitespace, upper-cases,
// drops a leading "$" (common in chat) and writes share classes the way
// Yahoo Finance expects them ("BRK.B" → "BRK-B").
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")

	if m := shareClass.FindStringSubmatch(ticker); m != nil {
		return m[1] + "-" + m[2]
	}
	return ticker
}
