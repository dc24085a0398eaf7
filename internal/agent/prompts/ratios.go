package prompts

import (
	"fmt"
	"strings"

	"github.com/seenimoa/ratiodash/pkg/models"
)

// AdvisorSystemPrompt frames the narrative generator.
const AdvisorSystemPrompt = `You are an equity analyst. You are given six financial ratios computed from a company's most recent financial statements. Ratios shown as N/A could not be computed; ratios shown as undefined had a zero denominator. Do not invent figures that are not listed. Start your answer with one word: Buy, Hold or Sell.`

// ratioLines pairs each prompt bullet with the ratio it shows.
var ratioLines = []struct {
	name  string
	label string
}{
	{"ROIC", models.RatioROIC},
	{"ROA", models.RatioROA},
	{"Debt-to-Equity", models.RatioDebtToEquity},
	{"Current Ratio", models.RatioCurrent},
	{"EBIT Margin", models.RatioEBITMargin},
	{"Operating Cash Flow to Debt", models.RatioOCFToDebt},
}

// RatioPrompt formats the buy/hold/sell question for a ratio set. Percent
// ratios carry a % sign only when they hold a number.
func RatioPrompt(set models.RatioSet) string {
	var b strings.Builder
	b.WriteString("Given the following financial ratios, analyze the company's financial health and provide an investment recommendation:\n\n")
	for _, l := range ratioLines {
		value := models.UnavailableMarker
		if r, ok := set.Get(l.label); ok {
			value = r.String()
			if r.Available() && r.Percent() {
				value += "%"
			}
		}
		fmt.Fprintf(&b, "- %s: %s\n", l.name, value)
	}
	b.WriteString("\nBased on these metrics, should an investor consider buying, holding, or selling this stock? Provide a short justification.")
	return b.String()
}

