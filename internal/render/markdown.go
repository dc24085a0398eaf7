// Package render formats analyses for people: a markdown report, its
// terminal rendering and the HTML fragment shown on the dashboard.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/ratiodash/internal/analysis/fundamental"
	"github.com/seenimoa/ratiodash/pkg/models"
	"github.com/seenimoa/ratiodash/pkg/utils"
)

// Section headings of the markdown report.
const (
	HeadingRatios         = "Key Financial Ratios"
	HeadingRecommendation = "AI Investment Recommendation"
	HeadingHeadlines      = "Recent Headlines"
)

// Markdown renders the full report for an analysis.
func Markdown(a *models.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Stock Analysis: %s\n\n", escapeCell(a.Ticker))

	fmt.Fprintf(&b, "## %s\n\n", HeadingRatios)
	b.WriteString(RatiosMarkdown(a.Ratios))

	if a.Recommendation != "" {
		fmt.Fprintf(&b, "\n## %s\n\n", HeadingRecommendation)
		if v := Verdict(a.Recommendation); v != "" {
			fmt.Fprintf(&b, "**Verdict: %s**", strings.ToUpper(v))
			if a.Model != "" {
				fmt.Fprintf(&b, " (%s)", a.Model)
			}
			b.WriteString("\n\n")
		} else if a.Model != "" {
			fmt.Fprintf(&b, "_Model: %s_\n\n", a.Model)
		}
		b.WriteString(strings.TrimSpace(a.Recommendation))
		b.WriteString("\n")
	}

	if len(a.Headlines) > 0 {
		fmt.Fprintf(&b, "\n## %s\n\n", HeadingHeadlines)
		b.WriteString(HeadlinesMarkdown(a.Headlines))
	}

	if !a.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "\n---\n\n_Generated %s_\n", a.GeneratedAt.UTC().Format(time.RFC1123))
	}
	return b.String()
}

// RatiosMarkdown renders the ratio set as a two-column table, in set order.
func RatiosMarkdown(set models.RatioSet) string {
	var b strings.Builder
	b.WriteString("| Ratio | Value |\n|---|---:|\n")
	for _, r := range set.Ratios() {
		fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(r.Label), r.String())
	}
	return b.String()
}

// InputsMarkdown renders the statement line items read by the calculator.
func InputsMarkdown(inputs []fundamental.Input) string {
	var b strings.Builder
	b.WriteString("| Statement | Line item | Latest value |\n|---|---|---:|\n")
	for _, in := range inputs {
		value := models.UnavailableMarker
		if in.Present {
			value = utils.FormatCompact(in.Value)
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", in.Statement, escapeCell(in.Item), value)
	}
	return b.String()
}

// HeadlinesMarkdown renders headlines as a bullet list of links.
func HeadlinesMarkdown(articles []models.NewsArticle) string {
	var b strings.Builder
	for _, a := range articles {
		title := strings.ReplaceAll(a.Title, "]", "\\]")
		if a.URL != "" {
			fmt.Fprintf(&b, "- [%s](%s)", title, a.URL)
		} else {
			fmt.Fprintf(&b, "- %s", title)
		}
		if !a.PublishedAt.IsZero() {
			fmt.Fprintf(&b, " · %s", a.PublishedAt.UTC().Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
