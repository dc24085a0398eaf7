package render

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/ratiodash/internal/analysis/fundamental"
	"github.com/seenimoa/ratiodash/internal/config"
	"github.com/seenimoa/ratiodash/pkg/models"
)

func sampleSet() models.RatioSet {
	return models.NewRatioSet(
		models.Ratio{Label: models.RatioROIC, Value: 15, Status: models.RatioAvailable},
		models.Ratio{Label: models.RatioROA, Value: 10, Status: models.RatioAvailable},
		models.Ratio{Label: models.RatioDebtToEquity, Value: 2, Status: models.RatioAvailable},
		models.Ratio{Label: models.RatioCurrent, Status: models.RatioUnavailable},
		models.Ratio{Label: models.RatioEBITMargin, Status: models.RatioUndefined},
		models.Ratio{Label: models.RatioOCFToDebt, Value: 2.0 / 3.0, Status: models.RatioAvailable},
	)
}

func sampleAnalysis() *models.Analysis {
	return &models.Analysis{
		Ticker:         "AAPL",
		Ratios:         sampleSet(),
		Recommendation: "Hold. Returns are strong but leverage is high.",
		Model:          "mistral",
		Headlines: []models.NewsArticle{
			{Title: "Apple beats estimates", URL: "https://example.test/a", PublishedAt: time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)},
			{Title: "No link here"},
		},
		GeneratedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRatiosMarkdown(t *testing.T) {
	md := RatiosMarkdown(sampleSet())
	lines := strings.Split(strings.TrimSpace(md), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "| Ratio | Value |", lines[0])
	assert.Equal(t, "| ROIC (%) | 15 |", lines[2])
	assert.Equal(t, "| Current Ratio | N/A |", lines[5])
	assert.Equal(t, "| EBIT Margin (%) | undefined |", lines[6])
	assert.Equal(t, "| Operating Cash Flow to Debt | 0.667 |", lines[7])
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleAnalysis())
	assert.True(t, strings.HasPrefix(md, "# Stock Analysis: AAPL\n"))
	assert.Contains(t, md, "## "+HeadingRatios)
	assert.Contains(t, md, "**Verdict: HOLD** (mistral)")
	assert.Contains(t, md, "leverage is high.")
	assert.Contains(t, md, "- [Apple beats estimates](https://example.test/a) · 2024-11-01\n")
	assert.Contains(t, md, "- No link here\n")
	assert.Contains(t, md, "_Generated Thu, 02 Jan 2025 03:04:05 UTC_")

	// Sections appear in order.
	assert.Less(t, strings.Index(md, HeadingRatios), strings.Index(md, HeadingRecommendation))
	assert.Less(t, strings.Index(md, HeadingRecommendation), strings.Index(md, HeadingHeadlines))
}

func TestMarkdownWithoutNarrative(t *testing.T) {
	a := &models.Analysis{Ticker: "AAPL", Ratios: sampleSet()}
	md := Markdown(a)
	assert.NotContains(t, md, HeadingRecommendation)
	assert.NotContains(t, md, HeadingHeadlines)
	assert.NotContains(t, md, "Generated")
}

func TestMarkdownErrorNarrative(t *testing.T) {
	a := sampleAnalysis()
	a.Recommendation = "Error generating analysis: connection refused"
	md := Markdown(a)
	assert.NotContains(t, md, "Verdict")
	assert.Contains(t, md, "_Model: mistral_")
	assert.Contains(t, md, "Error generating analysis: connection refused")
}

func TestInputsMarkdown(t *testing.T) {
	income := models.NewStatement(models.StatementIncome, "2024")
	income.Set(models.ItemTotalRevenue, 391_035_000_000)
	md := InputsMarkdown(fundamental.Inputs(income, nil, nil))
	assert.Contains(t, md, "| income | Total Revenue | 391.04B |")
	assert.Contains(t, md, "| balance | Invested Capital | N/A |")
}

func TestVerdict(t *testing.T) {
	tests := map[string]string{
		"Buy. The company is strong.":                    "buy",
		"I would recommend holding this stock.":          "hold",
		"SELL: leverage is too high":                     "sell",
		"Investors should consider selling, not buying.": "sell",
		"Buyback programs are large.":                    "",
		"Error generating analysis: timeout; buy later":  "",
		"":                                               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Verdict(in), in)
	}
}

func TestVerdictIgnoresEchoedQuestion(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"**Hold**. Margins are steady.", "hold"},
		{"Whether buying, holding, or selling is wise depends on leverage. Selling looks prudent.", "sell"},
		{"Deciding between buying, holding, or selling: I would hold.", "hold"},
		{"Looking at these ratios, **Recommendation:** Sell. Buying now would be risky.", "sell"},
		{"Given the ratios above, my verdict: buy.", "buy"},
		{"Analysts weigh buying, holding, or selling the stock.", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Verdict(tt.text), tt.text)
	}
}

func TestVerdictClass(t *testing.T) {
	assert.Equal(t, "buy", VerdictClass("Buy."))
	assert.Equal(t, "neutral", VerdictClass("No view."))
	assert.Equal(t, "error", VerdictClass("Error generating analysis: boom"))
}

func TestTerminal(t *testing.T) {
	out, err := Terminal(Markdown(sampleAnalysis()), config.RenderConfig{Style: "notty", WordWrap: 120})
	require.NoError(t, err)
	assert.Contains(t, out, "Stock Analysis: AAPL")
	assert.Contains(t, out, "ROIC (%)")
	assert.Contains(t, out, "0.667")
	assert.NotContains(t, out, "| --- |")
}

func TestHTML(t *testing.T) {
	frag, err := HTML(Markdown(sampleAnalysis()))
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(frag)))
	require.NoError(t, err)

	assert.Equal(t, "Stock Analysis: AAPL", doc.Find("h1").Text())
	rows := doc.Find("table tbody tr")
	assert.Equal(t, 6, rows.Length())
	assert.Equal(t, "ROIC (%)", rows.First().Find("td").First().Text())
	assert.Equal(t, "N/A", rows.Eq(3).Find("td").Last().Text())

	href, ok := doc.Find("ul li a").First().Attr("href")
	assert.True(t, ok)
	assert.Equal(t, "https://example.test/a", href)
}

func TestHTMLDropsRawHTML(t *testing.T) {
	frag, err := HTML("Hold.\n\n<script>alert(1)</script>\n")
	require.NoError(t, err)
	assert.NotContains(t, string(frag), "<script>")
	assert.Contains(t, string(frag), "<p>Hold.</p>")
}
