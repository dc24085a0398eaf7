package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/seenimoa/ratiodash/pkg/models"
	"github.com/seenimoa/ratiodash/pkg/utils"
)

// DefaultYFinanceBaseURL is the Yahoo Finance API host.
const DefaultYFinanceBaseURL = "https://query2.finance.yahoo.com"

// Reporting frequencies accepted by the fundamentals-timeseries API.
const (
	FrequencyAnnual    = "annual"
	FrequencyQuarterly = "quarterly"
)

// seriesStart is the lower bound requested for every series (mid-1985).
var seriesStart = time.Unix(493590046, 0)

// statementTypes lists the timeseries requested for each statement,
// without the frequency prefix.
var statementTypes = map[models.StatementKind][]string{
	models.StatementIncome: {
		"TotalRevenue", "CostOfRevenue", "GrossProfit", "OperatingIncome",
		"EBIT", "EBITDA", "InterestExpense", "PretaxIncome", "TaxProvision",
		"NetIncome", "DilutedEPS",
	},
	models.StatementBalance: {
		"TotalAssets", "CurrentAssets", "CashAndCashEquivalents",
		"TotalLiabilitiesNetMinorityInterest", "CurrentLiabilities",
		"TotalDebt", "StockholdersEquity", "InvestedCapital", "WorkingCapital",
	},
	models.StatementCashFlow: {
		"OperatingCashFlow", "InvestingCashFlow", "FinancingCashFlow",
		"CapitalExpenditure", "FreeCashFlow",
	},
}

var statementOrder = []models.StatementKind{
	models.StatementIncome,
	models.StatementBalance,
	models.StatementCashFlow,
}

// YFinance implements StatementSource using the Yahoo Finance
// fundamentals-timeseries API.
type YFinance struct {
	baseURL   string
	frequency string
	client    *http.Client
	cache     *Cache
	limiter   *rate.Limiter
	now       func() time.Time
}

// YFinanceOption configures the Yahoo Finance source.
type YFinanceOption func(*YFinance)

// WithBaseURL overrides the API host, e.g. for tests.
func WithBaseURL(u string) YFinanceOption {
	return func(y *YFinance) { y.baseURL = strings.TrimRight(u, "/") }
}

// WithFrequency selects annual or quarterly statements.
func WithFrequency(f string) YFinanceOption {
	return func(y *YFinance) { y.frequency = f }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) YFinanceOption {
	return func(y *YFinance) { y.client = c }
}

// WithCacheTTL sets how long fetched statements are reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) YFinanceOption {
	return func(y *YFinance) { y.cache = NewCache(ttl) }
}

// WithRateLimit caps outbound requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64) YFinanceOption {
	return func(y *YFinance) { y.limiter = newLimiter(perSecond) }
}

// NewYFinance creates a new Yahoo Finance data source.
func NewYFinance(opts ...YFinanceOption) (*YFinance, error) {
	y := &YFinance{
		baseURL:   DefaultYFinanceBaseURL,
		frequency: FrequencyAnnual,
		client:    &http.Client{Timeout: 30 * time.Second},
		cache:     NewCache(time.Hour),
		limiter:   newLimiter(5),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(y)
	}
	if y.frequency != FrequencyAnnual && y.frequency != FrequencyQuarterly {
		return nil, fmt.Errorf("yfinance: unsupported frequency %q", y.frequency)
	}
	return y, nil
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// Frequency returns the configured reporting frequency.
func (y *YFinance) Frequency() string { return y.frequency }

// --- Yahoo Finance timeseries types ---

type yfTimeseriesResponse struct {
	Timeseries struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *yfError                     `json:"error"`
	} `json:"timeseries"`
}

type yfTimeseriesMeta struct {
	Symbol []string `json:"symbol"`
	Type   []string `json:"type"`
}

type yfTimeseriesPoint struct {
	AsOfDate      string   `json:"asOfDate"`
	PeriodType    string   `json:"periodType"`
	CurrencyCode  string   `json:"currencyCode"`
	ReportedValue yfFinVal `json:"reportedValue"`
}

type yfFinVal struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// GetStatements fetches the three statements concurrently. Any failure
// fails the whole fetch; there is no retry.
func (y *YFinance) GetStatements(ctx context.Context, ticker string) (*models.Statements, error) {
	symbol := utils.NormalizeTicker(ticker)
	if symbol == "" {
		return nil, ErrEmptyTicker
	}

	cacheKey := "stmts:" + y.frequency + ":" + symbol
	if cached, ok := y.cache.Get(cacheKey); ok {
		return cached.(*models.Statements), nil
	}

	fetched := make([]*models.Statement, len(statementOrder))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range statementOrder {
		g.Go(func() error {
			s, err := y.fetchStatement(gctx, symbol, kind)
			if err != nil {
				return err
			}
			fetched[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	st := &models.Statements{
		Ticker:   symbol,
		Income:   fetched[0],
		Balance:  fetched[1],
		CashFlow: fetched[2],
	}
	if st.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	y.cache.Set(cacheKey, st)
	return st, nil
}

// Ping checks that the API answers for a well-known symbol.
func (y *YFinance) Ping(ctx context.Context) error {
	_, err := y.fetchStatement(ctx, "AAPL", models.StatementCashFlow)
	return err
}

func (y *YFinance) fetchStatement(ctx context.Context, symbol string, kind models.StatementKind) (*models.Statement, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := doGet(ctx, y.client, y.timeseriesURL(symbol, kind), map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("yfinance %s %s: %w", kind, symbol, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("yfinance %s %s: %w: read response: %w", kind, symbol, ErrTransport, err)
	}

	var resp yfTimeseriesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("yfinance %s %s: %w: %w", kind, symbol, ErrSchema, err)
	}
	if e := resp.Timeseries.Error; e != nil {
		return nil, fmt.Errorf("yfinance %s %s: %w: %s: %s", kind, symbol, ErrSchema, e.Code, e.Description)
	}

	stmt, err := parseTimeseries(kind, y.frequency, resp.Timeseries.Result)
	if err != nil {
		return nil, fmt.Errorf("yfinance %s %s: %w: %w", kind, symbol, ErrSchema, err)
	}
	return stmt, nil
}

func (y *YFinance) timeseriesURL(symbol string, kind models.StatementKind) string {
	base := statementTypes[kind]
	types := make([]string, len(base))
	for i, t := range base {
		types[i] = y.frequency + t
	}
	return fmt.Sprintf(
		"%s/ws/fundamentals-timeseries/v1/finance/timeseries/%s?symbol=%s&type=%s&period1=%d&period2=%d",
		y.baseURL, url.PathEscape(symbol), url.QueryEscape(symbol),
		strings.Join(types, ","), seriesStart.Unix(), y.now().Unix(),
	)
}

// --- Helpers ---

// parseTimeseries turns the per-type series into a statement table. Each
// result object carries its meta plus one key named after its type.
func parseTimeseries(kind models.StatementKind, frequency string, results []map[string]json.RawMessage) (*models.Statement, error) {
	cells := make(map[string]map[string]float64) // label → asOfDate → value
	dates := make(map[string]struct{})

	for _, result := range results {
		rawMeta, ok := result["meta"]
		if !ok {
			return nil, fmt.Errorf("timeseries result without meta")
		}
		var meta yfTimeseriesMeta
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			return nil, fmt.Errorf("parse meta: %w", err)
		}
		if len(meta.Type) == 0 {
			return nil, fmt.Errorf("timeseries meta without type")
		}
		typeName := meta.Type[0]

		rawPoints, ok := result[typeName]
		if !ok {
			continue // no data for this line item
		}
		var points []*yfTimeseriesPoint
		if err := json.Unmarshal(rawPoints, &points); err != nil {
			return nil, fmt.Errorf("parse %s: %w", typeName, err)
		}

		label := itemLabel(strings.TrimPrefix(typeName, frequency))
		for _, p := range points {
			if p == nil || p.AsOfDate == "" {
				continue
			}
			if cells[label] == nil {
				cells[label] = make(map[string]float64)
			}
			cells[label][p.AsOfDate] = p.ReportedValue.Raw
			dates[p.AsOfDate] = struct{}{}
		}
	}

	periods := make([]string, 0, len(dates))
	for d := range dates {
		periods = append(periods, d)
	}
	// asOfDate is ISO-8601, so lexical order is chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))

	stmt := models.NewStatement(kind, periods...)
	for label, byDate := range cells {
		row := make([]float64, len(periods))
		for i, d := range periods {
			v, ok := byDate[d]
			if !ok {
				v = math.NaN()
			}
			row[i] = v
		}
		stmt.Rows[label] = row
	}
	return stmt, nil
}

// itemLabel converts a camel-case timeseries name into the spaced label used
// as the table row key. Acronyms stay together: "EBIT" → "EBIT",
// "DilutedEPS" → "Diluted EPS".
func itemLabel(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
