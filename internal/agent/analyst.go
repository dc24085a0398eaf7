package agent

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/ratiodash/internal/analysis/fundamental"
	"github.com/seenimoa/ratiodash/internal/datasource"
	"github.com/seenimoa/ratiodash/pkg/models"
	"github.com/seenimoa/ratiodash/pkg/utils"
)

// ErrorKey is the single key of the mapping returned for a failed retrieval.
const ErrorKey = "Error"

// Analyst runs the fetch, compute and narrate pipeline for one ticker.
type Analyst struct {
	statements datasource.StatementSource
	headlines  datasource.HeadlineSource
	newsLimit  int
	advisor    *Advisor
	now        func() time.Time
}

// AnalystOption configures an Analyst.
type AnalystOption func(*Analyst)

// WithHeadlines attaches up to limit news headlines to each analysis.
func WithHeadlines(src datasource.HeadlineSource, limit int) AnalystOption {
	return func(a *Analyst) {
		a.headlines = src
		a.newsLimit = limit
	}
}

// WithAdvisor enables the narrative. Without it Analyze leaves the
// recommendation empty.
func WithAdvisor(adv *Advisor) AnalystOption {
	return func(a *Analyst) { a.advisor = adv }
}

// NewAnalyst creates an analyst reading statements from src.
func NewAnalyst(src datasource.StatementSource, opts ...AnalystOption) *Analyst {
	a := &Analyst{statements: src, newsLimit: 5, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Advisor returns the configured narrative generator, or nil.
func (a *Analyst) Advisor() *Advisor { return a.advisor }

// Statements fetches the three statements for ticker.
func (a *Analyst) Statements(ctx context.Context, ticker string) (*models.Statements, error) {
	symbol := utils.NormalizeTicker(ticker)
	if symbol == "" {
		return nil, datasource.ErrEmptyTicker
	}
	st, err := a.statements.GetStatements(ctx, symbol)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("ticker", symbol).
			Str("kind", datasource.ErrorKind(err)).
			Msg("statement retrieval failed")
		return nil, err
	}
	if st.Ticker == "" {
		// Sources may hand out cached values; fill the ticker on a copy.
		filled := *st
		filled.Ticker = symbol
		st = &filled
	}
	return st, nil
}

// Ratios fetches the statements for ticker and computes the ratio set.
func (a *Analyst) Ratios(ctx context.Context, ticker string) (models.RatioSet, error) {
	st, err := a.Statements(ctx, ticker)
	if err != nil {
		return models.RatioSet{}, err
	}
	return fundamental.ComputeFromStatements(st), nil
}

// Inputs fetches the statements for ticker and reports the line items the
// calculator reads.
func (a *Analyst) Inputs(ctx context.Context, ticker string) ([]fundamental.Input, error) {
	st, err := a.Statements(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return fundamental.Inputs(st.Income, st.Balance, st.CashFlow), nil
}

// Headlines returns recent news for ticker. Feed failures are logged and
// yield no headlines.
func (a *Analyst) Headlines(ctx context.Context, ticker string) []models.NewsArticle {
	if a.headlines == nil || a.newsLimit <= 0 {
		return nil
	}
	articles, err := a.headlines.GetStockNews(ctx, ticker, a.newsLimit)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("ticker", ticker).Msg("headline fetch failed")
		return nil
	}
	return articles
}

// Analyze computes the ratios for ticker, then gathers headlines and the
// narrative concurrently. A retrieval error aborts before any ratios exist.
func (a *Analyst) Analyze(ctx context.Context, ticker string) (*models.Analysis, error) {
	st, err := a.Statements(ctx, ticker)
	if err != nil {
		return nil, err
	}

	out := &models.Analysis{
		Ticker: st.Ticker,
		Ratios: fundamental.ComputeFromStatements(st),
	}

	var g errgroup.Group
	g.Go(func() error {
		out.Headlines = a.Headlines(ctx, st.Ticker)
		return nil
	})
	if a.advisor != nil {
		g.Go(func() error {
			out.Model = a.advisor.Model()
			out.Recommendation = a.advisor.Recommend(ctx, out.Ratios)
			return nil
		})
	}
	_ = g.Wait()

	out.GeneratedAt = a.now()
	return out, nil
}

// ErrorMapping is the result shape for a failed retrieval: a single entry
// keyed "Error" holding the failure's message.
func ErrorMapping(err error) map[string]string {
	if err == nil {
		err = errors.New("unknown error")
	}
	return map[string]string{ErrorKey: err.Error()}
}
