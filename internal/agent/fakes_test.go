package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/seenimoa/ratiodash/internal/llm"
	"github.com/seenimoa/ratiodash/pkg/models"
)

// fakeProvider is a scripted llm.LLMProvider.
type fakeProvider struct {
	mu       sync.Mutex
	reply    string
	chunks   []string
	err      error // returned by Chat and ChatStream
	midErr   error // sent on the stream after chunks
	messages [][]llm.Message
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) Ping(context.Context) error { return f.err }

func (f *fakeProvider) record(m []llm.Message) {
	f.mu.Lock()
	f.messages = append(f.messages, m)
	f.mu.Unlock()
}

func (f *fakeProvider) Chat(_ context.Context, m []llm.Message, _ *llm.ChatOptions) (*llm.Response, error) {
	f.record(m)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply, Provider: "fake", Model: "fake-model"}, nil
}

func (f *fakeProvider) ChatStream(_ context.Context, m []llm.Message, _ *llm.ChatOptions) (<-chan llm.StreamChunk, error) {
	f.record(m)
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan llm.StreamChunk, len(f.chunks)+2)
	for _, c := range f.chunks {
		ch <- llm.StreamChunk{Content: c}
	}
	if f.midErr != nil {
		ch <- llm.StreamChunk{Err: f.midErr}
	} else {
		ch <- llm.StreamChunk{Done: true}
	}
	close(ch)
	return ch, nil
}

// fakeSource serves fixed statements or a fixed error.
type fakeSource struct {
	mu      sync.Mutex
	st      *models.Statements
	err     error
	tickers []string
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) GetStatements(_ context.Context, ticker string) (*models.Statements, error) {
	f.mu.Lock()
	f.tickers = append(f.tickers, ticker)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.st, nil
}

type fakeHeadlines struct {
	articles []models.NewsArticle
	err      error
}

func (f *fakeHeadlines) GetStockNews(_ context.Context, _ string, limit int) ([]models.NewsArticle, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.articles) {
		return f.articles[:limit], nil
	}
	return f.articles, nil
}

var errBoom = errors.New("connection refused")

// sampleStatements yields ROIC 15, ROA 10, D/E 2, current 1.5, EBIT margin 20
// and OCF/debt 0.667.
func sampleStatements() *models.Statements {
	income := models.NewStatement(models.StatementIncome, "2024-12-31")
	income.Set(models.ItemTotalRevenue, 1000)
	income.Set(models.ItemNetIncome, 150)
	income.Set(models.ItemEBIT, 200)

	balance := models.NewStatement(models.StatementBalance, "2024-12-31")
	balance.Set(models.ItemTotalAssets, 1500)
	balance.Set(models.ItemTotalLiabilities, 1000)
	balance.Set(models.ItemStockholdersEquity, 500)
	balance.Set(models.ItemInvestedCapital, 1000)
	balance.Set(models.ItemTotalDebt, 300)
	balance.Set(models.ItemCurrentAssets, 600)
	balance.Set(models.ItemCurrentLiabilities, 400)

	cashflow := models.NewStatement(models.StatementCashFlow, "2024-12-31")
	cashflow.Set(models.ItemOperatingCashFlow, 200)

	return &models.Statements{Ticker: "ACME", Income: income, Balance: balance, CashFlow: cashflow}
}
