package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/seenimoa/ratiodash/pkg/models"
	"github.com/seenimoa/ratiodash/pkg/utils"
)

// DefaultNewsFeedURL is the Yahoo Finance per-symbol headline feed.
// The single %s is replaced by the query-escaped symbol.
const DefaultNewsFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// News fetches recent headlines for a ticker from an RSS feed.
type News struct {
	feedURL string
	cache   *Cache
	limiter *rate.Limiter
	parser  *gofeed.Parser
}

// NewNews creates a headline source. An empty feedURL selects the Yahoo feed.
func NewNews(feedURL string, client *http.Client) *News {
	if feedURL == "" {
		feedURL = DefaultNewsFeedURL
	}
	parser := gofeed.NewParser()
	parser.UserAgent = DefaultUserAgent
	if client != nil {
		parser.Client = client
	}
	return &News{
		feedURL: feedURL,
		cache:   NewCache(10 * time.Minute),
		limiter: newLimiter(2), // conservative: 2 req/s
		parser:  parser,
	}
}

// Name returns the data source name.
func (n *News) Name() string { return "Yahoo Finance Headlines" }

// GetStockNews returns up to limit headlines for the ticker, newest first.
func (n *News) GetStockNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	symbol := utils.NormalizeTicker(ticker)
	if symbol == "" {
		return nil, ErrEmptyTicker
	}

	cacheKey := fmt.Sprintf("news:%s:%d", symbol, limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feedURL := n.feedURL
	if strings.Contains(feedURL, "%s") {
		feedURL = fmt.Sprintf(feedURL, url.QueryEscape(symbol))
	}

	feed, err := n.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("news %s: %w: %w", symbol, ErrTransport, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}
		a := models.NewsArticle{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Source:  feed.Title,
			Summary: strings.TrimSpace(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	n.cache.Set(cacheKey, articles)
	return articles, nil
}
