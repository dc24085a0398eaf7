package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/ratiodash/internal/agent"
	"github.com/seenimoa/ratiodash/internal/config"
	"github.com/seenimoa/ratiodash/internal/datasource"
	"github.com/seenimoa/ratiodash/internal/llm"
	"github.com/seenimoa/ratiodash/internal/logger"
)

// app holds what every command shares once the config is loaded.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

// load reads the config named by --config (or the default search path),
// applies --log-level and stores the logger in the command context.
func (a *app) load(cmd *cobra.Command) error {
	var err error
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		a.cfg, err = config.LoadFromFile(configFile)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		a.cfg.Logging.Level = level
	}

	a.log = logger.NewWithWriter(a.cfg.Logging, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(a.log.WithContext(ctx))
	return nil
}

func (a *app) statementSource() (*datasource.YFinance, error) {
	d := a.cfg.Data
	opts := []datasource.YFinanceOption{
		datasource.WithFrequency(d.Frequency),
		datasource.WithCacheTTL(config.Seconds(d.CacheTTL)),
		datasource.WithRateLimit(d.RateLimit),
	}
	if d.BaseURL != "" {
		opts = append(opts, datasource.WithBaseURL(d.BaseURL))
	}
	if d.Timeout > 0 {
		opts = append(opts, datasource.WithHTTPClient(&http.Client{Timeout: config.Seconds(d.Timeout)}))
	}
	return datasource.NewYFinance(opts...)
}

func (a *app) provider(ctx context.Context) (llm.LLMProvider, error) {
	p, err := llm.NewFromConfig(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return p, nil
}

// analyst wires the statement source, the optional headline feed and,
// when withLLM is set and the model is enabled, the advisor.
func (a *app) analyst(ctx context.Context, withLLM bool) (*agent.Analyst, error) {
	src, err := a.statementSource()
	if err != nil {
		return nil, err
	}

	var opts []agent.AnalystOption
	if a.cfg.News.Enabled {
		client := &http.Client{Timeout: config.Seconds(a.cfg.Data.Timeout)}
		opts = append(opts, agent.WithHeadlines(datasource.NewNews(a.cfg.News.FeedURL, client), a.cfg.News.Limit))
	}
	if withLLM && a.cfg.LLM.Enabled {
		p, err := a.provider(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, agent.WithAdvisor(agent.NewAdvisor(p, llm.ChatOptionsFromConfig(a.cfg))))
	}
	return agent.NewAnalyst(src, opts...), nil
}
