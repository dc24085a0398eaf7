package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/ratiodash/api"
	"github.com/seenimoa/ratiodash/internal/agent"
	"github.com/seenimoa/ratiodash/internal/analysis/fundamental"
	"github.com/seenimoa/ratiodash/internal/config"
	"github.com/seenimoa/ratiodash/internal/render"
	"github.com/seenimoa/ratiodash/pkg/utils"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ratiodash",
		Short: "Financial ratios and an AI buy/hold/sell view for a stock",
		Long: `ratiodash fetches a company's income statement, balance sheet and
cash-flow statement, computes six key ratios from the latest period and
asks a language model whether to buy, hold or sell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newAnalyzeCmd(a))
	root.AddCommand(newRatiosCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newStatusCmd(a))
	return root
}

// --- Version Command ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ratiodash %s\n", version)
			fmt.Fprintf(out, "  commit:  %s\n", commit)
			fmt.Fprintf(out, "  built:   %s\n", date)
		},
	}
}

// --- Analyze Command ---

func newAnalyzeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [ticker]",
		Short: "Compute the ratios and the AI recommendation for a stock",
		Example: `  ratiodash analyze AAPL
  ratiodash analyze msft --stream
  ratiodash analyze TSLA --no-llm --plain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noLLM, _ := cmd.Flags().GetBool("no-llm")
			plain, _ := cmd.Flags().GetBool("plain")
			asJSON, _ := cmd.Flags().GetBool("json")
			stream, _ := cmd.Flags().GetBool("stream")

			ctx := cmd.Context()
			analyst, err := a.analyst(ctx, !noLLM)
			if err != nil {
				return err
			}
			if stream && !asJSON && analyst.Advisor() != nil {
				return a.streamAnalysis(cmd, analyst, args[0], plain)
			}

			res, err := analyst.Analyze(ctx, args[0])
			if err != nil {
				return reportFetchError(cmd, err, asJSON)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return a.printMarkdown(cmd.OutOrStdout(), render.Markdown(res), plain)
		},
	}
	cmd.Flags().Bool("no-llm", false, "skip the AI recommendation")
	cmd.Flags().Bool("plain", false, "print raw markdown instead of styled terminal output")
	cmd.Flags().Bool("json", false, "print the analysis as JSON")
	cmd.Flags().Bool("stream", false, "print the recommendation as the model writes it")
	return cmd
}

// streamAnalysis prints the ratio table, then the narrative chunk by chunk.
func (a *app) streamAnalysis(cmd *cobra.Command, analyst *agent.Analyst, ticker string, plain bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	set, err := analyst.Ratios(ctx, ticker)
	if err != nil {
		return reportFetchError(cmd, err, false)
	}
	table := fmt.Sprintf("# Stock Analysis: %s\n\n## %s\n\n%s", utils.NormalizeTicker(ticker), render.HeadingRatios, render.RatiosMarkdown(set))
	if err := a.printMarkdown(out, table, plain); err != nil {
		return err
	}

	adv := analyst.Advisor()
	fmt.Fprintf(out, "\n%s (%s)\n\n", render.HeadingRecommendation, adv.Model())
	text := adv.Stream(ctx, set, func(chunk string) {
		fmt.Fprint(out, chunk)
	})
	fmt.Fprintln(out)
	if v := render.Verdict(text); v != "" {
		fmt.Fprintf(out, "\nVerdict: %s\n", strings.ToUpper(v))
	}
	return nil
}

func (a *app) printMarkdown(out io.Writer, md string, plain bool) error {
	if plain {
		_, err := fmt.Fprint(out, md)
		return err
	}
	styled, err := render.Terminal(md, a.cfg.Render)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, styled)
	return err
}

// --- Ratios Command ---

func newRatiosCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratios [ticker]",
		Short: "Compute the six ratios without asking the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showInputs, _ := cmd.Flags().GetBool("inputs")
			asJSON, _ := cmd.Flags().GetBool("json")
			plain, _ := cmd.Flags().GetBool("plain")

			ctx := cmd.Context()
			analyst, err := a.analyst(ctx, false)
			if err != nil {
				return err
			}
			st, err := analyst.Statements(ctx, args[0])
			if err != nil {
				return reportFetchError(cmd, err, asJSON)
			}
			set := fundamental.ComputeFromStatements(st)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), set.Map())
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# %s\n\n## %s\n\n%s", st.Ticker, render.HeadingRatios, render.RatiosMarkdown(set))
			if showInputs {
				inputs := fundamental.Inputs(st.Income, st.Balance, st.CashFlow)
				fmt.Fprintf(&b, "\n## Statement inputs\n\n%s", render.InputsMarkdown(inputs))
			}
			return a.printMarkdown(cmd.OutOrStdout(), b.String(), plain)
		},
	}
	cmd.Flags().Bool("inputs", false, "also list the statement line items behind the ratios")
	cmd.Flags().Bool("json", false, "print label → value as JSON")
	cmd.Flags().Bool("plain", false, "print raw markdown instead of styled terminal output")
	return cmd
}

// reportFetchError prints a retrieval failure the way the dashboard shows
// it, or as the {"Error": msg} mapping in JSON mode.
func reportFetchError(cmd *cobra.Command, err error, asJSON bool) error {
	if asJSON {
		if werr := writeJSON(cmd.OutOrStdout(), agent.ErrorMapping(err)); werr != nil {
			return werr
		}
		return errReported
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error fetching data: %v\n", err)
	return errReported
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Serve Command (Dashboard) ---

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				a.cfg.API.Port = port
			}
			analyst, err := a.analyst(cmd.Context(), true)
			if err != nil {
				return err
			}
			srv, err := api.NewServer(a.cfg, analyst, a.log, version)
			if err != nil {
				return err
			}
			addr := net.JoinHostPort(a.cfg.API.Host, strconv.Itoa(a.cfg.API.Port))
			return srv.ListenAndServe(addr)
		},
	}
	cmd.Flags().Int("port", 0, "listen port (overrides api.port)")
	return cmd
}

// --- Status Command ---

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and check the data and model providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			cfg := a.cfg

			fmt.Fprintln(out, "═══════════════════════════════════════")
			fmt.Fprintln(out, "  ratiodash System Status")
			fmt.Fprintln(out, "═══════════════════════════════════════")
			fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
			if cfg.File != "" {
				fmt.Fprintf(out, "  Config file:   %s\n", cfg.File)
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "  Configuration:")
			fmt.Fprintf(out, "    Statements:    %s (cache %s)\n", cfg.Data.Frequency, config.Seconds(cfg.Data.CacheTTL))
			fmt.Fprintf(out, "    LLM Provider:  %s\n", llmSummary(cfg))
			fmt.Fprintf(out, "    Headlines:     %s\n", onOff(cfg.News.Enabled))
			fmt.Fprintf(out, "    Dashboard:     %s\n", net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port)))
			fmt.Fprintln(out)

			fmt.Fprintln(out, "  Connectivity:")
			src, err := a.statementSource()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "    %-25s %s\n", src.Name()+":", check(src.Ping(ctx)))
			if cfg.LLM.Enabled {
				p, err := a.provider(ctx)
				if err != nil {
					fmt.Fprintf(out, "    %-25s %s\n", "LLM:", check(err))
				} else {
					fmt.Fprintf(out, "    %-25s %s\n", p.Name()+" ("+p.Model()+"):", check(p.Ping(ctx)))
				}
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "  API Keys:")
			for _, k := range config.CheckAPIKeys(cfg) {
				status := "❌ not set"
				if k.IsSet {
					status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
				}
				fmt.Fprintf(out, "    %-25s %s\n", k.Name+":", status)
			}

			fmt.Fprintln(out, "═══════════════════════════════════════")
			return nil
		},
	}
}

func llmSummary(cfg *config.Config) string {
	if !cfg.LLM.Enabled {
		return "disabled"
	}
	model := cfg.LLM.Model
	if model == "" {
		model = "default"
	}
	return fmt.Sprintf("%s (model: %s)", cfg.LLM.Primary, model)
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func check(err error) string {
	if err != nil {
		return "❌ " + err.Error()
	}
	return "✅ reachable"
}
