package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newswatch/internal/analysis"
	"newswatch/internal/scraper"
	"newswatch/internal/store"
)

var (
	analyzeLimit       int
	analyzeWebSearch   bool
	analyzeRetryFailed bool
)

// analyzeCmd evaluates pending articles without scraping first.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze pending articles with the configured LLM",
	Args:  cobra.NoArgs,
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 0, "max articles to analyze (0 = all)")
	analyzeCmd.Flags().BoolVar(&analyzeWebSearch, "web-search", analysis.UseWebSearchFromEnv(),
		"include web-search context in prompts (default from USE_WEB_SEARCH)")
	analyzeCmd.Flags().BoolVar(&analyzeRetryFailed, "retry-failed", false,
		"reset failed articles to pending before analyzing")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	if analyzeRetryFailed {
		n, err := st.ResetFailed()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %d failed articles to pending\n", n)
	}

	client, err := buildLLMClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	navTimeout, err := cfg.NavigationTimeout()
	if err != nil {
		return err
	}
	fetcher := scraper.NewFetcher(navTimeout, logger)

	analyzer := analysis.New(client, st, fetcher, cfg.Workers(), logger)
	analyzer.SetUseWebSearch(analyzeWebSearch)

	summary, err := analyzer.Run(cmd.Context(), analyzeLimit)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Analyzed %d articles, %d failures\n",
		summary.Analyzed, summary.Failed)
	return nil
}
