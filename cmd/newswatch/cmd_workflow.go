package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newswatch/internal/analysis"
	"newswatch/internal/scraper"
	"newswatch/internal/store"
	"newswatch/internal/workflow"
)

var (
	workflowPages int
	workflowLimit int
)

// workflowCmd runs scrape then analyze as a single pass. This is the
// program the orchestrator's second step invokes; it reads USE_WEB_SEARCH
// from its environment.
var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Scrape new articles and analyze everything pending",
	Args:  cobra.NoArgs,
	RunE:  runWorkflow,
}

func init() {
	workflowCmd.Flags().IntVar(&workflowPages, "pages", 0, "max listing pages to scrape (0 = all)")
	workflowCmd.Flags().IntVar(&workflowLimit, "limit", 0, "max articles to analyze (0 = all)")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := buildSession(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	maxPages := cfg.Scraper.MaxPages
	if workflowPages > 0 {
		maxPages = workflowPages
	}
	sc := scraper.New(session, cfg.Scraper.ListingURL, scraper.DefaultSelectors(), maxPages, logger)

	navTimeout, err := cfg.NavigationTimeout()
	if err != nil {
		return err
	}
	fetcher := scraper.NewFetcher(navTimeout, logger)

	client, err := buildLLMClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	analyzer := analysis.New(client, st, fetcher, cfg.Workers(), logger)

	w := workflow.New(sc, fetcher, st, analyzer, workflowLimit, logger)
	report, err := w.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Run %s: %d listed, %d new, %d skipped, %d scrape failures, %d analyzed, %d analysis failures\n",
		report.RunID, report.Listed, report.New, report.Skipped,
		report.ScrapeFails, report.Analyzed, report.AnalyzeFail)
	return nil
}
