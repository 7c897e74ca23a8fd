package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newswatch/internal/scraper"
	"newswatch/internal/store"
	"newswatch/internal/workflow"
)

var scrapePages int

// scrapeCmd runs the scrape stage alone, leaving articles pending.
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape new articles into the database without analyzing them",
	Args:  cobra.NoArgs,
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().IntVar(&scrapePages, "pages", 0, "max listing pages to scrape (0 = all)")
}

func runScrape(cmd *cobra.Command, args []string) error {
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
	if scrapePages > 0 {
		maxPages = scrapePages
	}
	sc := scraper.New(session, cfg.Scraper.ListingURL, scraper.DefaultSelectors(), maxPages, logger)

	navTimeout, err := cfg.NavigationTimeout()
	if err != nil {
		return err
	}
	fetcher := scraper.NewFetcher(navTimeout, logger)

	w := workflow.New(sc, fetcher, st, nil, 0, logger)
	report, err := w.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d listed, %d new, %d skipped, %d failures\n",
		report.RunID, report.Listed, report.New, report.Skipped, report.ScrapeFails)
	return nil
}
