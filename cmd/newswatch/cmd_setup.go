package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"newswatch/internal/store"
)

// setupCmd creates the article database and brings its schema up to date.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the article database and apply schema migrations",
	Long: `Creates the SQLite database (default stock_news.db, override with
database.path or NEWSWATCH_DB) and the articles table if missing, then
applies any pending column migrations. Idempotent; safe to re-run.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("database setup failed: %w", err)
	}
	defer st.Close()

	logger.Info("database ready", zap.String("path", st.Path()))
	fmt.Fprintf(cmd.OutOrStdout(), "Database ready at %s\n", st.Path())
	return nil
}
