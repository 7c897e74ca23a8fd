// newswatch ingests exchange news announcements into SQLite and evaluates
// them with an LLM. The run command reproduces the original pipeline entry
// point: database setup first, then the workflow with web search enabled.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"newswatch/internal/config"
	"newswatch/internal/orchestrator"
)

var (
	// Global flags
	verbose bool
	cfgPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "newswatch",
	Short: "newswatch - exchange news ingestion and LLM analysis",
	Long: `newswatch scrapes the exchange's news-and-reports portal into a local
SQLite database and evaluates each announcement with an LLM.

Typical entry point:

  newswatch run            # database setup, then the workflow with web search

The individual stages are also available directly: setup, scrape, analyze,
workflow, stats.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadConfig resolves configuration for the current invocation.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default "+config.DefaultFileName+")")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	// The run command mirrors its failed child's exit code; everything else
	// exits 1.
	os.Exit(orchestrator.ExitCode(err))
}
