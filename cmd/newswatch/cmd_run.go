package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newswatch/internal/orchestrator"
)

// runCmd sequences the two pipeline programs: database setup, then the
// workflow runner with USE_WEB_SEARCH=1. All arguments after "run" are
// opaque and forwarded verbatim to the workflow step, so flag parsing is
// disabled; configuration comes from the default config file and NEWSWATCH_*
// environment variables.
var runCmd = &cobra.Command{
	Use:   "run [workflow args...]",
	Short: "Run database setup, then the workflow with web search enabled",
	Long: `Runs the full pipeline:

  [1/2] database setup  (no arguments)
  [2/2] workflow run    (USE_WEB_SEARCH=1, plus any arguments given here)

The second step only runs if the first exits 0. The orchestrator's exit code
mirrors whichever step failed. By default both steps re-exec this binary's
own setup and workflow subcommands; pipeline.setup_command and
pipeline.workflow_command in the config file substitute external programs.`,
	DisableFlagParsing: true,
	SilenceErrors:      true,
	RunE:               runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	// Flag parsing is disabled, so help has to be handled by hand.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return cmd.Help()
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	setupArgv := cfg.Pipeline.SetupCommand
	workflowArgv := cfg.Pipeline.WorkflowCommand
	if len(setupArgv) == 0 || len(workflowArgv) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate own executable: %w", err)
		}
		if len(setupArgv) == 0 {
			setupArgv = []string{exe, "setup"}
		}
		if len(workflowArgv) == 0 {
			workflowArgv = []string{exe, "workflow"}
		}
	}

	runner := orchestrator.New(logger)
	return runner.Run(cmd.Context(), orchestrator.Pipeline(setupArgv, workflowArgv, args))
}
