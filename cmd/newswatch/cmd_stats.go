package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"newswatch/internal/store"
)

// statsCmd prints article counts per processing status.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show article counts per processing status",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		return err
	}

	total := 0
	statuses := make([]string, 0, len(stats))
	for status, count := range stats {
		statuses = append(statuses, status)
		total += count
	}
	sort.Strings(statuses)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database: %s\n", st.Path())
	for _, status := range statuses {
		fmt.Fprintf(out, "  %-10s %d\n", status, stats[status])
	}
	fmt.Fprintf(out, "  %-10s %d\n", "total", total)
	return nil
}
