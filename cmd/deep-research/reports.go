// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kuraryu/deep-research/internal/store"
	"github.com/kuraryu/deep-research/pkg/types"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Browse archived research runs",
	Long: `Reports reads the local run archive. Use list to see past runs and
search to run a full-text query over every collected source title and
summary across all runs.`,
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived research runs, most recent first",
	RunE:  runReportsList,
}

func runReportsList(cmd *cobra.Command, args []string) error {
	s, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-19s  %-50s  %-4s  %-7s  %s\n",
		"Started", "Query", "Docs", "State", "Report")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for _, r := range runs {
		query := r.Query
		if len(query) > 50 {
			query = query[:47] + "..."
		}
		state := "ok"
		if r.Degraded {
			state = "partial"
		}
		fmt.Fprintf(os.Stdout, "%-19s  %-50s  %-4d  %-7s  %s\n",
			r.Started.Local().Format("2006-01-02 15:04:05"), query, r.DocumentCount, state, r.ReportPath)
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

var reportsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over archived sources",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReportsSearch,
}

func runReportsSearch(cmd *cobra.Command, args []string) error {
	s, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	hits, err := s.SearchDocuments(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, h := range hits {
		fmt.Fprintf(os.Stdout, "%d. [%s] %s (%s)\n", i+1, h.Kind, h.Title, h.Identifier)
		if h.Summary != "" {
			summary := h.Summary
			if len(summary) > 200 {
				summary = summary[:197] + "..."
			}
			fmt.Fprintf(os.Stdout, "   %s\n", summary)
		}
		fmt.Fprintf(os.Stdout, "   from run: %s\n", h.RunQuery)
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(hits))
	return nil
}

func openArchive(cmd *cobra.Command) (*store.Store, error) {
	dir, _ := cmd.Flags().GetString("archive-dir")
	if dir == "" {
		dir = viper.GetString("archive.dir")
	}
	if dir == "" {
		dir = "archive"
	}
	return store.NewStore(types.ArchiveConfig{Dir: dir})
}

func init() {
	reportsCmd.PersistentFlags().String("archive-dir", "", "directory holding the run archive")
	reportsCmd.PersistentFlags().Bool("json", false, "output as JSON")

	reportsSearchCmd.Flags().Int("limit", 0, "maximum results (0 = default)")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsSearchCmd)
	rootCmd.AddCommand(reportsCmd)
}
