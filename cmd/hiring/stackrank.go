package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/hiring-engine/internal/export"
	"github.com/jonathan/hiring-engine/internal/observability"
)

var (
	rankJobID   string
	rankJSON    bool
	rankPreview bool
	exportOut   string
)

var stackrankCmd = &cobra.Command{
	Use:   "stackrank",
	Short: "Rank a job's complete interview processes",
	Long:  "Ranks the complete interview processes of a job by total score and selects the leader as the final candidate. --preview ranks without selecting.",
	RunE:  runStackrank,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a job's pipeline statistics",
	RunE:  runStats,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a job's stackrank as an XLSX workbook",
	RunE:  runExport,
}

func init() {
	for _, c := range []*cobra.Command{stackrankCmd, statsCmd, exportCmd} {
		c.Flags().StringVarP(&rankJobID, "job", "j", "", "Job posting ID (required)")
		if err := c.MarkFlagRequired("job"); err != nil {
			panic(fmt.Sprintf("failed to mark job flag as required: %v", err))
		}
		rootCmd.AddCommand(c)
	}
	stackrankCmd.Flags().BoolVar(&rankJSON, "json", false, "Print JSON instead of a table")
	stackrankCmd.Flags().BoolVar(&rankPreview, "preview", false, "Rank without selecting a final candidate")
	statsCmd.Flags().BoolVar(&rankJSON, "json", false, "Print JSON instead of a table")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (default stackrank-<job>.xlsx)")
}

func parseJobFlag() (uuid.UUID, error) {
	id, err := uuid.Parse(rankJobID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --job %q: %w", rankJobID, err)
	}
	return id, nil
}

func runStackrank(cmd *cobra.Command, _ []string) error {
	jobID, err := parseJobFlag()
	if err != nil {
		return err
	}
	engine, _, closeStore, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	job, rank, err := engine.PreviewStackrank(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	if !rankPreview && len(rank.Ranked) > 0 {
		if rank, err = engine.Stackrank(cmd.Context(), jobID); err != nil {
			return err
		}
	}

	if rankJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rank)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintStackrank(job, rank)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	jobID, err := parseJobFlag()
	if err != nil {
		return err
	}
	engine, _, closeStore, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	stats, err := engine.Statistics(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	if rankJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintStatistics(stats)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	jobID, err := parseJobFlag()
	if err != nil {
		return err
	}
	engine, _, closeStore, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	job, rank, err := engine.PreviewStackrank(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	data, err := export.StackrankXLSX(job, rank)
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" {
		out = export.Filename(job)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d ranked candidate(s) to %s\n", len(rank.Ranked), out)
	return nil
}
