// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/hiring-engine/internal/hiring"
	"github.com/jonathan/hiring-engine/internal/ranking"
	"github.com/jonathan/hiring-engine/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of ranked rows to display
	maxItemsToShow = 10
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintStackrank outputs the ranked candidates of a job and its final
// candidate, if any.
func (p *Printer) PrintStackrank(job *types.JobPosting, rank *ranking.Stackrank) {
	if job == nil || rank == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Role:     %s\n", job.RoleName))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", job.Status))
	sb.WriteString("\n")

	if len(rank.Ranked) == 0 {
		sb.WriteString("No complete interview processes yet\n")
	}
	count := min(len(rank.Ranked), maxItemsToShow)
	for i := 0; i < count; i++ {
		rc := rank.Ranked[i]
		ratings := make([]string, len(rc.Ratings))
		for j, r := range rc.Ratings {
			ratings[j] = fmt.Sprintf("%d", r)
		}
		sb.WriteString(fmt.Sprintf("%2d. %-20s %3d  [%s]\n", rc.Rank, rc.CandidateName, rc.TotalScore, strings.Join(ratings, " ")))
	}
	if len(rank.Ranked) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("    ... and %d more\n", len(rank.Ranked)-maxItemsToShow))
	}

	if fc := rank.Selected; fc != nil {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Final:    %s (%s)\n", fc.CandidateName, fc.Status))
		if fc.Compensation != "" {
			sb.WriteString(fmt.Sprintf("Offer:    %s\n", fc.Compensation))
		}
	}

	p.printBox("STACKRANK", sb.String())
}

// PrintStatistics outputs the pipeline counters of a job.
func (p *Printer) PrintStatistics(stats *hiring.Statistics) {
	if stats == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Candidates: %d\n", stats.Candidates))
	sb.WriteString(fmt.Sprintf("Processes:  %d\n", stats.Processes))
	for _, k := range sortedKeys(stats.ProcessesBy) {
		sb.WriteString(fmt.Sprintf("  • %-12s %d\n", k, stats.ProcessesBy[types.ProcessStatus(k)]))
	}
	sb.WriteString("Rounds:\n")
	for _, k := range sortedKeys(stats.RoundsBy) {
		sb.WriteString(fmt.Sprintf("  • %-12s %d\n", k, stats.RoundsBy[types.RoundStatus(k)]))
	}
	sb.WriteString(fmt.Sprintf("Average total: %.2f\n", stats.AverageTotal))
	sb.WriteString(fmt.Sprintf("Highest total: %d\n", stats.HighestTotal))
	if stats.OfferStatus != "" {
		sb.WriteString(fmt.Sprintf("Final candidate: %s\n", stats.OfferStatus))
	}

	p.printBox("JOB STATISTICS", sb.String())
}

func sortedKeys[K ~string, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
