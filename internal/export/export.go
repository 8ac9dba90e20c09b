// Package export renders stackrank results as XLSX workbooks.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/hiring-engine/internal/ranking"
	"github.com/jonathan/hiring-engine/internal/types"
)

// SheetName is the worksheet holding the ranked list.
const SheetName = "Stackrank"

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Filename returns the download name of a job's report.
func Filename(job *types.JobPosting) string {
	return fmt.Sprintf("stackrank-%s.xlsx", job.ID)
}

// StackrankXLSX returns a workbook with one row per ranked candidate: rank,
// name, ids, one column per round rating, the total and the final-candidate
// status of the row that holds it.
func StackrankXLSX(job *types.JobPosting, rank *ranking.Stackrank) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	index, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(index)

	rounds := 0
	for _, rc := range rank.Ranked {
		rounds = max(rounds, len(rc.Ratings))
	}

	headers := []string{"Rank", "Candidate", "Candidate ID", "Process ID"}
	for i := 1; i <= rounds; i++ {
		headers = append(headers, fmt.Sprintf("Round %d", i))
	}
	headers = append(headers, "Total", "Final")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	for i, rc := range rank.Ranked {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		write(1, rc.Rank)
		write(2, rc.CandidateName)
		write(3, rc.CandidateID.String())
		write(4, rc.ProcessID.String())
		for j, r := range rc.Ratings {
			write(5+j, r)
		}
		write(5+rounds, rc.TotalScore)
		if rank.Selected != nil && rank.Selected.CandidateID == rc.CandidateID {
			write(6+rounds, string(rank.Selected.Status))
		}
	}

	// Job details below the table
	footer := len(rank.Ranked) + 3
	labels := [][2]string{{"Role", job.RoleName}, {"Job ID", job.ID.String()}, {"Status", job.Status}}
	for i, kv := range labels {
		a, _ := excelize.CoordinatesToCellName(1, footer+i)
		b, _ := excelize.CoordinatesToCellName(2, footer+i)
		_ = f.SetCellValue(SheetName, a, kv[0])
		_ = f.SetCellValue(SheetName, b, kv[1])
	}

	_ = f.SetColWidth(SheetName, "A", "A", 8)
	_ = f.SetColWidth(SheetName, "B", "B", 28)
	_ = f.SetColWidth(SheetName, "C", "D", 38)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
