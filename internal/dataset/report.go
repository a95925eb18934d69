package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"zanzara-go/internal/aggregator"
	"zanzara-go/internal/processor"
)

const (
	ResultsSheet = "results"
	SummarySheet = "summary"
)

var resultHeader = []interface{}{
	"invocation_id", "source", "file", "size", "mode", "state",
	"transcript", "analysis", "warnings", "error_kind", "error", "hint", "duration_ms",
}

// WriteReport saves one results row per report plus a summary sheet.
func WriteReport(path string, reports []processor.Report, sum aggregator.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(ResultsSheet, "A1", &resultHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range reports {
		row := []interface{}{
			r.InvocationID, r.Source, r.File.Name, r.File.Size, string(r.Mode), string(r.State),
			r.Transcript, r.Analysis, warningCodes(r), r.ErrorKind, r.Error, hintText(r), r.DurationMs,
		}
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResultsSheet, cellName, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(ResultsSheet, "G", "H", 60)

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	rows := [][]interface{}{
		{"total", sum.Total},
		{"succeeded", sum.Succeeded},
		{"failed", sum.Failed},
		{"empty_transcripts", sum.EmptyTranscripts},
		{"avg_duration_ms", sum.AvgDurationMs},
	}
	for _, k := range sortedKeys(sum.ByState) {
		rows = append(rows, []interface{}{"state:" + k, sum.ByState[k]})
	}
	for _, k := range sortedKeys(sum.FailuresByKind) {
		rows = append(rows, []interface{}{"failure:" + k, sum.FailuresByKind[k]})
	}
	for i := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cellName, &rows[i]); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func warningCodes(r processor.Report) string {
	codes := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		codes = append(codes, w.Code)
	}
	return strings.Join(codes, ", ")
}

func hintText(r processor.Report) string {
	if r.Hint == nil {
		return ""
	}
	return r.Hint.Insight + ". " + r.Hint.Action
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
