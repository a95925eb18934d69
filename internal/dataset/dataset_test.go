package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"zanzara-go/internal/aggregator"
	"zanzara-go/internal/pipeline"
	"zanzara-go/internal/processor"
	"zanzara-go/internal/types"
)

func writeManifest(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &rows[i]))
	}
	path := filepath.Join(t.TempDir(), "manifest.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, [][]interface{}{
		{"Episode ID", "Audio URL", "Istruzioni", "Transcribe only"},
		{"ep1", "https://example.com/ep1.mp3", "tono ironico", "no"},
		{"ep2", "", "ignored", ""},
		{"", "clips/ep3.wav", "", "sì"},
	})

	recs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, types.MediaRecord{
		ID:           "ep1",
		Source:       "https://example.com/ep1.mp3",
		Instructions: "tono ironico",
	}, recs[0])

	assert.Equal(t, "row-4", recs[1].ID)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "clips", "ep3.wav"), recs[1].Source)
	assert.True(t, recs[1].TranscribeOnly)
}

func TestLoadNoRows(t *testing.T) {
	path := writeManifest(t, [][]interface{}{{"id", "url"}})
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNoRows)

	path = writeManifest(t, [][]interface{}{{"id", "url"}, {"a", ""}})
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}

func TestDetect(t *testing.T) {
	c := detect([]string{"id", "mode", "notes", "path"})
	assert.Equal(t, columns{id: 0, source: 3, instructions: 2, mode: 1}, c)

	c = detect([]string{"something"})
	assert.Equal(t, 0, c.source)
	assert.Equal(t, -1, c.id)
}

func TestParseMode(t *testing.T) {
	for _, v := range []string{"yes", "TRUE", "1", "x", "transcribe_only", "Sì"} {
		assert.True(t, parseMode(v), v)
	}
	for _, v := range []string{"", "no", "full", "0"} {
		assert.False(t, parseMode(v), v)
	}
}

func TestWriteReport(t *testing.T) {
	reports := []processor.Report{
		{
			InvocationID: "inv-1",
			Source:       "ep1.mp3",
			File:         types.FileDetails{Name: "ep1.mp3", Size: "1.0 MiB"},
			Mode:         pipeline.ModeFull,
			State:        pipeline.StateDone,
			Transcript:   "ciao",
			Analysis:     "# A",
			DurationMs:   1200,
		},
		{
			Source:    "ep2.mp3",
			Mode:      pipeline.ModeFull,
			State:     pipeline.StateTranscriptionFailed,
			Error:     "rate limit",
			ErrorKind: "rate_limit",
			Hint:      &types.Hint{Insight: "Rate limited", Action: "Wait"},
			Warnings:  []pipeline.Warning{{Code: "a"}, {Code: "b"}},
		},
	}
	sum := aggregator.Summarize(reports)
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteReport(path, reports, sum))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ResultsSheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(ResultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "invocation_id", rows[0][0])
	assert.Equal(t, "inv-1", rows[1][0])
	assert.Equal(t, "done", rows[1][5])
	assert.Equal(t, "ciao", rows[1][6])
	assert.Equal(t, "a, b", rows[2][8])
	assert.Equal(t, "rate_limit", rows[2][9])
	assert.Equal(t, "Rate limited. Wait", rows[2][11])

	v, err := f.GetCellValue(SummarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	v, err = f.GetCellValue(SummarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}
