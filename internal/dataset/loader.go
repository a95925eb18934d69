package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"zanzara-go/internal/types"
)

var ErrNoRows = errors.New("manifest has no data rows")

type columns struct {
	id, source, instructions, mode int
}

// detect finds columns by header heuristics. The first match wins.
func detect(header []string) columns {
	c := columns{id: -1, source: -1, instructions: -1, mode: -1}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "transcribe") || strings.Contains(l, "trascri") || l == "mode":
			if c.mode == -1 {
				c.mode = i
			}
		case strings.Contains(l, "instruction") || strings.Contains(l, "istruzion") || strings.Contains(l, "note"):
			if c.instructions == -1 {
				c.instructions = i
			}
		case strings.Contains(l, "url") || strings.Contains(l, "audio") || strings.Contains(l, "media") ||
			strings.Contains(l, "file") || strings.Contains(l, "path"):
			if c.source == -1 {
				c.source = i
			}
		case l == "id" || strings.HasSuffix(l, " id") || strings.HasSuffix(l, "_id"):
			if c.id == -1 {
				c.id = i
			}
		}
	}
	if c.source == -1 && len(header) > 0 {
		c.source = 0
		if c.id == 0 {
			c.source = -1
		}
	}
	return c
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseMode reads the transcribe-only flag from a yes/no cell or a mode name.
func parseMode(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "x", "si", "sì", "transcribe", "transcribe_only", "transcribe-only", "trascrizione":
		return true
	}
	return false
}

// Load reads a batch manifest from the first sheet of an xlsx file. Rows
// without a source are skipped. Relative paths are resolved against the
// manifest's directory.
func Load(path string) ([]types.MediaRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in %s", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, ErrNoRows
	}

	cols := detect(rows[0])
	if cols.source == -1 {
		return nil, fmt.Errorf("no media column in %s", path)
	}
	base := filepath.Dir(path)

	var out []types.MediaRecord
	for i, r := range rows[1:] {
		src := cell(r, cols.source)
		if src == "" {
			continue
		}
		if !IsURL(src) && !filepath.IsAbs(src) {
			src = filepath.Join(base, src)
		}
		rec := types.MediaRecord{
			ID:             cell(r, cols.id),
			Source:         src,
			Instructions:   cell(r, cols.instructions),
			TranscribeOnly: parseMode(cell(r, cols.mode)),
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("row-%d", i+2)
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}

func IsURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
