package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Reader loads institutional spreadsheet exports into header-keyed rows.
type Reader struct {
	Logger *zap.Logger
}

// NewReader creates a spreadsheet reader.
func NewReader(logger *zap.Logger) *Reader {
	return &Reader{Logger: logger}
}

// ReadTable opens the workbook and returns every data row of the first
// sheet as a map keyed by the header row. Cells beyond the header width
// are dropped; short rows are padded with empty strings.
func (r *Reader) ReadTable(path string) ([]map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	var out []map[string]string
	for _, cells := range rows[1:] {
		row := make(map[string]string, len(header))
		empty := true
		for i, name := range header {
			if name == "" {
				continue
			}
			value := ""
			if i < len(cells) {
				value = strings.TrimSpace(cells[i])
			}
			row[name] = value
			if value != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, row)
		}
	}

	r.Logger.Info("Spreadsheet loaded",
		zap.String("path", path),
		zap.Int("rows", len(out)))
	return out, nil
}
