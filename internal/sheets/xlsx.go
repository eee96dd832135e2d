package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXSource reads a local workbook, used when the sheet is exported and
// dropped next to the worker instead of published.
type XLSXSource struct {
	path  string
	sheet string
}

// NewXLSXSource opens sheetName in the workbook at path; an empty sheetName
// means the first sheet.
func NewXLSXSource(path, sheetName string) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheetName}
}

func (s *XLSXSource) Rows(_ context.Context) ([]Row, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	rows := make([]Row, 0, len(grid))
	for rowIdx, cols := range grid {
		var row Row
		for colIdx, text := range cols {
			cell := Cell{Text: strings.TrimSpace(text)}
			if axis, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1); err == nil {
				if ok, link, err := f.GetCellHyperLink(sheet, axis); err == nil && ok {
					cell.Hyperlink = link
				}
			}
			row = append(row, cell)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
