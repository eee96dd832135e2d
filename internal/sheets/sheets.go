// Package sheets reads spreadsheet grids into (text, hyperlink) cell pairs,
// the shape the import parser consumes. Two sources exist: a published
// Google Sheet fetched as an HTML table, and a local XLSX workbook.
package sheets

import "context"

// Cell is one grid cell: its formatted text and the hyperlink embedded in
// it, if any.
type Cell struct {
	Text      string
	Hyperlink string
}

// Row is one grid row, column 0 first.
type Row []Cell

// First returns column 0, the cell carrying the product text and link.
func (r Row) First() Cell {
	if len(r) == 0 {
		return Cell{}
	}
	return r[0]
}

// Source produces the full grid of a sheet.
type Source interface {
	Rows(ctx context.Context) ([]Row, error)
}
