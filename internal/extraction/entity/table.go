package entity

import "strings"

// RawTable is one table region detected on one PDF page.
type RawTable struct {
	Page    int // 1-based page number
	Index   int // 0-based position of the table on its page
	Rows    [][]string
	Context string // page text, one line per text line, top to bottom
}

// Columns returns the width of the widest row.
func (t RawTable) Columns() int {
	n := 0
	for _, row := range t.Rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// BlankRow reports whether every cell of row is empty after trimming.
func BlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
