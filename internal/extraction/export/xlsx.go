package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/shandysiswandi/gobordereau/internal/extraction/consolidate"
)

const defaultSheet = "Sheet1"

// WriteXLSX writes one worksheet per sheet, in order. Cell values are
// written as text. Sheet names are sanitized and made unique within the
// workbook.
func WriteXLSX(w io.Writer, sheets ...consolidate.Sheet) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if len(sheets) == 0 {
		sheets = []consolidate.Sheet{{}}
	}

	used := make(map[string]struct{}, len(sheets))
	for i, s := range sheets {
		name := uniqueSheetName(SanitizeSheetName(s.Name), used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, s); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	return f.Write(w)
}

func writeSheet(f *excelize.File, name string, s consolidate.Sheet) error {
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return err
	}

	row := 1
	write := func(values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		out := make([]interface{}, len(values))
		for i, v := range values {
			out[i] = v
		}
		return sw.SetRow(cell, out)
	}

	if len(s.Header) > 0 {
		if err := write(s.Header); err != nil {
			return err
		}
	}
	for _, r := range s.Rows {
		if err := write(r); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// uniqueSheetName compares names case-insensitively, as Excel does.
func uniqueSheetName(name string, used map[string]struct{}) string {
	candidate := name
	for n := 2; ; n++ {
		key := strings.ToLower(candidate)
		if _, ok := used[key]; !ok {
			used[key] = struct{}{}
			return candidate
		}
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncate(name, maxSheetNameLen-len(suffix)) + suffix
	}
}
