package export

import (
	"bytes"
	"fmt"

	"github.com/shandysiswandi/gobordereau/internal/extraction/consolidate"
)

// Options selects the output of Render.
type Options struct {
	CSV CSVOptions
}

// Render encodes sheets in format f. CSV holds only the first sheet.
func Render(f Format, opts Options, sheets ...consolidate.Sheet) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatXLSX:
		err = WriteXLSX(&buf, sheets...)
	case FormatCSV:
		var s consolidate.Sheet
		if len(sheets) > 0 {
			s = sheets[0]
		}
		err = WriteCSV(&buf, s, opts.CSV)
	default:
		err = fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
