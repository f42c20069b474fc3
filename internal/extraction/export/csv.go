package export

import (
	"bufio"
	"encoding/csv"
	"io"

	"github.com/shandysiswandi/gobordereau/internal/extraction/consolidate"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type CSVOptions struct {
	// BOM prefixes the output with a UTF-8 byte order mark so that Excel
	// detects the encoding.
	BOM bool
}

// WriteCSV writes the header and rows of s as comma separated UTF-8.
func WriteCSV(w io.Writer, s consolidate.Sheet, opts CSVOptions) error {
	bw := bufio.NewWriter(w)
	if opts.BOM {
		if _, err := bw.Write(utf8BOM); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(bw)
	if err := cw.Write(s.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(s.Rows); err != nil {
		return err
	}
	return bw.Flush()
}
