package pdftable

import (
	"bytes"
	"fmt"
	"strings"
)

const helvetica = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"

// buildPDF assembles a Letter-size document with one page per content
// stream. An empty stream gives a page without contents.
func buildPDF(contents ...string) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	// 1 catalog, 2 page tree, 3 font, then each page followed by its stream.
	kids := make([]string, len(contents))
	next := 4
	for i, c := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", next)
		next++
		if c != "" {
			next++
		}
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(contents)))
	obj(helvetica)
	for _, c := range contents {
		if c == "" {
			obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
			continue
		}
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", len(offsets)+2))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(c), c))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// blankPDF builds a valid document of n empty pages.
func blankPDF(n int) []byte {
	return buildPDF(make([]string, n)...)
}

// textAt shows s in 10pt Helvetica with its baseline origin at x, y.
func textAt(x, y float64, s string) string {
	return fmt.Sprintf("BT /F1 10 Tf %g %g Td (%s) Tj ET\n", x, y, s)
}

// ruledTable draws one ruled row per entry of rows from top downwards, with
// a vertical ruling at every x of cols, and writes each cell 5pt right of its
// left ruling.
func ruledTable(cols []float64, top, rowHeight float64, rows [][]string) string {
	var b strings.Builder
	bottom := top - rowHeight*float64(len(rows))

	b.WriteString("0.5 w\n")
	for i := range len(rows) + 1 {
		y := top - rowHeight*float64(i)
		fmt.Fprintf(&b, "%g %g m %g %g l S\n", cols[0], y, cols[len(cols)-1], y)
	}
	for _, x := range cols {
		fmt.Fprintf(&b, "%g %g m %g %g l S\n", x, top, x, bottom)
	}
	writeCells(&b, cols, top, rowHeight, rows)
	return b.String()
}

// boxedTable is ruledTable with every cell stroked as its own rectangle.
func boxedTable(cols []float64, top, rowHeight float64, rows [][]string) string {
	var b strings.Builder

	b.WriteString("0.5 w\n")
	for i := range rows {
		y := top - rowHeight*float64(i+1)
		for j := 0; j+1 < len(cols); j++ {
			fmt.Fprintf(&b, "%g %g %g %g re S\n", cols[j], y, cols[j+1]-cols[j], rowHeight)
		}
	}
	writeCells(&b, cols, top, rowHeight, rows)
	return b.String()
}

func writeCells(b *strings.Builder, cols []float64, top, rowHeight float64, rows [][]string) {
	for i, row := range rows {
		baseline := top - rowHeight*float64(i+1) + 6
		for j, c := range row {
			if c != "" {
				b.WriteString(textAt(cols[j]+5, baseline, c))
			}
		}
	}
}
