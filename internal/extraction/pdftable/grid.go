package pdftable

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
)

const (
	// thinRule is the largest side, in points, of a filled rectangle painted
	// as a ruling.
	thinRule = 2.0
	// rulingTolerance groups rulings drawn at nearly the same position.
	rulingTolerance = 3.0
)

// graphics parses the drawn paths of a page. A page whose graphics cannot be
// parsed is treated as having none, so detection falls back to text
// alignment.
func graphics(pg *pages.Page) *graphicsstate.GraphicsExtractor {
	contents, err := pg.Contents()
	if err != nil || len(contents) == 0 {
		return nil
	}

	var data []byte
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		decoded, err := stream.Decode()
		if err != nil {
			return nil
		}
		data = append(data, decoded...)
		data = append(data, '\n')
	}

	ge := graphicsstate.NewGraphicsExtractor()
	if err := ge.ExtractFromBytes(data); err != nil {
		return nil
	}
	return ge
}

// rulings returns the horizontal and vertical rulings of a page. Stroked
// rectangles count as their four edges and thin filled rectangles as one
// line.
func rulings(ge *graphicsstate.GraphicsExtractor) (horizontals, verticals []graphicsstate.ExtractedLine) {
	if ge == nil {
		return nil, nil
	}

	lines := ge.GetGridLines()
	horizontals = slices.Clone(lines.Horizontals)
	verticals = slices.Clone(lines.Verticals)

	for _, r := range ge.GetRectangles() {
		b := r.BBox
		left, right, bottom, top := b.X, b.X+b.Width, b.Y, b.Y+b.Height
		switch {
		case r.IsStroked:
			horizontals = append(horizontals, segment(left, bottom, right, bottom), segment(left, top, right, top))
			verticals = append(verticals, segment(left, bottom, left, top), segment(right, bottom, right, top))
		case b.Height <= thinRule && b.Width > thinRule:
			mid := bottom + b.Height/2
			horizontals = append(horizontals, segment(left, mid, right, mid))
		case b.Width <= thinRule && b.Height > thinRule:
			mid := left + b.Width/2
			verticals = append(verticals, segment(mid, bottom, mid, top))
		}
	}
	return horizontals, verticals
}

func segment(x1, y1, x2, y2 float64) graphicsstate.ExtractedLine {
	return graphicsstate.ExtractedLine{
		Start:        model.Point{X: x1, Y: y1},
		End:          model.Point{X: x2, Y: y2},
		IsHorizontal: y1 == y2,
		IsVertical:   x1 == x2,
		BBox:         model.NewBBoxFromPoints(model.Point{X: x1, Y: y1}, model.Point{X: x2, Y: y2}),
	}
}

// clip drops the horizontal rulings of g lying above or below every vertical
// ruling, such as a rule under the page title.
func clip(g *tables.GridHypothesis, verticals []graphicsstate.ExtractedLine) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range verticals {
		lo = min(lo, l.Start.Y, l.End.Y)
		hi = max(hi, l.Start.Y, l.End.Y)
	}

	kept := make([]float64, 0, len(g.HorizontalLines))
	for _, y := range g.HorizontalLines {
		if y >= lo-rulingTolerance && y <= hi+rulingTolerance {
			kept = append(kept, y)
		}
	}
	g.HorizontalLines = kept
	g.Rows = max(len(kept)-1, 0)
	if len(kept) > 0 {
		g.BBox.Y = kept[len(kept)-1]
		g.BBox.Height = kept[0] - kept[len(kept)-1]
	}
}

// anchor is the point that places a fragment in a cell: just right of its
// start, a little above its baseline.
func anchor(f text.TextFragment) model.Point {
	return model.Point{X: f.X + 1, Y: f.Y + f.Height*0.3}
}

// band returns i such that edges[i] and edges[i+1] enclose v, or -1. Edges
// are sorted ascending, or descending when desc is set.
func band(edges []float64, v float64, desc bool) int {
	for i := 0; i+1 < len(edges); i++ {
		lo, hi := edges[i], edges[i+1]
		if desc {
			lo, hi = hi, lo
		}
		if v >= lo && v <= hi {
			return i
		}
	}
	return -1
}

func inside(b model.BBox, p model.Point) bool {
	return p.X >= b.X && p.X <= b.X+b.Width && p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// gridRows fills the cells of a ruled grid with the fragments they contain
// and drops blank rows.
func gridRows(g *tables.GridHypothesis, fragments []text.TextFragment) [][]string {
	cells := make([][][]text.TextFragment, g.Rows)
	for i := range cells {
		cells[i] = make([][]text.TextFragment, g.Cols)
	}

	for _, f := range readingOrder(fragments) {
		p := anchor(f)
		row := band(g.HorizontalLines, p.Y, true)
		col := band(g.VerticalLines, p.X, false)
		if row < 0 || col < 0 || row >= g.Rows || col >= g.Cols {
			continue
		}
		cells[row][col] = append(cells[row][col], f)
	}

	rows := make([][]string, 0, g.Rows)
	for _, r := range cells {
		row := make([]string, len(r))
		for j, c := range r {
			row[j] = joinFragments(c)
		}
		if !entity.BlankRow(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

// readingOrder sorts fragments top to bottom, then left to right.
func readingOrder(fragments []text.TextFragment) []text.TextFragment {
	out := slices.Clone(fragments)
	slices.SortStableFunc(out, func(a, b text.TextFragment) int {
		if math.Abs(a.Y-b.Y) > math.Min(a.Height, b.Height)/2 {
			return cmp.Compare(b.Y, a.Y)
		}
		return cmp.Compare(a.X, b.X)
	})
	return out
}

// joinFragments joins the fragments of one cell. A space separates
// fragments on different lines or split by a gap of an eighth of the font
// size or more.
func joinFragments(frags []text.TextFragment) string {
	var sb strings.Builder
	for i, f := range frags {
		if i > 0 {
			prev := frags[i-1]
			newLine := math.Abs(prev.Y-f.Y) > prev.Height/2
			gap := f.X - (prev.X + prev.Width)
			if newLine || gap >= f.FontSize*0.125 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(f.Text)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// columnRulings returns the positions of the vertical rulings crossing the
// area of t, left to right, with rulings closer than rulingTolerance merged.
func columnRulings(t *model.Table, verticals []graphicsstate.ExtractedLine) []float64 {
	bottom, top := t.BBox.Y, t.BBox.Y+t.BBox.Height
	left, right := t.BBox.X-rulingTolerance, t.BBox.X+t.BBox.Width+rulingTolerance

	var xs []float64
	for _, l := range verticals {
		x := (l.Start.X + l.End.X) / 2
		lo, hi := math.Min(l.Start.Y, l.End.Y), math.Max(l.Start.Y, l.End.Y)
		if x >= left && x <= right && hi > bottom && lo < top {
			xs = append(xs, x)
		}
	}
	slices.Sort(xs)

	out := xs[:0]
	for _, x := range xs {
		if len(out) > 0 && x-out[len(out)-1] < rulingTolerance {
			continue
		}
		out = append(out, x)
	}
	return out
}

// mergeColumns folds the columns of t that start between the same two
// rulings into one, joining their texts left to right. Columns without text
// are dropped. It reports false when the rulings do not separate at least
// two columns.
func mergeColumns(t *model.Table, xs []float64) ([][]string, bool) {
	width := 0
	for _, r := range t.Rows {
		width = max(width, len(r))
	}

	bands := make([]int, width)
	var used []int
	for j := range width {
		bands[j] = -1
		x, ok := columnStart(t, j)
		if !ok {
			continue
		}
		b := 0
		for _, r := range xs {
			if r <= x {
				b++
			}
		}
		bands[j] = b
		if !slices.Contains(used, b) {
			used = append(used, b)
		}
	}
	if len(used) < 2 {
		return nil, false
	}
	slices.Sort(used)

	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, len(used))
		for j, c := range r {
			v := strings.TrimSpace(c.Text)
			if bands[j] < 0 || v == "" {
				continue
			}
			k := slices.Index(used, bands[j])
			if row[k] != "" {
				row[k] += " "
			}
			row[k] += v
		}
		if !entity.BlankRow(row) {
			rows = append(rows, row)
		}
	}
	return rows, true
}

// columnStart returns the leftmost text edge of column j.
func columnStart(t *model.Table, j int) (float64, bool) {
	x, ok := 0.0, false
	for _, r := range t.Rows {
		if j >= len(r) || strings.TrimSpace(r[j].Text) == "" || r[j].BBox.IsEmpty() {
			continue
		}
		if !ok || r[j].BBox.X < x {
			x, ok = r[j].BBox.X, true
		}
	}
	return x, ok
}
