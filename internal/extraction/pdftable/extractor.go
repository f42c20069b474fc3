package pdftable

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
)

// Config tunes table detection. Zero values keep the detector defaults.
type Config struct {
	MinRows       int
	MinCols       int
	MinConfidence float64
	TempDir       string // "" uses os.TempDir
}

// Extractor finds table regions in PDF documents.
type Extractor struct {
	detector tables.Config
	tempDir  string
}

func NewExtractor(cfg Config) *Extractor {
	dc := tables.DefaultConfig()
	if cfg.MinRows > 0 {
		dc.MinRows = cfg.MinRows
	}
	if cfg.MinCols > 0 {
		dc.MinCols = cfg.MinCols
	}
	if cfg.MinConfidence > 0 {
		dc.MinConfidence = cfg.MinConfidence
	}
	return &Extractor{detector: dc, tempDir: cfg.TempDir}
}

// Tables returns the tables of a PDF in page order, then in order of
// appearance on the page. The sequence is single-use. An unreadable document
// yields one *entity.ExtractionError and stops; a document without tables
// yields nothing. Resources are released when iteration ends, including when
// the consumer stops early.
func (e *Extractor) Tables(ctx context.Context, data []byte) iter.Seq2[entity.RawTable, error] {
	return func(yield func(entity.RawTable, error) bool) {
		fail := func(page int, err error) {
			yield(entity.RawTable{}, &entity.ExtractionError{Page: page, Err: err})
		}

		if err := Validate(data); err != nil {
			fail(0, err)
			return
		}

		doc, closeDoc, err := e.open(data)
		if err != nil {
			fail(0, err)
			return
		}
		defer closeDoc()

		count, err := doc.PageCount()
		if err != nil {
			fail(0, fmt.Errorf("page count: %w", err))
			return
		}

		detector := tables.NewGeometricDetector()
		if err := detector.Configure(e.detector); err != nil {
			fail(0, fmt.Errorf("configure detector: %w", err))
			return
		}

		for i := range count {
			if err := ctx.Err(); err != nil {
				fail(i+1, err)
				return
			}

			found, err := e.page(doc, detector, i)
			if err != nil {
				fail(i+1, err)
				return
			}
			for _, t := range found {
				if !yield(t, nil) {
					return
				}
			}
		}
	}
}

// open spools data to a temporary file for the reader. The returned func
// closes the reader and removes the file.
func (e *Extractor) open(data []byte) (*reader.Reader, func(), error) {
	f, err := os.CreateTemp(e.tempDir, "gobordereau-*.pdf")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	remove := func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove temp file", "path", path, "error", err)
		}
	}

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		remove()
		return nil, nil, fmt.Errorf("write temp file: %w", err)
	}

	doc, err := openReader(path)
	if err != nil {
		remove()
		return nil, nil, err
	}

	return doc, func() {
		if err := doc.Close(); err != nil {
			slog.Warn("failed to close pdf reader", "path", path, "error", err)
		}
		remove()
	}, nil
}

func openReader(path string) (doc *reader.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("open pdf: %v", r)
		}
	}()
	return reader.Open(path)
}

// page detects the tables of the page at 0-based index i. Ruled grids are
// read from their rulings; the text outside them goes through the geometric
// detector, whose columns are then regrouped along any vertical rulings.
func (e *Extractor) page(doc *reader.Reader, detector *tables.GeometricDetector, i int) (out []entity.RawTable, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("read page: %v", r)
		}
	}()

	pg, err := doc.GetPage(i)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}

	fragments, err := doc.ExtractTextFragments(pg)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if len(fragments) == 0 {
		return nil, nil
	}

	width, err := pg.Width()
	if err != nil {
		return nil, fmt.Errorf("page width: %w", err)
	}
	height, err := pg.Height()
	if err != nil {
		return nil, fmt.Errorf("page height: %w", err)
	}

	type found struct {
		top  float64
		rows [][]string
	}
	var tbls []found

	ge := graphics(pg)
	horizontals, verticals := rulings(ge)

	var grids []model.BBox
	for _, g := range tables.NewGridDetector().DetectFromLines(horizontals, verticals) {
		clip(g, verticals)
		if g.Rows < e.detector.MinRows || g.Cols < e.detector.MinCols || g.Confidence < e.detector.MinConfidence {
			continue
		}
		rows := gridRows(g, fragments)
		if len(rows) == 0 {
			continue
		}
		grids = append(grids, g.BBox)
		tbls = append(tbls, found{top: g.BBox.Y + g.BBox.Height, rows: rows})
	}

	m := model.NewPage(width, height)
	m.Number = i + 1
	for _, f := range fragments {
		p := anchor(f)
		if slices.ContainsFunc(grids, func(b model.BBox) bool { return inside(b, p) }) {
			continue
		}
		m.RawText = append(m.RawText, model.TextFragment{
			Text:     f.Text,
			BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	if ge != nil {
		m.RawLines = append(ge.ToModelLines(), ge.ToModelRectangles()...)
	}

	detected, err := detector.Detect(m)
	if err != nil {
		return nil, fmt.Errorf("detect tables: %w", err)
	}
	for _, t := range detected {
		rows, ok := mergeColumns(t, columnRulings(t, verticals))
		if !ok {
			rows = cells(t)
		}
		if len(rows) > 0 {
			tbls = append(tbls, found{top: t.BBox.Y + t.BBox.Height, rows: rows})
		}
	}
	if len(tbls) == 0 {
		return nil, nil
	}
	slices.SortStableFunc(tbls, func(a, b found) int { return cmp.Compare(b.top, a.top) })

	pageText := pageLines(fragments, width, height)
	for _, t := range tbls {
		out = append(out, entity.RawTable{
			Page:    i + 1,
			Index:   len(out),
			Rows:    t.rows,
			Context: pageText,
		})
	}
	return out, nil
}

// pageLines returns the text of a page, one line per text line.
func pageLines(fragments []text.TextFragment, width, height float64) string {
	lines := layout.NewLineDetector().Detect(fragments, width, height).Lines
	texts := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := strings.TrimSpace(l.Text); s != "" {
			texts = append(texts, s)
		}
	}
	return strings.Join(texts, "\n")
}

// cells converts a detected table to text rows, dropping fully blank rows.
func cells(t *model.Table) [][]string {
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, len(r))
		for j, c := range r {
			row[j] = c.Text
		}
		if !entity.BlankRow(row) {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return rows
}
