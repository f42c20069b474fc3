package pdftable

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/text"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
)

func TestTablesEmptyDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := NewExtractor(Config{TempDir: dir})

	n := 0
	for _, err := range e.Tables(context.Background(), blankPDF(2)) {
		if err != nil {
			t.Fatalf("Tables() error: %v", err)
		}
		n++
	}
	if n != 0 {
		t.Fatalf("Tables() yielded %d tables, want 0", n)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir has %d leftover files", len(entries))
	}
}

func TestTablesInvalidDocument(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{TempDir: t.TempDir()})

	var errs []error
	for _, err := range e.Tables(context.Background(), []byte("this is not a pdf")) {
		errs = append(errs, err)
	}
	if len(errs) != 1 {
		t.Fatalf("Tables() yielded %d items, want 1 error", len(errs))
	}

	var extraction *entity.ExtractionError
	if !errors.As(errs[0], &extraction) {
		t.Fatalf("Tables() error = %v, want ExtractionError", errs[0])
	}
	if !errors.Is(errs[0], ErrNotPDF) {
		t.Fatalf("Tables() error = %v, want ErrNotPDF", errs[0])
	}
}

func TestTablesCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	e := NewExtractor(Config{TempDir: dir})

	var got error
	for _, err := range e.Tables(ctx, blankPDF(1)) {
		got = err
	}
	if !errors.Is(got, context.Canceled) {
		t.Fatalf("Tables() error = %v, want context.Canceled", got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("temp dir has %d leftover files", len(entries))
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := Validate(blankPDF(1)); err != nil {
		t.Fatalf("Validate(blank) error: %v", err)
	}
	if err := Validate(nil); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("Validate(nil) error = %v, want ErrNotPDF", err)
	}
	if err := Validate([]byte("%PDF-1.4\ngarbage")); err == nil {
		t.Fatal("Validate(truncated) expected error")
	}
}

func TestPageTexts(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{})
	texts, err := e.PageTexts(context.Background(), blankPDF(3))
	if err != nil {
		t.Fatalf("PageTexts() error: %v", err)
	}
	if len(texts) != 3 {
		t.Fatalf("PageTexts() len = %d, want 3", len(texts))
	}
	for i, s := range texts {
		if strings.TrimSpace(s) != "" {
			t.Fatalf("page %d text = %q, want empty", i+1, s)
		}
	}

	if _, err := e.PageTexts(context.Background(), []byte("nope")); err == nil {
		t.Fatal("PageTexts(invalid) expected error")
	}
}

func TestNewExtractorDefaults(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{MinRows: 3})
	if e.detector.MinRows != 3 {
		t.Fatalf("MinRows = %d, want 3", e.detector.MinRows)
	}
	if e.detector.MinCols != 2 || e.detector.MinConfidence != 0.5 {
		t.Fatalf("detector defaults not kept: %+v", e.detector)
	}
}

var ruledRows = [][]string{
	{"Nom Prenom", "NNI", "Emploi"},
	{"DUPONT Jean", "N0000", "Technicien"},
	{"LE GOFF-MARTIN Anne-Sophie", "N0001", "Agent"},
	{"LI Bo", "N0002", "Technicien"},
	{"DUPONT Jean", "N0003", "Agent"},
	{"LE GOFF-MARTIN Anne-Sophie", "N0004", "Technicien"},
	{"LI Bo", "N0005", "Agent"},
}

func collect(t *testing.T, e *Extractor, data []byte) []entity.RawTable {
	t.Helper()

	var out []entity.RawTable
	for table, err := range e.Tables(context.Background(), data) {
		if err != nil {
			t.Fatalf("Tables() error: %v", err)
		}
		out = append(out, table)
	}
	return out
}

func assertRows(t *testing.T, got, want [][]string) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("rows = %q, want %d rows", got, len(want))
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Fatalf("row %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTablesRuledGrid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := NewExtractor(Config{TempDir: dir})

	content := textAt(100, 720, "Bordereau A3 n 1") +
		textAt(100, 700, "Titularisations") +
		ruledTable([]float64{100, 260, 360, 500}, 680, 20, ruledRows)

	got := collect(t, e, buildPDF(content))
	if len(got) != 1 {
		t.Fatalf("Tables() yielded %d tables, want 1", len(got))
	}
	if got[0].Page != 1 || got[0].Index != 0 {
		t.Fatalf("table origin = page %d index %d", got[0].Page, got[0].Index)
	}
	assertRows(t, got[0].Rows, ruledRows)
	if !strings.Contains(got[0].Context, "Bordereau A3 n 1") {
		t.Fatalf("Context = %q, want the page heading", got[0].Context)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir has %d leftover files", len(entries))
	}
}

func TestTablesIgnoresRuleUnderTitle(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{TempDir: t.TempDir()})

	content := textAt(100, 720, "Bordereau A3 n 1") +
		"0.5 w 100 700 m 500 700 l S\n" +
		textAt(105, 686, "Titularisations") +
		ruledTable([]float64{100, 260, 360, 500}, 680, 20, ruledRows[:3])

	got := collect(t, e, buildPDF(content))
	if len(got) != 1 {
		t.Fatalf("Tables() yielded %d tables, want 1", len(got))
	}
	assertRows(t, got[0].Rows, ruledRows[:3])
}

func TestTablesStrokedCells(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{TempDir: t.TempDir()})

	content := textAt(100, 720, "Bordereau A3 n 2") +
		boxedTable([]float64{100, 260, 360, 500}, 680, 20, ruledRows[:3])

	got := collect(t, e, buildPDF(content))
	if len(got) != 1 {
		t.Fatalf("Tables() yielded %d tables, want 1", len(got))
	}
	assertRows(t, got[0].Rows, ruledRows[:3])
}

func TestTablesPageOrder(t *testing.T) {
	t.Parallel()

	e := NewExtractor(Config{TempDir: t.TempDir()})

	first := ruledTable([]float64{100, 260, 360, 500}, 680, 20, ruledRows[:2])
	second := ruledTable([]float64{100, 260, 360, 500}, 680, 20, ruledRows[2:4])

	got := collect(t, e, buildPDF(first, "", second))
	if len(got) != 2 {
		t.Fatalf("Tables() yielded %d tables, want 2", len(got))
	}
	if got[0].Page != 1 || got[1].Page != 3 || got[1].Index != 0 {
		t.Fatalf("pages = %d, %d", got[0].Page, got[1].Page)
	}
	assertRows(t, got[1].Rows, ruledRows[2:4])
}

func cell(s string, x float64) model.Cell {
	if s == "" {
		return model.Cell{}
	}
	return model.Cell{Text: s, BBox: model.BBox{X: x, Y: 600, Width: 5 * float64(len(s)), Height: 10}}
}

func TestMergeColumnsAlongRulings(t *testing.T) {
	t.Parallel()

	// Names of different widths split one drawn column into three.
	table := &model.Table{
		BBox: model.BBox{X: 100, Y: 540, Width: 400, Height: 140},
		Rows: [][]model.Cell{
			{cell("", 0), cell("Nom Prenom", 105), cell("", 0), cell("NNI", 265)},
			{cell("", 0), cell("DUPONT Jean", 105), cell("", 0), cell("N0000", 265)},
			{cell("", 0), cell("", 0), cell("LE GOFF-MARTIN Anne-Sophie", 105), cell("N0001", 265)},
			{cell("LI Bo", 105), cell("", 0), cell("", 0), cell("N0002", 265)},
		},
	}

	rows, ok := mergeColumns(table, []float64{100, 260, 360})
	if !ok {
		t.Fatal("mergeColumns() did not use the rulings")
	}
	assertRows(t, rows, [][]string{
		{"Nom Prenom", "NNI"},
		{"DUPONT Jean", "N0000"},
		{"LE GOFF-MARTIN Anne-Sophie", "N0001"},
		{"LI Bo", "N0002"},
	})

	if _, ok := mergeColumns(table, []float64{100, 500}); ok {
		t.Fatal("outer borders alone merged every column")
	}
}

func TestColumnRulings(t *testing.T) {
	t.Parallel()

	table := &model.Table{BBox: model.BBox{X: 100, Y: 540, Width: 400, Height: 140}}
	got := columnRulings(table, []graphicsstate.ExtractedLine{
		segment(260, 540, 260, 680),
		segment(100, 540, 100, 680),
		segment(101, 540, 101, 680),
		segment(300, 100, 300, 200),
		segment(700, 540, 700, 680),
	})
	if !slices.Equal(got, []float64{100, 260}) {
		t.Fatalf("columnRulings() = %v, want [100 260]", got)
	}
}

func TestJoinFragments(t *testing.T) {
	t.Parallel()

	frag := func(s string, x, y, w float64) text.TextFragment {
		return text.TextFragment{Text: s, X: x, Y: y, Width: w, Height: 10, FontSize: 10}
	}

	got := joinFragments([]text.TextFragment{
		frag("MAR", 105, 600, 20),
		frag("TIN", 125, 600, 15),
		frag("Paul", 145, 600, 20),
		frag("Jean", 105, 588, 20),
	})
	if got != "MARTIN Paul Jean" {
		t.Fatalf("joinFragments() = %q", got)
	}
}
