package consolidate

import (
	"slices"
	"sync"
	"testing"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
)

var (
	a3Columns = []string{entity.ColumnName, "NNI", "Emploi"}
	a9Columns = []string{entity.ColumnName, "NNI", "Objet"}
)

func record(c entity.Category, columns []string, values ...string) entity.Record {
	return entity.Record{Category: c, Page: 1, Columns: columns, Values: values}
}

func TestDatasetTwoDocuments(t *testing.T) {
	t.Parallel()

	d := NewDataset()
	d.Append("doc-a", record(entity.CategoryA3, a3Columns, "A", "1", "Technicien"))
	d.Append("doc-a", record(entity.CategoryA3, a3Columns, "B", "2", "Agent"))
	d.Append("doc-a", record(entity.CategoryA9, a9Columns, "C", "3", "Requête"))
	d.Append("doc-b", record(entity.CategoryA3, a3Columns, "D", "4", "Cadre"))
	d.Append("doc-b", record(entity.CategoryA9, a9Columns, "E", "5", "Recours"))

	sheet := d.Sheet()
	wantHeader := []string{entity.ColumnDocument, entity.ColumnCategory, entity.ColumnName, "NNI", "Emploi", "Objet"}
	if !slices.Equal(sheet.Header, wantHeader) {
		t.Fatalf("Header = %q, want %q", sheet.Header, wantHeader)
	}
	if len(sheet.Rows) != 5 {
		t.Fatalf("Rows len = %d, want 5", len(sheet.Rows))
	}

	wantFirst := []string{"doc-a", "Titularisations", "A", "1", "Technicien", ""}
	if !slices.Equal(sheet.Rows[0], wantFirst) {
		t.Fatalf("Rows[0] = %q, want %q", sheet.Rows[0], wantFirst)
	}
	wantLast := []string{"doc-b", "Requêtes individuelles", "E", "5", "", "Recours"}
	if !slices.Equal(sheet.Rows[4], wantLast) {
		t.Fatalf("Rows[4] = %q, want %q", sheet.Rows[4], wantLast)
	}

	perDoc := 0
	for _, name := range d.Documents() {
		s, ok := d.DocumentSheet(name)
		if !ok {
			t.Fatalf("DocumentSheet(%q) not found", name)
		}
		perDoc += len(s.Rows)
	}
	if perDoc != d.Len() {
		t.Fatalf("per-document rows = %d, global = %d", perDoc, d.Len())
	}
}

func TestDatasetHeaderOnlyDocument(t *testing.T) {
	t.Parallel()

	d := NewDataset()
	d.AddDocument("vide")
	d.AddDocument("vide")

	s, ok := d.DocumentSheet("vide")
	if !ok {
		t.Fatal("DocumentSheet(vide) not found")
	}
	if len(s.Rows) != 0 {
		t.Fatalf("Rows len = %d, want 0", len(s.Rows))
	}
	if !slices.Equal(s.Header, []string{entity.ColumnDocument, entity.ColumnCategory, entity.ColumnName}) {
		t.Fatalf("Header = %q", s.Header)
	}
	if got := d.Documents(); len(got) != 1 {
		t.Fatalf("Documents() = %v", got)
	}
	if _, ok := d.DocumentSheet("absent"); ok {
		t.Fatal("DocumentSheet(absent) found")
	}
}

func TestDatasetCategorySheets(t *testing.T) {
	t.Parallel()

	d := NewDataset()
	d.Append("doc", record(entity.CategoryA9, a9Columns, "C", "3", "Requête"))
	d.Append("doc", record(entity.CategoryA3, a3Columns, "A", "1", "Technicien"))

	sheets := d.CategorySheets()
	if len(sheets) != 2 {
		t.Fatalf("CategorySheets() len = %d, want 2", len(sheets))
	}
	if sheets[0].Name != "A3 Titularisations" || sheets[1].Name != "A9 Requêtes individuelles" {
		t.Fatalf("sheet names = %q, %q", sheets[0].Name, sheets[1].Name)
	}
	if slices.Contains(sheets[0].Header, "Objet") {
		t.Fatalf("A3 sheet has A9 columns: %q", sheets[0].Header)
	}
}

func TestDatasetConcurrentAppend(t *testing.T) {
	t.Parallel()

	d := NewDataset()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				d.Append("doc", record(entity.CategoryA3, a3Columns, "X", "1", "Y"))
				_ = d.Sheet()
			}
		}()
	}
	wg.Wait()

	if d.Len() != 400 {
		t.Fatalf("Len() = %d, want 400", d.Len())
	}
}
