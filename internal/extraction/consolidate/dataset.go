package consolidate

import (
	"slices"
	"sync"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
)

// Sheet is a tabular view of records: one header and rows aligned with it.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Dataset is the append-only collection of records of one run. It is safe
// for concurrent use.
type Dataset struct {
	mu        sync.RWMutex
	documents []string
	known     map[string]struct{}
	records   []entity.Record
}

func NewDataset() *Dataset {
	return &Dataset{known: make(map[string]struct{})}
}

// AddDocument registers a document so that it gets an export even without
// records. Registering twice is a no-op.
func (d *Dataset) AddDocument(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addDocument(name)
}

func (d *Dataset) addDocument(name string) {
	if _, ok := d.known[name]; ok {
		return
	}
	d.known[name] = struct{}{}
	d.documents = append(d.documents, name)
}

// Append adds rec as a record of document.
func (d *Dataset) Append(document string, rec entity.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addDocument(document)
	rec.Document = document
	d.records = append(d.records, rec)
}

func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Documents returns the registered documents in registration order.
func (d *Dataset) Documents() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.documents)
}

// Records returns a snapshot of the records in arrival order.
func (d *Dataset) Records() []entity.Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.records)
}

// Sheet returns every record under Document, Catégorie and the union of the
// category schemas in first-seen order.
func (d *Dataset) Sheet() Sheet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return buildSheet("", d.records)
}

// DocumentSheet returns the records of one document. A registered document
// without records gives a header-only sheet.
func (d *Dataset) DocumentSheet(name string) (Sheet, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.known[name]; !ok {
		return Sheet{}, false
	}

	var recs []entity.Record
	for _, r := range d.records {
		if r.Document == name {
			recs = append(recs, r)
		}
	}
	return buildSheet(name, recs), true
}

// CategorySheets returns one sheet per category present, in category order.
func (d *Dataset) CategorySheets() []Sheet {
	d.mu.RLock()
	defer d.mu.RUnlock()

	byCategory := make(map[entity.Category][]entity.Record)
	for _, r := range d.records {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	var sheets []Sheet
	for _, c := range entity.Categories() {
		if recs, ok := byCategory[c]; ok {
			sheets = append(sheets, buildSheet(c.Code()+" "+c.Label(), recs))
		}
	}
	return sheets
}

// Header returns the global header of records.
func Header(records []entity.Record) []string {
	header := []string{entity.ColumnDocument, entity.ColumnCategory, entity.ColumnName}
	seen := map[string]struct{}{entity.ColumnName: {}}
	for _, r := range records {
		for _, col := range r.Columns {
			if _, ok := seen[col]; ok {
				continue
			}
			seen[col] = struct{}{}
			header = append(header, col)
		}
	}
	return header
}

func buildSheet(name string, records []entity.Record) Sheet {
	header := Header(records)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = r.Get(col)
		}
		rows = append(rows, row)
	}
	return Sheet{Name: name, Header: header, Rows: rows}
}
