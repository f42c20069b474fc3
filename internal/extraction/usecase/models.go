package usecase

import (
	"slices"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
	"github.com/shandysiswandi/gobordereau/internal/extraction/export"
)

type StartResult struct {
	RunID     string
	Documents []entity.DocumentMeta
}

type RunResult struct {
	Run       entity.RunMeta
	Documents []entity.DocumentMeta
}

type RecordsResult struct {
	RunID    string
	Status   entity.RunStatus
	Records  []entity.Record
	Page     int
	PageSize int
	Total    int
}

// RecordQuery selects records by category and by document ID. Empty fields
// select everything.
type RecordQuery struct {
	Categories  []entity.Category
	DocumentIDs []int64
}

// RecordFilter is a RecordQuery resolved against the documents of a run.
type RecordFilter struct {
	Categories []entity.Category
	Documents  []string
}

func (f RecordFilter) Matches(r entity.Record) bool {
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, r.Category) {
		return false
	}

	if len(f.Documents) > 0 && !slices.Contains(f.Documents, r.Document) {
		return false
	}

	return true
}

// FileResult is a rendered export ready to be downloaded or written.
type FileResult struct {
	Name        string
	ContentType string
	Body        []byte
}

type ExportOptions struct {
	CSV export.CSVOptions
	// SheetPerCategory adds one worksheet per category after the global one
	// in XLSX exports of the whole run.
	SheetPerCategory bool
}
