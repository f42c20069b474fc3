package entity

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Column names shared by every export.
const (
	ColumnDocument = "Document"
	ColumnCategory = "Catégorie"
	ColumnName     = "Nom & Prénom"
)

// Record is one normalized table row. Columns is the canonical schema of the
// category and is shared between records of that category; Values is
// aligned with it.
type Record struct {
	Document string
	Category Category
	Page     int
	Columns  []string
	Values   []string
}

// Get returns the value of column, or "" when the record has no such column.
func (r Record) Get(column string) string {
	switch column {
	case ColumnDocument:
		return r.Document
	case ColumnCategory:
		return r.Category.Label()
	}
	if i := slices.Index(r.Columns, column); i >= 0 && i < len(r.Values) {
		return r.Values[i]
	}
	return ""
}

// Warning is a non-fatal problem met while processing a document, such as a
// table that matched no category.
type Warning struct {
	Page    int
	Table   int
	Message string
}

func (w Warning) String() string {
	if w.Page == 0 {
		return w.Message
	}
	return fmt.Sprintf("page %d, table %d: %s", w.Page, w.Table+1, w.Message)
}

// PageRange is an inclusive range of 1-based page numbers.
type PageRange struct {
	From int
	To   int
}

func (r PageRange) String() string {
	return strconv.Itoa(r.From) + "-" + strconv.Itoa(r.To)
}

// GroupPages sorts pages, drops duplicates and merges consecutive numbers
// into ranges: [5 1 2 3 7] gives 1-3, 5-5, 7-7.
func GroupPages(pages []int) []PageRange {
	if len(pages) == 0 {
		return nil
	}

	sorted := slices.Clone(pages)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	ranges := []PageRange{{From: sorted[0], To: sorted[0]}}
	for _, p := range sorted[1:] {
		last := &ranges[len(ranges)-1]
		if p == last.To+1 {
			last.To = p
			continue
		}
		ranges = append(ranges, PageRange{From: p, To: p})
	}
	return ranges
}

// CategoryPages lists the pages on which a category heading was found.
type CategoryPages struct {
	Category Category
	Ranges   []PageRange
}

// Coverage describes how many pages of a document carry a known bordereau.
type Coverage struct {
	TotalPages       int
	ProcessedPages   []int
	UnprocessedPages []int
	Percentage       float64
	Categories       []CategoryPages
}

// NewCoverage builds the coverage of a document with total pages given the
// pages on which each category was found.
func NewCoverage(total int, found map[Category][]int) Coverage {
	processed := make(map[int]struct{})
	var categories []CategoryPages
	for _, c := range Categories() {
		pages := found[c]
		if len(pages) == 0 {
			continue
		}
		for _, p := range pages {
			if p >= 1 && p <= total {
				processed[p] = struct{}{}
			}
		}
		categories = append(categories, CategoryPages{Category: c, Ranges: GroupPages(pages)})
	}

	cov := Coverage{TotalPages: total, Categories: categories}
	for p := 1; p <= total; p++ {
		if _, ok := processed[p]; ok {
			cov.ProcessedPages = append(cov.ProcessedPages, p)
		} else {
			cov.UnprocessedPages = append(cov.UnprocessedPages, p)
		}
	}
	if total > 0 {
		pct := float64(len(cov.ProcessedPages)) / float64(total) * 100
		cov.Percentage = math.Round(pct*10) / 10
	}
	return cov
}

// Summary renders the coverage in one line, e.g. "3/4 pages (75.0%)".
func (c Coverage) Summary() string {
	return fmt.Sprintf("%d/%d pages (%.1f%%)", len(c.ProcessedPages), c.TotalPages, c.Percentage)
}
