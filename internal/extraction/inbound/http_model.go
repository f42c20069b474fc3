package inbound

import (
	"net/http"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
)

type Warning struct {
	Page    int    `json:"page,omitempty"`
	Table   int    `json:"table,omitempty"`
	Message string `json:"message"`
}

type CategoryPages struct {
	Code   string   `json:"code"`
	Label  string   `json:"label"`
	Ranges []string `json:"ranges"`
}

type Coverage struct {
	TotalPages       int             `json:"total_pages"`
	ProcessedPages   []int           `json:"processed_pages"`
	UnprocessedPages []int           `json:"unprocessed_pages"`
	Percentage       float64         `json:"percentage"`
	Categories       []CategoryPages `json:"categories"`
}

type Document struct {
	ID       int64                 `json:"id,string"`
	Index    int                   `json:"index"`
	Filename string                `json:"filename"`
	Name     string                `json:"name"`
	Size     int                   `json:"size"`
	Status   entity.DocumentStatus `json:"status"`
	Error    string                `json:"error,omitempty"`
	Tables   int                   `json:"tables"`
	Skipped  int                   `json:"skipped"`
	Records  int                   `json:"records"`
	Warnings []Warning             `json:"warnings"`
	Coverage Coverage              `json:"coverage"`
}

type Record struct {
	Document     string   `json:"document"`
	CategoryCode string   `json:"category_code"`
	Category     string   `json:"category"`
	Page         int      `json:"page"`
	Columns      []string `json:"columns"`
	Values       []string `json:"values"`
}

type Category struct {
	Code    string `json:"code"`
	Label   string `json:"label"`
	Keyword string `json:"keyword"`
}

type StartRunResponse struct {
	RunID     string     `json:"run_id"`
	Documents []Document `json:"documents"`
}

func (StartRunResponse) StatusCode() int {
	return http.StatusAccepted
}

func (StartRunResponse) Message() string {
	return "run accepted"
}

type RunResponse struct {
	RunID           string           `json:"run_id"`
	Status          entity.RunStatus `json:"status"`
	CurrentDocument string           `json:"current_document,omitempty"`
	Total           int              `json:"total"`
	Processed       int              `json:"processed"`
	Error           string           `json:"error,omitempty"`
	CreatedAt       int64            `json:"created_at"`
	StartedAt       int64            `json:"started_at,omitempty"`
	EndedAt         int64            `json:"ended_at,omitempty"`
	Documents       []Document       `json:"documents"`
}

type RecordsResponse struct {
	RunID    string           `json:"run_id"`
	Status   entity.RunStatus `json:"status"`
	Records  []Record         `json:"records"`
	page     int
	pageSize int
	total    int
}

func (r RecordsResponse) Meta() map[string]any {
	return map[string]any{
		"page":      r.page,
		"page_size": r.pageSize,
		"total":     r.total,
	}
}

type CategoriesResponse struct {
	Categories []Category `json:"categories"`
}

func toHTTPDocument(d entity.DocumentMeta) Document {
	warnings := make([]Warning, 0, len(d.Warnings))
	for _, w := range d.Warnings {
		warnings = append(warnings, Warning{Page: w.Page, Table: w.Table, Message: w.Message})
	}

	return Document{
		ID:       d.ID,
		Index:    d.Index,
		Filename: d.Filename,
		Name:     d.Name,
		Size:     d.Size,
		Status:   d.Status,
		Error:    d.Err,
		Tables:   d.Tables,
		Skipped:  d.Skipped,
		Records:  d.Records,
		Warnings: warnings,
		Coverage: toHTTPCoverage(d.Coverage),
	}
}

func toHTTPCoverage(c entity.Coverage) Coverage {
	out := Coverage{
		TotalPages:       c.TotalPages,
		ProcessedPages:   c.ProcessedPages,
		UnprocessedPages: c.UnprocessedPages,
		Percentage:       c.Percentage,
		Categories:       make([]CategoryPages, 0, len(c.Categories)),
	}
	for _, cp := range c.Categories {
		ranges := make([]string, 0, len(cp.Ranges))
		for _, r := range cp.Ranges {
			ranges = append(ranges, r.String())
		}
		out.Categories = append(out.Categories, CategoryPages{
			Code:   cp.Category.Code(),
			Label:  cp.Category.Label(),
			Ranges: ranges,
		})
	}
	return out
}

func toHTTPRecord(r entity.Record) Record {
	return Record{
		Document:     r.Document,
		CategoryCode: r.Category.Code(),
		Category:     r.Category.Label(),
		Page:         r.Page,
		Columns:      r.Columns,
		Values:       r.Values,
	}
}
