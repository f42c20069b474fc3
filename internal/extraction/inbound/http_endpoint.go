package inbound

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
	"github.com/shandysiswandi/gobordereau/internal/extraction/export"
	"github.com/shandysiswandi/gobordereau/internal/extraction/usecase"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgerror"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgrouter"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) StartRun(ctx context.Context, r *http.Request) (any, error) {
	uploads, err := h.readUploads(r)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.StartRun(ctx, uploads)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(result.Documents))
	for _, d := range result.Documents {
		docs = append(docs, toHTTPDocument(d))
	}

	return StartRunResponse{RunID: result.RunID, Documents: docs}, nil
}

func (h *HTTPEndpoint) Run(ctx context.Context, r *http.Request) (any, error) {
	result, err := h.uc.Run(ctx, runID(ctx))
	if err != nil {
		return nil, err
	}

	resp := RunResponse{
		RunID:     result.Run.ID,
		Status:    result.Run.Status,
		Total:     result.Run.Total,
		Processed: result.Run.Processed,
		Error:     result.Run.Err,
		CreatedAt: result.Run.CreatedAt,
		StartedAt: result.Run.StartedAt,
		EndedAt:   result.Run.EndedAt,
		Documents: make([]Document, 0, len(result.Documents)),
	}
	for _, d := range result.Documents {
		if d.Index == result.Run.Current {
			resp.CurrentDocument = d.Name
		}
		resp.Documents = append(resp.Documents, toHTTPDocument(d))
	}

	return resp, nil
}

func (h *HTTPEndpoint) Records(ctx context.Context, r *http.Request) (any, error) {
	query := r.URL.Query()

	page, pageSize, err := parsePagination(query.Get("page"), query.Get("page_size"))
	if err != nil {
		return nil, err
	}

	recordQuery, err := parseRecordQuery(query.Get("category"), query.Get("document"))
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Records(ctx, runID(ctx), recordQuery, page, pageSize)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(result.Records))
	for _, rec := range result.Records {
		records = append(records, toHTTPRecord(rec))
	}

	return RecordsResponse{
		RunID:    result.RunID,
		Status:   result.Status,
		Records:  records,
		page:     result.Page,
		pageSize: result.PageSize,
		total:    result.Total,
	}, nil
}

func (h *HTTPEndpoint) ExportDocument(ctx context.Context, r *http.Request) (any, error) {
	f, err := parseFormat(r.URL.Query().Get("format"))
	if err != nil {
		return nil, err
	}

	documentID, err := pkgrouter.Int64Param(ctx, "document_id")
	if err != nil {
		return nil, err
	}

	file, err := h.uc.ExportDocument(ctx, runID(ctx), documentID, f)
	if err != nil {
		return nil, err
	}

	return toHTTPFile(file), nil
}

func (h *HTTPEndpoint) ExportGlobal(ctx context.Context, r *http.Request) (any, error) {
	f, err := parseFormat(r.URL.Query().Get("format"))
	if err != nil {
		return nil, err
	}

	file, err := h.uc.ExportGlobal(ctx, runID(ctx), f)
	if err != nil {
		return nil, err
	}

	return toHTTPFile(file), nil
}

func (h *HTTPEndpoint) Archive(ctx context.Context, r *http.Request) (any, error) {
	f, err := parseFormat(r.URL.Query().Get("format"))
	if err != nil {
		return nil, err
	}

	file, err := h.uc.Archive(ctx, runID(ctx), f)
	if err != nil {
		return nil, err
	}

	return toHTTPFile(file), nil
}

func (h *HTTPEndpoint) DeleteRun(ctx context.Context, r *http.Request) (any, error) {
	if err := h.uc.DeleteRun(ctx, runID(ctx)); err != nil {
		return nil, err
	}

	return nil, nil
}

func (h *HTTPEndpoint) Categories(ctx context.Context, r *http.Request) (any, error) {
	categories, err := h.uc.Categories(ctx)
	if err != nil {
		return nil, err
	}

	resp := CategoriesResponse{Categories: make([]Category, 0, len(categories))}
	for _, c := range categories {
		resp.Categories = append(resp.Categories, Category{Code: c.Code(), Label: c.Label(), Keyword: c.Keyword()})
	}

	return resp, nil
}

func runID(ctx context.Context) string {
	return pkgrouter.Param(ctx, "run_id")
}

func parsePagination(pageRaw, sizeRaw string) (int, int, error) {
	page := 1
	pageSize := 10

	if pageRaw != "" {
		value, err := strconv.Atoi(pageRaw)
		if err != nil || value < 1 {
			return 0, 0, pkgerror.NewInvalidInput(errors.New("invalid page"))
		}
		page = value
	}

	if sizeRaw != "" {
		value, err := strconv.Atoi(sizeRaw)
		if err != nil || value < 1 {
			return 0, 0, pkgerror.NewInvalidInput(errors.New("invalid page_size"))
		}
		pageSize = min(value, 100)
	}

	return page, pageSize, nil
}

// parseRecordQuery reads comma separated category codes ("A3,A7 bis") and
// document IDs.
func parseRecordQuery(categoryRaw, documentRaw string) (usecase.RecordQuery, error) {
	query := usecase.RecordQuery{}

	for _, value := range splitList(categoryRaw) {
		c, ok := entity.ParseCategory(value)
		if !ok {
			return query, pkgerror.NewInvalidInput(errors.New("invalid category filter"))
		}
		query.Categories = append(query.Categories, c)
	}

	for _, value := range splitList(documentRaw) {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return query, pkgerror.NewInvalidInput(errors.New("invalid document filter"))
		}
		query.DocumentIDs = append(query.DocumentIDs, id)
	}

	return query, nil
}

func splitList(raw string) []string {
	var out []string
	for _, value := range strings.Split(raw, ",") {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func parseFormat(raw string) (export.Format, error) {
	f, ok := export.ParseFormat(raw)
	if !ok {
		return "", pkgerror.NewInvalidInput(errors.New("format must be csv or xlsx"))
	}
	return f, nil
}

// readUploads reads every "files" (or "file") part of a multipart body.
func (h *HTTPEndpoint) readUploads(r *http.Request) ([]entity.Upload, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, pkgerror.NewInvalidFormat()
	}

	var uploads []entity.Upload
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, h.bodyErr(err)
		}

		name := part.FormName()
		if name != "files" && name != "file" {
			_ = part.Close()
			continue
		}

		filename := part.FileName()
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, h.bodyErr(err)
		}

		uploads = append(uploads, entity.Upload{Filename: filename, Data: data})
	}

	if len(uploads) == 0 {
		return nil, pkgerror.NewInvalidInput(errors.New("files part is required"))
	}

	return uploads, nil
}

func (h *HTTPEndpoint) bodyErr(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerror.NewTooLarge(tooLarge.Limit)
	}
	return pkgerror.NewInvalidFormat()
}

func toHTTPFile(f usecase.FileResult) pkgrouter.File {
	return pkgrouter.File{Name: f.Name, ContentType: f.ContentType, Body: f.Body}
}
