package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shandysiswandi/gobordereau/internal/extraction/consolidate"
	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
	"github.com/shandysiswandi/gobordereau/internal/extraction/export"
	"github.com/shandysiswandi/gobordereau/internal/extraction/pipeline"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgerror"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkguid"
)

const globalSheetName = "Extraction globale"

type Store interface {
	CreateRun(ctx context.Context, meta entity.RunMeta, docs []entity.DocumentMeta) error
	UpdateRun(ctx context.Context, runID string, fn func(meta *entity.RunMeta)) error
	UpdateDocument(ctx context.Context, runID string, index int, fn func(doc *entity.DocumentMeta)) error
	GetRun(ctx context.Context, runID string) (entity.RunMeta, []entity.DocumentMeta, error)
	Dataset(ctx context.Context, runID string) (*consolidate.Dataset, entity.RunMeta, error)
	ListRecords(ctx context.Context, runID string, filter RecordFilter, page, pageSize int) ([]entity.Record, int, entity.RunMeta, error)
	DeleteRun(ctx context.Context, runID string) error
	Evict(ctx context.Context, before int64) []string
}

type Processor interface {
	ProcessAll(ctx context.Context, docs []pipeline.Document, commit func(pipeline.DocumentResult) error) error
}

type Runner interface {
	TryGo(ctx context.Context, f func(ctx context.Context) error) bool
}

type Clock interface {
	Now() time.Time
}

type Dependency struct {
	Store     Store
	Processor Processor
	Runner    Runner
	Clock     Clock
	ID        pkguid.StringID
	DocID     pkguid.NumberID
	RootCtx   context.Context
	Export    ExportOptions
	// MaxFiles caps the documents of one run. Zero means no limit.
	MaxFiles int
}

type Usecase struct {
	store     Store
	processor Processor
	runner    Runner
	clock     Clock
	id        pkguid.StringID
	docID     pkguid.NumberID
	rootCtx   context.Context
	export    ExportOptions
	maxFiles  int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func New(dep Dependency) *Usecase {
	root := dep.RootCtx
	if root == nil {
		root = context.Background()
	}

	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &Usecase{
		store:     dep.Store,
		processor: dep.Processor,
		runner:    dep.Runner,
		clock:     clock,
		id:        dep.ID,
		docID:     dep.DocID,
		rootCtx:   root,
		export:    dep.Export,
		maxFiles:  dep.MaxFiles,
		cancels:   make(map[string]context.CancelFunc),
	}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// StartRun registers the uploads as a new run and processes them in the
// background. The run starts IDLE; poll Run for progress.
func (u *Usecase) StartRun(ctx context.Context, uploads []entity.Upload) (StartResult, error) {
	if u.store == nil || u.processor == nil || u.runner == nil || u.id == nil || u.docID == nil {
		return StartResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	if len(uploads) == 0 {
		return StartResult{}, pkgerror.NewInvalidInput(errors.New("at least one PDF file is required"))
	}

	if u.maxFiles > 0 && len(uploads) > u.maxFiles {
		return StartResult{}, pkgerror.NewInvalidInput(fmt.Errorf("at most %d files per run", u.maxFiles))
	}

	runID := u.id.Generate()
	docs := make([]pipeline.Document, len(uploads))
	metas := make([]entity.DocumentMeta, len(uploads))
	used := make(map[string]struct{}, len(uploads))
	for i, up := range uploads {
		docs[i] = pipeline.Document{
			ID:       u.docID.Generate(),
			Index:    i,
			Filename: up.Filename,
			Name:     uniqueDocumentName(DocumentName(up.Filename), used),
			Data:     up.Data,
		}
		metas[i] = entity.DocumentMeta{
			ID:       docs[i].ID,
			Index:    i,
			Filename: up.Filename,
			Name:     docs[i].Name,
			Size:     len(up.Data),
			Status:   entity.DocumentStatusPending,
		}
	}

	if err := u.store.CreateRun(ctx, entity.RunMeta{
		ID:        runID,
		Status:    entity.RunStatusIdle,
		Current:   -1,
		Total:     len(docs),
		CreatedAt: u.clock.Now().Unix(),
	}, metas); err != nil {
		return StartResult{}, normalizeErr(err)
	}

	runCtx, cancel := context.WithCancel(u.rootCtx)
	u.track(runID, cancel)

	started := u.runner.TryGo(runCtx, func(ctx context.Context) error {
		defer u.untrack(runID)
		if err := u.processRun(ctx, runID, docs); err != nil {
			slog.ErrorContext(ctx, "run processing failed", "run_id", runID, "error", err)
			return err
		}
		return nil
	})
	if !started {
		u.untrack(runID)
		if err := u.store.DeleteRun(ctx, runID); err != nil {
			slog.WarnContext(ctx, "failed to discard refused run", "run_id", runID, "error", err)
		}
		return StartResult{}, pkgerror.NewBusiness("too many runs in progress, retry later", pkgerror.CodeUnavailable)
	}

	return StartResult{RunID: runID, Documents: metas}, nil
}

func (u *Usecase) Run(ctx context.Context, runID string) (RunResult, error) {
	if runID == "" {
		return RunResult{}, pkgerror.NewInvalidInput(errors.New("run_id is required"))
	}

	meta, docs, err := u.store.GetRun(ctx, runID)
	if err != nil {
		return RunResult{}, mapStoreErr(err)
	}

	return RunResult{Run: meta, Documents: docs}, nil
}

// Records previews the records accumulated so far. It can be called while
// the run is still processing.
func (u *Usecase) Records(ctx context.Context, runID string, query RecordQuery, page, pageSize int) (RecordsResult, error) {
	if runID == "" {
		return RecordsResult{}, pkgerror.NewInvalidInput(errors.New("run_id is required"))
	}

	if page < 1 || pageSize < 1 {
		return RecordsResult{}, pkgerror.NewInvalidInput(errors.New("invalid pagination"))
	}

	filter := RecordFilter{Categories: query.Categories}
	if len(query.DocumentIDs) > 0 {
		_, docs, err := u.store.GetRun(ctx, runID)
		if err != nil {
			return RecordsResult{}, mapStoreErr(err)
		}
		for _, id := range query.DocumentIDs {
			doc, ok := findDocument(docs, id)
			if !ok {
				return RecordsResult{}, pkgerror.NewNotFound("document not found")
			}
			filter.Documents = append(filter.Documents, doc.Name)
		}
	}

	records, total, meta, err := u.store.ListRecords(ctx, runID, filter, page, pageSize)
	if err != nil {
		return RecordsResult{}, mapStoreErr(err)
	}

	return RecordsResult{
		RunID:    runID,
		Status:   meta.Status,
		Records:  records,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

// ExportDocument renders the records of one document of a finished run.
// A document without records gives a header-only file.
func (u *Usecase) ExportDocument(ctx context.Context, runID string, documentID int64, f export.Format) (FileResult, error) {
	dataset, meta, err := u.finishedDataset(ctx, runID)
	if err != nil {
		return FileResult{}, err
	}

	_, docs, err := u.store.GetRun(ctx, runID)
	if err != nil {
		return FileResult{}, mapStoreErr(err)
	}

	doc, ok := findDocument(docs, documentID)
	if !ok {
		return FileResult{}, pkgerror.NewNotFound("document not found")
	}

	sheet, ok := dataset.DocumentSheet(doc.Name)
	if !ok {
		return FileResult{}, pkgerror.NewBusiness("document failed extraction: "+doc.Err, pkgerror.CodeConflict)
	}

	body, err := export.Render(f, u.renderOptions(), sheet)
	if err != nil {
		return FileResult{}, exportErr(doc.Name, f, err)
	}

	slog.InfoContext(ctx, "document exported", "run_id", meta.ID, "document", doc.Name, "format", f, "rows", len(sheet.Rows))

	return FileResult{
		Name:        export.DocumentFilename(doc.Name, f),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}

// ExportGlobal renders the consolidated dataset of a finished run.
func (u *Usecase) ExportGlobal(ctx context.Context, runID string, f export.Format) (FileResult, error) {
	dataset, meta, err := u.finishedDataset(ctx, runID)
	if err != nil {
		return FileResult{}, err
	}

	global := dataset.Sheet()
	global.Name = globalSheetName
	sheets := []consolidate.Sheet{global}
	if f == export.FormatXLSX && u.export.SheetPerCategory {
		sheets = append(sheets, dataset.CategorySheets()...)
	}

	body, err := export.Render(f, u.renderOptions(), sheets...)
	if err != nil {
		return FileResult{}, exportErr(globalSheetName, f, err)
	}

	slog.InfoContext(ctx, "run exported", "run_id", meta.ID, "format", f, "rows", len(global.Rows))

	return FileResult{
		Name:        export.GlobalFilename(time.Unix(meta.EndedAt, 0), f),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}

// Archive bundles the per-document exports of a finished run in upload
// order. Failed documents are left out.
func (u *Usecase) Archive(ctx context.Context, runID string, f export.Format) (FileResult, error) {
	dataset, meta, err := u.finishedDataset(ctx, runID)
	if err != nil {
		return FileResult{}, err
	}

	_, docs, err := u.store.GetRun(ctx, runID)
	if err != nil {
		return FileResult{}, mapStoreErr(err)
	}

	opts := u.renderOptions()
	entries := make([]export.Entry, 0, len(docs))
	for _, doc := range docs {
		sheet, ok := dataset.DocumentSheet(doc.Name)
		if !ok {
			continue
		}
		body, err := export.Render(f, opts, sheet)
		if err != nil {
			return FileResult{}, exportErr(doc.Name, f, err)
		}
		entries = append(entries, export.Entry{Name: export.DocumentFilename(doc.Name, f), Body: body})
	}

	ts := time.Unix(meta.EndedAt, 0)
	name := export.ArchiveFilename(ts, f)

	var buf bytes.Buffer
	if err := export.WriteArchive(&buf, entries, ts); err != nil {
		return FileResult{}, exportErr(name, f, err)
	}

	return FileResult{
		Name:        name,
		ContentType: "application/zip",
		Body:        buf.Bytes(),
	}, nil
}

// DeleteRun discards a run and its dataset, canceling it when still running.
func (u *Usecase) DeleteRun(ctx context.Context, runID string) error {
	if runID == "" {
		return pkgerror.NewInvalidInput(errors.New("run_id is required"))
	}

	u.mu.Lock()
	if cancel, ok := u.cancels[runID]; ok {
		cancel()
		delete(u.cancels, runID)
	}
	u.mu.Unlock()

	if err := u.store.DeleteRun(ctx, runID); err != nil {
		return mapStoreErr(err)
	}

	slog.InfoContext(ctx, "run deleted", "run_id", runID)
	return nil
}

// EvictExpired discards the finished runs that ended more than ttl ago.
func (u *Usecase) EvictExpired(ctx context.Context, ttl time.Duration) int {
	evicted := u.store.Evict(ctx, u.clock.Now().Add(-ttl).Unix())
	if len(evicted) > 0 {
		slog.InfoContext(ctx, "expired runs evicted", "count", len(evicted), "run_ids", evicted)
	}
	return len(evicted)
}

func (u *Usecase) Categories(ctx context.Context) ([]entity.Category, error) {
	return entity.Categories(), nil
}

func (u *Usecase) processRun(ctx context.Context, runID string, docs []pipeline.Document) error {
	startedAt := u.clock.Now().Unix()
	if err := u.store.UpdateRun(ctx, runID, func(meta *entity.RunMeta) {
		meta.Status = entity.RunStatusProcessing
		meta.StartedAt = startedAt
		meta.Current = 0
	}); err != nil {
		return err
	}
	if err := u.store.UpdateDocument(ctx, runID, 0, markProcessing); err != nil {
		return err
	}

	dataset, _, err := u.store.Dataset(ctx, runID)
	if err != nil {
		return err
	}

	err = u.processor.ProcessAll(ctx, docs, func(res pipeline.DocumentResult) error {
		return u.commit(ctx, runID, dataset, res, len(docs))
	})
	if err != nil {
		u.finish(ctx, runID, entity.RunStatusFailed, err)
		return err
	}

	if err := u.store.UpdateRun(ctx, runID, func(meta *entity.RunMeta) {
		meta.Status = entity.RunStatusAccumulating
		meta.Current = -1
	}); err != nil {
		return err
	}
	slog.InfoContext(ctx, "run accumulated", "run_id", runID,
		"documents", len(dataset.Documents()), "records", dataset.Len())

	u.finish(ctx, runID, entity.RunStatusDone, nil)
	return nil
}

// commit stores the outcome of one document. Results arrive in upload order.
func (u *Usecase) commit(ctx context.Context, runID string, dataset *consolidate.Dataset, res pipeline.DocumentResult, total int) error {
	doc := res.Document
	status := entity.DocumentStatusDone
	errMsg := ""
	if res.Err != nil {
		status = entity.DocumentStatusFailed
		errMsg = res.Err.Error()
	} else {
		dataset.AddDocument(doc.Name)
		for _, rec := range res.Records {
			dataset.Append(doc.Name, rec)
		}
	}

	if err := u.store.UpdateDocument(ctx, runID, doc.Index, func(meta *entity.DocumentMeta) {
		meta.Status = status
		meta.Err = errMsg
		meta.Tables = res.Tables
		meta.Skipped = res.Skipped
		meta.Records = len(res.Records)
		meta.Warnings = res.Warnings
		meta.Coverage = res.Coverage
	}); err != nil {
		return err
	}

	next := doc.Index + 1
	if next < total {
		if err := u.store.UpdateDocument(ctx, runID, next, markProcessing); err != nil {
			return err
		}
	} else {
		next = -1
	}

	return u.store.UpdateRun(ctx, runID, func(meta *entity.RunMeta) {
		meta.Processed++
		meta.Current = next
	})
}

func (u *Usecase) finish(ctx context.Context, runID string, status entity.RunStatus, cause error) {
	endedAt := u.clock.Now().Unix()
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}

	if err := u.store.UpdateRun(context.WithoutCancel(ctx), runID, func(meta *entity.RunMeta) {
		meta.Status = status
		meta.Err = errMsg
		meta.EndedAt = endedAt
		meta.Current = -1
	}); err != nil {
		slog.WarnContext(ctx, "failed to finish run", "run_id", runID, "status", status, "error", err)
		return
	}

	slog.InfoContext(ctx, "run finished", "run_id", runID, "status", status)
}

func (u *Usecase) finishedDataset(ctx context.Context, runID string) (*consolidate.Dataset, entity.RunMeta, error) {
	if runID == "" {
		return nil, entity.RunMeta{}, pkgerror.NewInvalidInput(errors.New("run_id is required"))
	}

	dataset, meta, err := u.store.Dataset(ctx, runID)
	if err != nil {
		return nil, entity.RunMeta{}, mapStoreErr(err)
	}

	switch meta.Status {
	case entity.RunStatusDone:
		return dataset, meta, nil
	case entity.RunStatusFailed:
		return nil, meta, pkgerror.NewBusiness("run failed: "+meta.Err, pkgerror.CodeConflict)
	default:
		return nil, meta, pkgerror.NewBusiness("run is still processing", pkgerror.CodeConflict)
	}
}

func (u *Usecase) renderOptions() export.Options {
	return export.Options{CSV: u.export.CSV}
}

func (u *Usecase) track(runID string, cancel context.CancelFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cancels[runID] = cancel
}

func (u *Usecase) untrack(runID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if cancel, ok := u.cancels[runID]; ok {
		cancel()
		delete(u.cancels, runID)
	}
}

func markProcessing(doc *entity.DocumentMeta) {
	doc.Status = entity.DocumentStatusProcessing
}

func findDocument(docs []entity.DocumentMeta, id int64) (entity.DocumentMeta, bool) {
	for _, d := range docs {
		if d.ID == id {
			return d, true
		}
	}
	return entity.DocumentMeta{}, false
}

// DocumentName is the upload file name without directory and extension.
func DocumentName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name := strings.TrimSpace(strings.TrimSuffix(base, path.Ext(base)))
	if name == "" || name == "." || name == "/" {
		return "document"
	}
	return name
}

func uniqueDocumentName(name string, used map[string]struct{}) string {
	candidate := name
	for n := 2; ; n++ {
		if _, ok := used[candidate]; !ok {
			used[candidate] = struct{}{}
			return candidate
		}
		candidate = name + "_" + strconv.Itoa(n)
	}
}

func exportErr(target string, f export.Format, err error) error {
	return pkgerror.NewServer(&entity.ExportError{Target: target, Format: string(f), Err: err})
}

func mapStoreErr(err error) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return pkgerror.NewBusiness("run not found", pkgerror.CodeNotFound)
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.NewServer(err)
}
