package inbound

import (
	"context"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
	"github.com/shandysiswandi/gobordereau/internal/extraction/export"
	"github.com/shandysiswandi/gobordereau/internal/extraction/usecase"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgrouter"
)

type uc interface {
	StartRun(ctx context.Context, uploads []entity.Upload) (usecase.StartResult, error)
	Run(ctx context.Context, runID string) (usecase.RunResult, error)
	Records(ctx context.Context, runID string, query usecase.RecordQuery, page, pageSize int) (usecase.RecordsResult, error)
	ExportDocument(ctx context.Context, runID string, documentID int64, f export.Format) (usecase.FileResult, error)
	ExportGlobal(ctx context.Context, runID string, f export.Format) (usecase.FileResult, error)
	Archive(ctx context.Context, runID string, f export.Format) (usecase.FileResult, error)
	DeleteRun(ctx context.Context, runID string) error
	Categories(ctx context.Context) ([]entity.Category, error)
}

// HTTPConfig bounds what a single request may upload.
type HTTPConfig struct {
	MaxUploadBytes int64
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc, cfg HTTPConfig) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/runs", end.StartRun, pkgrouter.LimitBody(cfg.MaxUploadBytes))
	r.GET("/runs/:run_id", end.Run)
	r.DELETE("/runs/:run_id", end.DeleteRun)
	r.GET("/runs/:run_id/records", end.Records) // ?category=&document=&page=&page_size=

	r.GET("/runs/:run_id/documents/:document_id/export", end.ExportDocument) // ?format=csv|xlsx
	r.GET("/runs/:run_id/export", end.ExportGlobal)                          // ?format=csv|xlsx
	r.GET("/runs/:run_id/archive", end.Archive)                              // ?format=csv|xlsx

	r.GET("/categories", end.Categories)
}
