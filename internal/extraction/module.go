package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gobordereau/internal/extraction/bordereau"
	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
	"github.com/shandysiswandi/gobordereau/internal/extraction/export"
	"github.com/shandysiswandi/gobordereau/internal/extraction/inbound"
	"github.com/shandysiswandi/gobordereau/internal/extraction/pdftable"
	"github.com/shandysiswandi/gobordereau/internal/extraction/pipeline"
	"github.com/shandysiswandi/gobordereau/internal/extraction/store"
	"github.com/shandysiswandi/gobordereau/internal/extraction/usecase"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkguid"
)

const (
	defaultRunTTL          = time.Hour
	defaultJanitorInterval = time.Minute
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	ID        pkguid.StringID
	DocID     pkguid.NumberID
}

func New(dep Dependency) (func(context.Context) error, error) {
	processor, err := NewProcessor(dep.Config, PipelineOverrides{})
	if err != nil {
		return nil, err
	}

	if dep.ID == nil {
		dep.ID = pkguid.NewUUID()
	}
	if dep.DocID == nil {
		snowflake, err := pkguid.NewSnowflake(-1)
		if err != nil {
			return nil, fmt.Errorf("document id generator: %w", err)
		}
		dep.DocID = snowflake
	}

	uc := usecase.New(usecase.Dependency{
		Store:     store.NewInMemoryStore(),
		Processor: processor,
		Runner:    dep.Goroutine,
		Clock:     nil,
		ID:        dep.ID,
		DocID:     dep.DocID,
		RootCtx:   dep.Context,
		Export:    ExportOptions(dep.Config),
		MaxFiles:  int(dep.Config.GetInt("server.max_files")),
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, inbound.HTTPConfig{
		MaxUploadBytes: dep.Config.GetInt("server.max_upload_bytes"),
	})

	ttl := durationOr(dep.Config.GetDuration("runs.ttl"), defaultRunTTL)
	interval := durationOr(dep.Config.GetDuration("runs.janitor_interval"), defaultJanitorInterval)
	dep.Goroutine.Go(dep.Context, func(ctx context.Context) error {
		janitor(ctx, uc, ttl, interval)
		return nil
	})

	return nil, nil
}

// janitor evicts expired runs until ctx is done.
func janitor(ctx context.Context, uc *usecase.Usecase, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "run janitor started", "ttl", ttl.String(), "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			uc.EvictExpired(ctx, ttl)
		}
	}
}

// PipelineOverrides replace configured pipeline values when set. The CLI
// fills it from flags.
type PipelineOverrides struct {
	Workers int
	Policy  string
}

// NewProcessor builds the extraction pipeline from the pipeline.* keys.
func NewProcessor(cfg pkgconfig.Config, over PipelineOverrides) (*pipeline.Processor, error) {
	rules, err := bordereau.DefaultRules()
	if err != nil {
		return nil, fmt.Errorf("load bordereau rules: %w", err)
	}

	raw := cfg.GetString("pipeline.unclassified_policy")
	if over.Policy != "" {
		raw = over.Policy
	}
	policy, ok := entity.ParseUnclassifiedPolicy(raw)
	if !ok {
		return nil, fmt.Errorf("invalid unclassified policy %q, want skip or abort", raw)
	}

	workers := int(cfg.GetInt("pipeline.workers"))
	if over.Workers > 0 {
		workers = over.Workers
	}

	extractor := pdftable.NewExtractor(pdftable.Config{
		MinRows:       int(cfg.GetInt("pipeline.detector.min_rows")),
		MinCols:       int(cfg.GetInt("pipeline.detector.min_cols")),
		MinConfidence: cfg.GetFloat("pipeline.detector.min_confidence"),
		TempDir:       cfg.GetString("pipeline.detector.temp_dir"),
	})

	return pipeline.NewProcessor(extractor, bordereau.NewNormalizer(rules), pipeline.Options{
		Workers: workers,
		Policy:  policy,
	}), nil
}

// ExportOptions reads the export.* keys.
func ExportOptions(cfg pkgconfig.Config) usecase.ExportOptions {
	return usecase.ExportOptions{
		CSV:              export.CSVOptions{BOM: cfg.GetBool("export.csv.bom")},
		SheetPerCategory: cfg.GetBool("export.xlsx.sheet_per_category"),
	}
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
