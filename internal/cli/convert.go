package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/shandysiswandi/gobordereau/internal/app"
	"github.com/shandysiswandi/gobordereau/internal/extraction"
	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
	"github.com/shandysiswandi/gobordereau/internal/extraction/export"
	"github.com/shandysiswandi/gobordereau/internal/extraction/store"
	"github.com/shandysiswandi/gobordereau/internal/extraction/usecase"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkglog"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkguid"
)

const pollInterval = 100 * time.Millisecond

// ErrAllFailed is returned when no input document could be extracted.
var ErrAllFailed = errors.New("every document failed")

type convertOptions struct {
	out              string
	format           string
	perDocument      bool
	archive          bool
	workers          int
	bom              bool
	policy           string
	sheetPerCategory bool
}

func newConvertCommand(root *rootOptions) *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert [flags] file.pdf...",
		Short: "Extract bordereaux from local PDF files",
		Example: `  gobordereau convert --format xlsx --out exports csp-mars.pdf csp-avril.pdf
  gobordereau convert --per-document --archive --policy abort *.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, root, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.out, "out", "o", ".", "output directory")
	flags.StringVarP(&opts.format, "format", "f", "csv", "export format: csv or xlsx")
	flags.BoolVar(&opts.perDocument, "per-document", false, "also write one export per document")
	flags.BoolVar(&opts.archive, "archive", false, "also write a zip of the per-document exports")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "documents processed in parallel (default from config)")
	flags.BoolVar(&opts.bom, "bom", true, "prefix CSV output with a UTF-8 BOM")
	flags.StringVar(&opts.policy, "policy", "", "unclassified tables: skip or abort (default from config)")
	flags.BoolVar(&opts.sheetPerCategory, "sheet-per-category", false, "add one worksheet per category to the global XLSX")

	return cmd
}

func runConvert(cmd *cobra.Command, root *rootOptions, opts *convertOptions, paths []string) error {
	ctx := cmd.Context()
	stderr := &lockedWriter{w: cmd.ErrOrStderr()}
	stdout := cmd.OutOrStdout()

	pkglog.InitLogging(pkglog.Options{Writer: stderr, Level: slog.LevelWarn})

	cfg, err := pkgconfig.NewViper(app.ConfigPath(root.configPath),
		pkgconfig.WithDefaults(app.Defaults), pkgconfig.Optional(), pkgconfig.WithoutWatch())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer cfg.Close()

	format, ok := export.ParseFormat(opts.format)
	if !ok {
		return fmt.Errorf("invalid format %q, want csv or xlsx", opts.format)
	}

	processor, err := extraction.NewProcessor(cfg, extraction.PipelineOverrides{
		Workers: opts.workers,
		Policy:  opts.policy,
	})
	if err != nil {
		return err
	}

	uploads, err := readUploads(paths)
	if err != nil {
		return err
	}

	exportOpts := extraction.ExportOptions(cfg)
	if cmd.Flags().Changed("bom") {
		exportOpts.CSV.BOM = opts.bom
	}
	if cmd.Flags().Changed("sheet-per-category") {
		exportOpts.SheetPerCategory = opts.sheetPerCategory
	}

	runner := pkgroutine.NewManager(1)
	uc := usecase.New(usecase.Dependency{
		Store:     store.NewInMemoryStore(),
		Processor: processor,
		Runner:    runner,
		ID:        pkguid.NewUUID(),
		// documents of one command are numbered from 1 in argument order
		DocID:     &pkguid.Sequence{},
		RootCtx:   ctx,
		Export:    exportOpts,
	})

	started, err := uc.StartRun(ctx, uploads)
	if err != nil {
		return err
	}

	result, err := waitRun(ctx, uc, started.RunID, len(uploads), stderr)
	if werr := runner.Wait(); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return err
	}
	if result.Run.Status != entity.RunStatusDone {
		return fmt.Errorf("run %s: %s", result.Run.Status, result.Run.Err)
	}

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var written []string
	write := func(file usecase.FileResult) error {
		path := filepath.Join(opts.out, file.Name)
		if err := os.WriteFile(path, file.Body, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	global, err := uc.ExportGlobal(ctx, started.RunID, format)
	if err != nil {
		return err
	}
	if err := write(global); err != nil {
		return err
	}

	if opts.perDocument {
		for _, doc := range result.Documents {
			if doc.Status != entity.DocumentStatusDone {
				continue
			}
			file, err := uc.ExportDocument(ctx, started.RunID, doc.ID, format)
			if err != nil {
				return err
			}
			if err := write(file); err != nil {
				return err
			}
		}
	}

	if opts.archive {
		file, err := uc.Archive(ctx, started.RunID, format)
		if err != nil {
			return err
		}
		if err := write(file); err != nil {
			return err
		}
	}

	failed := printSummary(stdout, result.Documents, written)
	if failed == len(result.Documents) {
		return ErrAllFailed
	}

	return nil
}

// lockedWriter lets the run goroutine log while the progress bar renders.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func readUploads(paths []string) ([]entity.Upload, error) {
	uploads := make([]entity.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		uploads = append(uploads, entity.Upload{Filename: filepath.Base(p), Data: data})
	}
	return uploads, nil
}

// waitRun polls the run and renders its progress until it finishes.
func waitRun(ctx context.Context, uc *usecase.Usecase, runID string, total int, w io.Writer) (usecase.RunResult, error) {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
	defer func() { _ = bar.Finish() }()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		result, err := uc.Run(ctx, runID)
		if err != nil {
			return usecase.RunResult{}, err
		}

		_ = bar.Set(result.Run.Processed)
		if current := currentDocument(result); current != "" {
			bar.Describe("extracting " + current)
		}
		if result.Run.Status.Finished() {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return usecase.RunResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func currentDocument(r usecase.RunResult) string {
	for _, d := range r.Documents {
		if d.Index == r.Run.Current {
			return d.Name
		}
	}
	return ""
}

// printSummary lists every document with its outcome and returns how many
// failed.
func printSummary(w io.Writer, docs []entity.DocumentMeta, written []string) int {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	warn := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	failed := 0
	for _, d := range docs {
		if d.Status == entity.DocumentStatusFailed {
			failed++
			bad.Fprintf(w, "✗ %s: %s\n", d.Name, d.Err)
			continue
		}

		ok.Fprintf(w, "✓ %s: %d records from %d tables", d.Name, d.Records, d.Tables)
		fmt.Fprintf(w, ", coverage %s\n", d.Coverage.Summary())
		for _, c := range d.Coverage.Categories {
			faint.Fprintf(w, "    %s pages %v\n", c.Category.Code(), c.Ranges)
		}
		for _, wn := range d.Warnings {
			warn.Fprintf(w, "  ! %s\n", wn)
		}
	}

	for _, p := range written {
		fmt.Fprintf(w, "→ %s\n", p)
	}

	return failed
}
