package pipeline

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shandysiswandi/gobordereau/internal/extraction/bordereau"
	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
)

type TableSource interface {
	Tables(ctx context.Context, data []byte) iter.Seq2[entity.RawTable, error]
	PageTexts(ctx context.Context, data []byte) ([]string, error)
}

// Document is one uploaded PDF.
type Document struct {
	ID       int64
	Index    int
	Filename string
	Name     string
	Data     []byte
}

// DocumentResult is the outcome of one document. Records is empty when Err
// is set.
type DocumentResult struct {
	Document Document
	Records  []entity.Record
	Tables   int
	Skipped  int
	Warnings []entity.Warning
	Coverage entity.Coverage
	Err      error
}

type Options struct {
	Workers int
	Policy  entity.UnclassifiedPolicy
}

// Processor runs documents through extraction and normalization.
type Processor struct {
	source     TableSource
	normalizer *bordereau.Normalizer
	workers    int
	policy     entity.UnclassifiedPolicy
}

func NewProcessor(source TableSource, normalizer *bordereau.Normalizer, opts Options) *Processor {
	policy, ok := entity.ParseUnclassifiedPolicy(string(opts.Policy))
	if !ok {
		policy = entity.UnclassifiedSkip
	}
	return &Processor{
		source:     source,
		normalizer: normalizer,
		workers:    max(opts.Workers, 1),
		policy:     policy,
	}
}

// Process extracts and normalizes one document.
func (p *Processor) Process(ctx context.Context, doc Document) DocumentResult {
	res := DocumentResult{Document: doc}
	res.Document.Data = nil

	for table, err := range p.source.Tables(ctx, doc.Data) {
		if err != nil {
			var extraction *entity.ExtractionError
			if errors.As(err, &extraction) && extraction.Document == "" {
				extraction.Document = doc.Name
			}
			return p.failed(ctx, res, err)
		}

		res.Tables++
		norm, err := p.normalizer.Normalize(table)
		if err != nil {
			var unclassified *entity.UnclassifiedTableError
			if !errors.As(err, &unclassified) || p.policy == entity.UnclassifiedAbort {
				return p.failed(ctx, res, err)
			}
			res.Skipped++
			res.Warnings = append(res.Warnings, entity.Warning{
				Page:    table.Page,
				Table:   table.Index,
				Message: "table matches no bordereau, skipped",
			})
			slog.WarnContext(ctx, "skipped unclassified table",
				"document", doc.Name, "page", table.Page, "table", table.Index, "header", unclassified.Header)
			continue
		}

		for _, rec := range norm.Records {
			rec.Document = doc.Name
			res.Records = append(res.Records, rec)
		}
	}

	res.Coverage = p.coverage(ctx, doc, &res)

	slog.InfoContext(ctx, "document processed",
		"document", doc.Name, "tables", res.Tables, "skipped", res.Skipped,
		"records", len(res.Records), "coverage", res.Coverage.Percentage)
	return res
}

func (p *Processor) failed(ctx context.Context, res DocumentResult, err error) DocumentResult {
	res.Records = nil
	res.Err = err
	slog.ErrorContext(ctx, "document failed", "document", res.Document.Name, "error", err)
	return res
}

// coverage lists the pages carrying a bordereau keyword or label.
func (p *Processor) coverage(ctx context.Context, doc Document, res *DocumentResult) entity.Coverage {
	texts, err := p.source.PageTexts(ctx, doc.Data)
	if err != nil {
		res.Warnings = append(res.Warnings, entity.Warning{Message: "page coverage unavailable: " + err.Error()})
		return entity.Coverage{}
	}

	rules := p.normalizer.Rules()
	found := make(map[entity.Category][]int)
	for i, text := range texts {
		for _, c := range rules.MatchText(text) {
			found[c] = append(found[c], i+1)
		}
	}
	return entity.NewCoverage(len(texts), found)
}

// ProcessAll processes docs with up to Workers documents in flight and calls
// commit for every result in the order of docs, whatever the completion
// order. It stops at the first commit error or when ctx is done.
func (p *Processor) ProcessAll(ctx context.Context, docs []Document, commit func(DocumentResult) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var (
		mu      sync.Mutex
		results = make([]DocumentResult, len(docs))
		ready   = make([]bool, len(docs))
		next    int
		stopped bool
	)

	for i := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := p.Process(gctx, docs[i])

			mu.Lock()
			defer mu.Unlock()
			results[i], ready[i] = res, true
			for !stopped && next < len(docs) && ready[next] {
				if err := commit(results[next]); err != nil {
					stopped = true
					return err
				}
				results[next] = DocumentResult{}
				next++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
