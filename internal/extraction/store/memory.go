package store

import (
	"context"
	"slices"
	"sync"

	"github.com/shandysiswandi/gobordereau/internal/extraction/consolidate"
	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
	"github.com/shandysiswandi/gobordereau/internal/extraction/usecase"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgerror"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*runRecord
}

type runRecord struct {
	mu      sync.RWMutex
	meta    entity.RunMeta
	docs    []entity.DocumentMeta
	dataset *consolidate.Dataset
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs: make(map[string]*runRecord),
	}
}

func (s *InMemoryStore) CreateRun(ctx context.Context, meta entity.RunMeta, docs []entity.DocumentMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[meta.ID]; exists {
		return pkgerror.NewBusiness("run already exists", pkgerror.CodeConflict)
	}

	s.runs[meta.ID] = &runRecord{
		meta:    meta,
		docs:    slices.Clone(docs),
		dataset: consolidate.NewDataset(),
	}

	return nil
}

func (s *InMemoryStore) UpdateRun(ctx context.Context, runID string, fn func(meta *entity.RunMeta)) error {
	rec, err := s.get(runID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	fn(&rec.meta)

	return nil
}

func (s *InMemoryStore) UpdateDocument(ctx context.Context, runID string, index int, fn func(doc *entity.DocumentMeta)) error {
	rec, err := s.get(runID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if index < 0 || index >= len(rec.docs) {
		return pkgerror.ErrNotFound
	}
	fn(&rec.docs[index])

	return nil
}

func (s *InMemoryStore) GetRun(ctx context.Context, runID string) (entity.RunMeta, []entity.DocumentMeta, error) {
	rec, err := s.get(runID)
	if err != nil {
		return entity.RunMeta{}, nil, err
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	docs := make([]entity.DocumentMeta, len(rec.docs))
	for i, d := range rec.docs {
		d.Warnings = slices.Clone(d.Warnings)
		docs[i] = d
	}

	return rec.meta, docs, nil
}

// Dataset returns the live dataset of a run. Appending to it is safe while
// other callers read.
func (s *InMemoryStore) Dataset(ctx context.Context, runID string) (*consolidate.Dataset, entity.RunMeta, error) {
	rec, err := s.get(runID)
	if err != nil {
		return nil, entity.RunMeta{}, err
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	return rec.dataset, rec.meta, nil
}

func (s *InMemoryStore) ListRecords(ctx context.Context, runID string, filter usecase.RecordFilter, page, pageSize int) ([]entity.Record, int, entity.RunMeta, error) {
	rec, err := s.get(runID)
	if err != nil {
		return nil, 0, entity.RunMeta{}, err
	}

	rec.mu.RLock()
	meta := rec.meta
	rec.mu.RUnlock()

	total := 0
	start := (page - 1) * pageSize
	end := start + pageSize
	items := make([]entity.Record, 0, pageSize)

	for _, r := range rec.dataset.Records() {
		if !filter.Matches(r) {
			continue
		}

		if total >= start && total < end {
			items = append(items, r)
		}
		total++
	}

	return items, total, meta, nil
}

func (s *InMemoryStore) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return pkgerror.ErrNotFound
	}
	delete(s.runs, runID)

	return nil
}

// Evict removes the finished runs that ended before the unix time before and
// returns their IDs. Runs still in progress are kept.
func (s *InMemoryStore) Evict(ctx context.Context, before int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, rec := range s.runs {
		rec.mu.RLock()
		expired := rec.meta.Status.Finished() && rec.meta.EndedAt < before
		rec.mu.RUnlock()

		if expired {
			delete(s.runs, id)
			evicted = append(evicted, id)
		}
	}
	slices.Sort(evicted)

	return evicted
}

func (s *InMemoryStore) get(runID string) (*runRecord, error) {
	s.mu.RLock()
	rec, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, pkgerror.ErrNotFound
	}

	return rec, nil
}
