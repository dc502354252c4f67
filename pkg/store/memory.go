package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/seiji-watch/ingest-core/pkg/billmodel"
)

// MemoryStore is an in-process RecordStore, the default wiring for local
// development and tests (and for any deployment that doesn't set
// store.record_store_url). Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*billmodel.BillRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*billmodel.BillRecord)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*billmodel.BillRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter, max int) ([]*billmodel.BillRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*billmodel.BillRecord, 0)
	for _, id := range ids {
		rec := s.records[id]
		if !filter.Matches(rec) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, rec *billmodel.BillRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.BillID]; exists {
		return fmt.Errorf("create %q: already exists", rec.BillID)
	}
	cp := *rec
	s.records[rec.BillID] = &cp
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	cp := *rec
	if err := applyFields(&cp, fields); err != nil {
		return fmt.Errorf("update %q: %w", id, err)
	}
	s.records[id] = &cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("delete %q: %w", id, ErrNotFound)
	}
	delete(s.records, id)
	return nil
}

// applyFields sets the subset of BillRecord's scalar fields components are
// expected to patch (the validator, merge engine, and completion processor
// never touch identity fields). Unknown field names are rejected rather
// than silently ignored, matching spec.md §6's narrow update contract.
func applyFields(rec *billmodel.BillRecord, fields map[string]any) error {
	for k, v := range fields {
		switch k {
		case "title":
			rec.Title, _ = v.(string)
		case "outline":
			rec.Outline, _ = v.(string)
		case "background":
			rec.Background, _ = v.(string)
		case "expected_effects":
			rec.ExpectedEffects, _ = v.(string)
		case "status":
			s, _ := v.(billmodel.Status)
			rec.Status = s
		case "stage":
			s, _ := v.(billmodel.Stage)
			rec.Stage = s
		case "data_quality_score":
			f, _ := v.(float64)
			rec.DataQualityScore = f
		case "sponsoring_ministry":
			rec.SponsoringMinistry, _ = v.(string)
		case "category":
			c, _ := v.(billmodel.Category)
			rec.Category = c
		case "submitter_kind":
			k, _ := v.(billmodel.SubmitterKind)
			rec.SubmitterKind = k
		case "source_chambers":
			sc, _ := v.(billmodel.SourceChambers)
			rec.SourceChambers = sc
		default:
			return fmt.Errorf("unknown field %q", k)
		}
	}
	return nil
}
