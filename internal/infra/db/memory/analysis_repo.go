// Package memory is a process-local history store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

type AnalysisRepository struct {
	mu   sync.RWMutex
	rows map[domain.RecordID]domain.Record
}

func NewAnalysisRepository() *AnalysisRepository {
	return &AnalysisRepository{rows: make(map[domain.RecordID]domain.Record)}
}

// Save is append-only; an existing id is an error.
func (r *AnalysisRepository) Save(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[rec.ID]; ok {
		return fmt.Errorf("analysis %s already exists", rec.ID)
	}
	r.rows[rec.ID] = *rec
	return nil
}

func (r *AnalysisRepository) ListByOwner(_ context.Context, owner string, page, pageSize int) ([]*domain.Record, error) {
	page, pageSize = domain.PageBounds(page, pageSize)

	r.mu.RLock()
	out := make([]*domain.Record, 0)
	for _, rec := range r.rows {
		if rec.OwnerID == owner {
			rec := rec
			out = append(out, &rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	start := (page - 1) * pageSize
	if start >= len(out) {
		return []*domain.Record{}, nil
	}
	end := start + pageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (r *AnalysisRepository) Get(_ context.Context, owner string, id domain.RecordID) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.rows[id]
	if !ok || rec.OwnerID != owner {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (r *AnalysisRepository) Delete(_ context.Context, owner string, id domain.RecordID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	if !ok || rec.OwnerID != owner {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}
