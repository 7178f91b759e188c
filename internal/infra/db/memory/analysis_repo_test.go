package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

func TestAnalysisRepositoryLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewAnalysisRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := &domain.Record{
			ID:        domain.RecordID(fmt.Sprintf("id-%d", i)),
			OwnerID:   "alice",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			RiskLevel: domain.RiskLow,
		}
		if err := repo.Save(ctx, rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := repo.Save(ctx, &domain.Record{ID: "id-0", OwnerID: "alice"}); err == nil {
		t.Fatalf("expected duplicate id to fail")
	}
	_ = repo.Save(ctx, &domain.Record{ID: "bob-1", OwnerID: "bob", CreatedAt: base})

	list, err := repo.ListByOwner(ctx, "alice", 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "id-4" || list[1].ID != "id-3" {
		t.Fatalf("unexpected first page: %+v", list)
	}
	list, _ = repo.ListByOwner(ctx, "alice", 3, 2)
	if len(list) != 1 || list[0].ID != "id-0" {
		t.Fatalf("unexpected last page: %+v", list)
	}
	list, _ = repo.ListByOwner(ctx, "alice", 9, 2)
	if len(list) != 0 {
		t.Fatalf("expected empty page, got %d", len(list))
	}

	if _, err := repo.Get(ctx, "bob", "id-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-owner get must be not found, got %v", err)
	}
	if err := repo.Delete(ctx, "bob", "id-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-owner delete must be not found, got %v", err)
	}
	if err := repo.Delete(ctx, "alice", "id-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "alice", "id-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete must be not found, got %v", err)
	}
}
