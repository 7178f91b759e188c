package mysql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

var columns = []string{
	"id", "owner_id", "animal_id", "image_path", "species", "species_confidence",
	"disease_key", "disease_confidence", "risk_level", "summary_text", "created_at",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func TestSaveStoresNullAnimal(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewAnalysisRepository(db)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO skin_analyses")).
		WithArgs("r1", "alice", nil, "analysis/r1.jpg", "cat", 0.9,
			"ringworm", 0.8, "HIGH", "see a vet", created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), &domain.Record{
		ID: "r1", OwnerID: "alice", ImagePath: "analysis/r1.jpg",
		Species: "cat", SpeciesConfidence: 0.9,
		DiseaseKey: "ringworm", DiseaseConfidence: 0.8,
		RiskLevel: domain.RiskHigh, SummaryText: "see a vet", CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestListByOwnerPaginates(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewAnalysisRepository(db)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(columns).
		AddRow("r2", "alice", "a1", "analysis/r2.jpg", "dog", 0.95, "healthy", 0.9, "LOW", "ok", now).
		AddRow("r1", "alice", nil, "analysis/r1.jpg", "cat", 0.9, "scabies", 0.65, "weird", "hmm", now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WithArgs("alice", 10, 10).
		WillReturnRows(rows)

	list, err := repo.ListByOwner(context.Background(), "alice", 2, 10)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(list) != 2 || list[0].ID != "r2" || list[0].AnimalID != "a1" {
		t.Fatalf("unexpected rows %+v", list)
	}
	if list[1].AnimalID != "" || list[1].RiskLevel != domain.RiskLow {
		t.Fatalf("null animal or unknown risk not handled: %+v", list[1])
	}
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewAnalysisRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE owner_id=? AND id=?")).
		WithArgs("bob", "r1").
		WillReturnRows(sqlmock.NewRows(columns))

	if _, err := repo.Get(context.Background(), "bob", "r1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteChecksRowsAffected(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewAnalysisRepository(db)
	q := regexp.QuoteMeta("DELETE FROM skin_analyses WHERE owner_id=? AND id=?")
	mock.ExpectExec(q).WithArgs("alice", "r1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("alice", "r1").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "alice", "r1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := repo.Delete(context.Background(), "alice", "r1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnimalGet(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewAnimalRepository(db)
	q := regexp.QuoteMeta("SELECT id, owner_id, name, species FROM animals WHERE id=?")
	mock.ExpectQuery(q).WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "name", "species"}).AddRow("a1", "alice", "Tekir", "cat"))
	mock.ExpectQuery(q).WithArgs("zz").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "name", "species"}))

	a, err := repo.Get(context.Background(), "a1")
	if err != nil || a.OwnerID != "alice" || a.Name != "Tekir" {
		t.Fatalf("unexpected %+v, %v", a, err)
	}
	if _, err := repo.Get(context.Background(), "zz"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
