package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

const analysisColumns = `id, owner_id, animal_id, image_path, species, species_confidence,
       disease_key, disease_confidence, risk_level, summary_text, created_at`

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

var _ domain.Repository = (*AnalysisRepository)(nil)

// Save inserts a new record. Records are immutable, so there is no upsert.
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO skin_analyses
(id, owner_id, animal_id, image_path, species, species_confidence,
 disease_key, disease_confidence, risk_level, summary_text, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?);
`
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		string(a.ID), a.OwnerID, nullIfEmpty(a.AnimalID), a.ImagePath,
		a.Species, a.SpeciesConfidence,
		a.DiseaseKey, a.DiseaseConfidence, string(a.RiskLevel), a.SummaryText, created,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// ListByOwner returns newest first.
func (r *AnalysisRepository) ListByOwner(ctx context.Context, owner string, page, pageSize int) ([]*domain.Record, error) {
	limit, off := offset(page, pageSize)
	q := `
SELECT ` + analysisColumns + `
FROM skin_analyses
WHERE owner_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, owner, limit, off)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get by ID + owner
func (r *AnalysisRepository) Get(ctx context.Context, owner string, id domain.RecordID) (*domain.Record, error) {
	q := `
SELECT ` + analysisColumns + `
FROM skin_analyses
WHERE owner_id=? AND id=? LIMIT 1;
`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, owner, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

func (r *AnalysisRepository) Delete(ctx context.Context, owner string, id domain.RecordID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM skin_analyses WHERE owner_id=? AND id=?;`, owner, string(id))
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.Record, error) {
	var (
		a      domain.Record
		id     string
		animal sql.NullString
		risk   string
	)
	if err := s.Scan(
		&id, &a.OwnerID, &animal, &a.ImagePath, &a.Species, &a.SpeciesConfidence,
		&a.DiseaseKey, &a.DiseaseConfidence, &risk, &a.SummaryText, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.ID = domain.RecordID(id)
	a.AnimalID = animal.String
	a.RiskLevel = domain.ParseRiskLevel(risk)
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
