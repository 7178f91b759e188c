package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

const uniqueViolation = "23505"

var analysisColumns = []string{
	"id", "owner_id", "animal_id", "image_path", "species", "species_confidence",
	"disease_key", "disease_confidence", "risk_level", "summary_text", "created_at",
}

type AnalysisRepository struct{ db *sql.DB }

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository { return &AnalysisRepository{db: db} }

var _ domain.Repository = (*AnalysisRepository)(nil)

func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	var animal sql.NullString
	if a.AnimalID != "" {
		animal = sql.NullString{String: a.AnimalID, Valid: true}
	}

	q, args, err := psql.Insert("skin_analyses").
		Columns(analysisColumns...).
		Values(string(a.ID), a.OwnerID, animal, a.ImagePath, a.Species, a.SpeciesConfidence,
			a.DiseaseKey, a.DiseaseConfidence, string(a.RiskLevel), a.SummaryText, created).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("analysis %s already exists: %w", a.ID, err)
		}
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) ListByOwner(ctx context.Context, owner string, page, pageSize int) ([]*domain.Record, error) {
	page, pageSize = domain.PageBounds(page, pageSize)
	q, args, err := psql.Select(analysisColumns...).
		From("skin_analyses").
		Where(sq.Eq{"owner_id": owner}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Record, 0, pageSize)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *AnalysisRepository) Get(ctx context.Context, owner string, id domain.RecordID) (*domain.Record, error) {
	q, args, err := psql.Select(analysisColumns...).
		From("skin_analyses").
		Where(sq.And{sq.Eq{"owner_id": owner}, sq.Eq{"id": string(id)}}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

func (r *AnalysisRepository) Delete(ctx context.Context, owner string, id domain.RecordID) error {
	q, args, err := psql.Delete("skin_analyses").
		Where(sq.And{sq.Eq{"owner_id": owner}, sq.Eq{"id": string(id)}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
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

func scanRecord(s sq.RowScanner) (*domain.Record, error) {
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
