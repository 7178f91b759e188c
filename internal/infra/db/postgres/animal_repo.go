package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

type AnimalRepository struct{ db *sql.DB }

func NewAnimalRepository(db *sql.DB) *AnimalRepository { return &AnimalRepository{db: db} }

var _ domain.AnimalDirectory = (*AnimalRepository)(nil)

func (r *AnimalRepository) Get(ctx context.Context, id string) (*domain.Animal, error) {
	q, args, err := psql.Select("id", "owner_id", "name", "species").
		From("animals").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var a domain.Animal
	err = r.db.QueryRowContext(ctx, q, args...).Scan(&a.ID, &a.OwnerID, &a.Name, &a.Species)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get animal: %w", err)
	}
	return &a, nil
}
