package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

// AnimalRepository reads the animals table owned by the pet profile service.
type AnimalRepository struct {
	db *sql.DB
}

func NewAnimalRepository(db *sql.DB) *AnimalRepository {
	return &AnimalRepository{db: db}
}

var _ domain.AnimalDirectory = (*AnimalRepository)(nil)

func (r *AnimalRepository) Get(ctx context.Context, id string) (*domain.Animal, error) {
	const q = `SELECT id, owner_id, name, species FROM animals WHERE id=? LIMIT 1;`
	var a domain.Animal
	err := r.db.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.OwnerID, &a.Name, &a.Species)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get animal: %w", err)
	}
	return &a, nil
}
