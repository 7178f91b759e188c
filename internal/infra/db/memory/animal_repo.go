package memory

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

// AnimalDirectory is a fixed set of animals, seeded at startup.
type AnimalDirectory struct {
	mu      sync.RWMutex
	animals map[string]domain.Animal
}

func NewAnimalDirectory(animals ...domain.Animal) *AnimalDirectory {
	d := &AnimalDirectory{animals: make(map[string]domain.Animal, len(animals))}
	for _, a := range animals {
		d.animals[a.ID] = a
	}
	return d
}

func (d *AnimalDirectory) Get(_ context.Context, id string) (*domain.Animal, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.animals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}
