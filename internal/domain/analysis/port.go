package analysis

import "context"

// ProviderPayload is the raw decoded JSON object returned by the inference provider.
// Only Normalize is allowed to read it.
type ProviderPayload map[string]any

// Repository port (history persistence)
type Repository interface {
	Save(ctx context.Context, r *Record) error
	ListByOwner(ctx context.Context, owner string, page, pageSize int) ([]*Record, error)
	Get(ctx context.Context, owner string, id RecordID) (*Record, error)
	Delete(ctx context.Context, owner string, id RecordID) error
}

// ImageStore port for the analysis image files.
// Delete must treat a missing object as success.
type ImageStore interface {
	Save(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, relPath string) error
	URL(relPath string) string
}

// Inferrer port: one call to the external inference provider, no retry.
type Inferrer interface {
	Infer(ctx context.Context, image []byte, contentType string) (ProviderPayload, error)
}

// AnimalDirectory reads animal profiles; returns ErrNotFound when absent.
type AnimalDirectory interface {
	Get(ctx context.Context, id string) (*Animal, error)
}

// SpecialistFinder is a read-only suggestion source.
type SpecialistFinder interface {
	Suggest(ctx context.Context, q SpecialistQuery) ([]Specialist, error)
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageBounds clamps a 1-based page and its size to sane values.
func PageBounds(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
