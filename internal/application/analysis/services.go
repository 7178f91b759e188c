package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/vetscan/internal/application"
	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
	"github.com/bryanwahyu/vetscan/internal/domain/knowledge"
)

const (
	defaultMaxImageBytes   = 10 << 20
	defaultSpecialistLimit = 3
)

// Recorder receives business metrics. Nil is allowed.
type Recorder interface {
	AnalysisCompleted(level domain.RiskLevel)
	InferenceFailed(kind domain.InferenceErrorKind)
	InferenceDuration(d time.Duration)
}

// Service implements the analysis use-cases.
// Safe for concurrent use; it holds no per-request state.
type Service struct {
	Repo        domain.Repository
	Images      domain.ImageStore
	Inference   domain.Inferrer
	Animals     domain.AnimalDirectory
	Specialists domain.SpecialistFinder
	Knowledge   *knowledge.Base
	Clock       application.Clock
	Metrics     Recorder
	Log         *slog.Logger

	MaxImageBytes   int64
	SpecialistLimit int
}

// AnalyzeCommand is one uploaded photo.
type AnalyzeCommand struct {
	OwnerID     string
	AnimalID    string
	Image       []byte
	ContentType string
}

// AnalyzeResult is everything the transport layer needs to build a response.
type AnalyzeResult struct {
	Record      *domain.Record
	Result      domain.AnalysisResult
	Message     string
	Info        *knowledge.Definition
	Animal      *domain.Animal
	Specialists []domain.Specialist
	ImageURL    string
}

// Analyze validates the upload, stores the image, calls the provider,
// classifies the result and records it.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*AnalyzeResult, error) {
	if strings.TrimSpace(cmd.OwnerID) == "" {
		return nil, domain.Invalid("owner is required")
	}
	contentType, err := s.validateImage(cmd.Image, cmd.ContentType)
	if err != nil {
		return nil, err
	}

	var animal *domain.Animal
	if cmd.AnimalID != "" {
		if animal, err = s.ownedAnimal(ctx, cmd.OwnerID, cmd.AnimalID); err != nil {
			return nil, err
		}
	}

	// simpan dulu gambarnya, kalau provider gagal file tetap ada untuk diagnosa
	imagePath, err := s.Images.Save(ctx, cmd.Image, contentType)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	log := s.logger().With("owner", cmd.OwnerID, "image", imagePath)

	payload, err := s.infer(ctx, cmd.Image, contentType)
	if err != nil {
		if !domain.IsInferenceKind(err, domain.KindMalformed) {
			log.Error("inference failed", "err", err)
			return nil, err
		}
		log.Warn("inference payload unreadable, continuing with defaults", "err", err)
		payload = nil
	}

	result := domain.Normalize(payload)
	diseaseKey := result.DiseaseKey
	var info *knowledge.Definition
	if !result.Healthy() {
		info = s.Knowledge.Lookup(diseaseKey)
		if info != nil {
			diseaseKey = info.Key
		} else {
			diseaseKey = knowledge.NormalizeKey(diseaseKey)
		}
	}
	level, message := domain.Classify(diseaseKey, result.DiseaseConfidence, info != nil && info.Urgent)

	rec := &domain.Record{
		ID:                domain.RecordID(uuid.NewString()),
		OwnerID:           cmd.OwnerID,
		AnimalID:          cmd.AnimalID,
		ImagePath:         imagePath,
		Species:           result.Species,
		SpeciesConfidence: domain.Clamp(result.SpeciesConfidence),
		DiseaseKey:        diseaseKey,
		DiseaseConfidence: domain.Clamp(result.DiseaseConfidence),
		RiskLevel:         level,
		SummaryText:       message,
		CreatedAt:         s.now(),
	}
	if err := s.Repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	if s.Metrics != nil {
		s.Metrics.AnalysisCompleted(level)
	}
	log.Info("analysis recorded", "id", rec.ID, "species", rec.Species, "disease", rec.DiseaseKey, "risk", rec.RiskLevel)

	return &AnalyzeResult{
		Record:      rec,
		Result:      result,
		Message:     message,
		Info:        info,
		Animal:      animal,
		Specialists: s.suggest(ctx, rec),
		ImageURL:    s.Images.URL(imagePath),
	}, nil
}

// List returns the owner's analyses, newest first.
func (s *Service) List(ctx context.Context, owner string, page, pageSize int) ([]*domain.Record, error) {
	return s.Repo.ListByOwner(ctx, owner, page, pageSize)
}

// Get returns one analysis if it belongs to owner.
func (s *Service) Get(ctx context.Context, owner string, id domain.RecordID) (*domain.Record, error) {
	return s.Repo.Get(ctx, owner, id)
}

// Delete removes the row and then the image. A failing file delete is
// logged only; the row is already gone and must stay gone.
func (s *Service) Delete(ctx context.Context, owner string, id domain.RecordID) error {
	rec, err := s.Repo.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, owner, id); err != nil {
		return err
	}
	if err := s.Images.Delete(ctx, rec.ImagePath); err != nil {
		s.logger().Warn("image delete failed after record delete", "id", id, "image", rec.ImagePath, "err", err)
	}
	return nil
}

// ImageURL derives the public URL of a stored image.
func (s *Service) ImageURL(relPath string) string {
	return s.Images.URL(relPath)
}

// Lookup exposes the knowledge base for history views.
func (s *Service) Lookup(diseaseKey string) *knowledge.Definition {
	if diseaseKey == domain.HealthyKey {
		return nil
	}
	return s.Knowledge.Lookup(diseaseKey)
}

func (s *Service) validateImage(image []byte, declared string) (string, error) {
	if len(image) == 0 {
		return "", domain.Invalid("image file is required")
	}
	limit := s.MaxImageBytes
	if limit <= 0 {
		limit = defaultMaxImageBytes
	}
	if int64(len(image)) > limit {
		return "", domain.Invalid("image exceeds %d bytes", limit)
	}

	ct := ""
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			ct = strings.ToLower(mt)
		}
	}
	if ct == "" || ct == "application/octet-stream" {
		ct, _, _ = mime.ParseMediaType(http.DetectContentType(image))
	}
	if !strings.HasPrefix(ct, "image/") {
		return "", domain.Invalid("unsupported content type %q", ct)
	}
	return ct, nil
}

// ownedAnimal answers ErrForbidden for both "missing" and "not yours".
func (s *Service) ownedAnimal(ctx context.Context, owner, animalID string) (*domain.Animal, error) {
	if s.Animals == nil {
		return nil, domain.ErrForbidden
	}
	a, err := s.Animals.Get(ctx, animalID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("lookup animal: %w", err)
	}
	if a == nil || a.OwnerID != owner {
		return nil, domain.ErrForbidden
	}
	return a, nil
}

func (s *Service) infer(ctx context.Context, image []byte, contentType string) (domain.ProviderPayload, error) {
	start := time.Now()
	payload, err := s.Inference.Infer(ctx, image, contentType)
	if s.Metrics != nil {
		s.Metrics.InferenceDuration(time.Since(start))
		var ie *domain.InferenceError
		if errors.As(err, &ie) {
			s.Metrics.InferenceFailed(ie.Kind)
		}
	}
	return payload, err
}

// suggest never fails the analysis; errors degrade to an empty list.
func (s *Service) suggest(ctx context.Context, rec *domain.Record) []domain.Specialist {
	if s.Specialists == nil {
		return []domain.Specialist{}
	}
	limit := s.SpecialistLimit
	if limit <= 0 {
		limit = defaultSpecialistLimit
	}
	list, err := s.Specialists.Suggest(ctx, domain.SpecialistQuery{
		OwnerID:    rec.OwnerID,
		Species:    rec.Species,
		DiseaseKey: rec.DiseaseKey,
		Limit:      limit,
	})
	if err != nil {
		s.logger().Warn("specialist suggestions unavailable", "id", rec.ID, "err", err)
		return []domain.Specialist{}
	}
	if len(list) > limit {
		list = list[:limit]
	}
	if list == nil {
		list = []domain.Specialist{}
	}
	return list
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
