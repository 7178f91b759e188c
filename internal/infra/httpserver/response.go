package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	appanalysis "github.com/bryanwahyu/vetscan/internal/application/analysis"
	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
	"github.com/bryanwahyu/vetscan/internal/domain/knowledge"
)

type labelConfidence struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type summary struct {
	Animal     string           `json:"animal"`
	Disease    string           `json:"disease"`
	Confidence float64          `json:"confidence"`
	RiskLevel  domain.RiskLevel `json:"risk_level"`
	Message    string           `json:"message"`
}

type analysisResponse struct {
	Success     bool                  `json:"success"`
	ID          domain.RecordID       `json:"id"`
	ImageURL    string                `json:"image_url"`
	Species     labelConfidence       `json:"species"`
	Disease     *labelConfidence      `json:"disease"`
	Symptoms    []string              `json:"symptoms"`
	Summary     summary               `json:"summary"`
	Info        *knowledge.Definition `json:"info"`
	Specialists []domain.Specialist   `json:"specialists"`
	CreatedAt   time.Time             `json:"created_at"`
}

type recordResponse struct {
	ID        domain.RecordID       `json:"id"`
	AnimalID  string                `json:"animal_id,omitempty"`
	ImageURL  string                `json:"image_url"`
	Species   labelConfidence       `json:"species"`
	Disease   *labelConfidence      `json:"disease"`
	RiskLevel domain.RiskLevel      `json:"risk_level"`
	Message   string                `json:"message"`
	Info      *knowledge.Definition `json:"info,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

type listResponse struct {
	Success  bool             `json:"success"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []recordResponse `json:"items"`
}

func newAnalysisResponse(res *appanalysis.AnalyzeResult) analysisResponse {
	rec := res.Record
	symptoms := res.Result.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}

	animal := rec.Species
	if res.Animal != nil && res.Animal.Name != "" {
		animal = res.Animal.Name
	}
	diseaseName := rec.DiseaseKey
	if res.Info != nil && res.Info.Title != "" {
		diseaseName = res.Info.Title
	}

	return analysisResponse{
		Success:  true,
		ID:       rec.ID,
		ImageURL: res.ImageURL,
		Species:  labelConfidence{Name: rec.Species, Confidence: rec.SpeciesConfidence},
		Disease:  diseaseOf(rec),
		Symptoms: symptoms,
		Summary: summary{
			Animal:     animal,
			Disease:    diseaseName,
			Confidence: rec.DiseaseConfidence,
			RiskLevel:  rec.RiskLevel,
			Message:    res.Message,
		},
		Info:        res.Info,
		Specialists: res.Specialists,
		CreatedAt:   rec.CreatedAt,
	}
}

func (r *Router) newRecordResponse(req *http.Request, rec *domain.Record, withInfo bool) recordResponse {
	out := recordResponse{
		ID:        rec.ID,
		AnimalID:  rec.AnimalID,
		ImageURL:  absoluteURL(req, r.svc.ImageURL(rec.ImagePath)),
		Species:   labelConfidence{Name: rec.Species, Confidence: rec.SpeciesConfidence},
		Disease:   diseaseOf(rec),
		RiskLevel: rec.RiskLevel,
		Message:   rec.SummaryText,
		CreatedAt: rec.CreatedAt,
	}
	if withInfo {
		out.Info = r.svc.Lookup(rec.DiseaseKey)
	}
	return out
}

// absoluteURL prefixes a host-relative image URL with the serving host,
// used when no public base URL is configured.
func absoluteURL(req *http.Request, u string) string {
	if !strings.HasPrefix(u, "/") || strings.HasPrefix(u, "//") || req.Host == "" {
		return u
	}
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if p := req.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + req.Host + u
}

// diseaseOf is nil for healthy results.
func diseaseOf(rec *domain.Record) *labelConfidence {
	if rec.DiseaseKey == "" || rec.DiseaseKey == domain.HealthyKey {
		return nil
	}
	return &labelConfidence{Name: rec.DiseaseKey, Confidence: rec.DiseaseConfidence}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
