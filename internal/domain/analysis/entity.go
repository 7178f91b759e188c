package analysis

import (
	"strings"
	"time"
)

// RecordID identifier type
type RecordID string

// RiskLevel enum
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ParseRiskLevel maps stored text back to the enum; anything unknown becomes LOW.
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case RiskHigh:
		return RiskHigh
	case RiskMedium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// HealthyKey sentinel disease key when nothing was detected
const HealthyKey = "healthy"

// UnknownSpecies dipakai kalau provider tidak kasih label species
const UnknownSpecies = "unknown"

// AnalysisResult is the canonical shape produced by Normalize.
// Nothing downstream of the normalizer touches the provider payload.
type AnalysisResult struct {
	Species           string
	SpeciesConfidence float64
	DiseaseKey        string
	DiseaseConfidence float64
	Symptoms          []string
}

// Healthy reports whether no disease was detected.
func (r AnalysisResult) Healthy() bool { return r.DiseaseKey == HealthyKey }

// Record is one persisted analysis. Immutable after Save.
type Record struct {
	ID                RecordID  `json:"id"`
	OwnerID           string    `json:"owner_id"`
	AnimalID          string    `json:"animal_id,omitempty"`
	ImagePath         string    `json:"image_path"`
	Species           string    `json:"species"`
	SpeciesConfidence float64   `json:"species_confidence"`
	DiseaseKey        string    `json:"disease_key"`
	DiseaseConfidence float64   `json:"disease_confidence"`
	RiskLevel         RiskLevel `json:"risk_level"`
	SummaryText       string    `json:"summary_text"`
	CreatedAt         time.Time `json:"created_at"`
}

// Animal is the read-only view of an animal profile owned by another subsystem.
type Animal struct {
	ID      string
	OwnerID string
	Name    string
	Species string
}

// Specialist suggestion from the external directory
type Specialist struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// SpecialistQuery parameter untuk SpecialistFinder
type SpecialistQuery struct {
	OwnerID    string
	Species    string
	DiseaseKey string
	Limit      int
}
