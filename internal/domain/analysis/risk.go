package analysis

// Risk tier boundaries on disease confidence.
const (
	HighThreshold   = 0.70
	MediumThreshold = 0.60
)

type messageKey struct {
	level         RiskLevel
	lowConfidence bool
}

// Wording is keyed by tier, never by disease, so new knowledge base
// entries don't change what users read.
var riskMessages = map[messageKey]string{
	{RiskLow, false}:    "No skin condition was detected. Keep monitoring your pet and consult a veterinarian if in doubt.",
	{RiskLow, true}:     "A possible skin condition was detected with low confidence. Please retake the photo in good light, close to the affected area, and consult a veterinarian if symptoms persist.",
	{RiskMedium, false}: "A skin condition is likely. Book a veterinary check-up in the next few days and watch for changes.",
	{RiskHigh, false}:   "A skin condition was detected with high confidence. Please see a veterinarian as soon as possible.",
	{RiskHigh, true}:    "An urgent skin condition may be present, although the photo is not conclusive. Please see a veterinarian as soon as possible and retake the photo for a clearer result.",
}

// Classify turns a disease detection into a risk tier and user message.
//
// Order matters: healthy short-circuits to LOW, confidence picks the
// provisional tier, and an urgent knowledge base entry forces HIGH.
func Classify(diseaseKey string, diseaseConfidence float64, urgent bool) (RiskLevel, string) {
	level, low := classify(diseaseKey, Clamp(diseaseConfidence), urgent)
	return level, riskMessages[messageKey{level, low}]
}

func classify(diseaseKey string, conf float64, urgent bool) (RiskLevel, bool) {
	if diseaseKey == HealthyKey {
		return RiskLow, false
	}

	level, low := RiskLow, true
	switch {
	case conf >= HighThreshold:
		level, low = RiskHigh, false
	case conf >= MediumThreshold:
		level, low = RiskMedium, false
	}

	if urgent {
		level = RiskHigh
	}
	return level, low
}
