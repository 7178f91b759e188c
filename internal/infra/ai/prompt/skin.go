// Package prompt holds the instructions sent to vision chat models.
package prompt

import (
	"fmt"
	"strings"
)

// SystemPrompt pins the model to the JSON shape the normalizer understands.
func SystemPrompt(diseaseKeys []string) string {
	keys := "unknown"
	if len(diseaseKeys) > 0 {
		keys = strings.Join(diseaseKeys, ", ")
	}
	return fmt.Sprintf(`You are a veterinary dermatology assistant. Look at the photo of a pet and produce one valid JSON object only (no markdown, no commentary, no code fences).

Requirements:
- species is one of: cat, dog, unknown.
- Confidences are numbers between 0 and 1.
- skinDisease.label is "healthy" when no lesion is visible.
- Prefer one of these labels when it fits: %s. Otherwise use a short snake_case name.
- symptoms lists visible signs only (e.g. "hair loss", "redness", "scaling"). Keep items short.
- If the photo is not a pet or is too blurry, use species "unknown" and low confidences.

Schema:
{
  "species": "<cat|dog|unknown>",
  "speciesConfidence": 0.0,
  "skinDisease": {"label": "<string>", "confidence": 0.0},
  "symptoms": ["<string>"]
}`, keys)
}

// UserPrompt is the text part that accompanies the image.
func UserPrompt() string {
	return "Analyze the skin condition of the animal in this photo and respond with the JSON per schema."
}

// StripFences removes a ```json fence some models add despite instructions.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
