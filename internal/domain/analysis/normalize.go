package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Column widths of the history tables; longer labels are cut.
const (
	MaxSpeciesLen    = 32
	MaxDiseaseKeyLen = 128
)

// Field name variants seen across provider releases.
var (
	wrapperKeys = []string{"result", "data", "prediction", "output"}

	speciesKeys     = []string{"species", "animal", "animal_type", "animalType"}
	speciesConfKeys = []string{"speciesConfidence", "species_confidence", "speciesConf", "animal_confidence", "animalConfidence"}

	diseaseObjKeys  = []string{"skinDisease", "skin_disease", "skinCondition", "skin_condition", "disease"}
	diseaseNameKeys = []string{"disease", "label", "name", "class", "diagnosis"}
	diseaseTopKeys  = []string{"diseaseName", "disease_name", "diagnosis"}
	diseaseConfKeys = []string{"diseaseConfidence", "disease_confidence", "confidence"}

	labelKeys = []string{"label", "name", "species", "class"}
	confKeys  = []string{"confidence", "score", "probability"}

	nestedDiseaseConfKeys = []string{"confidence", "score", "probability", "diseaseConfidence", "disease_confidence"}
)

// labels the provider uses to say "nothing found", in NormalizeKey form
var healthyLabels = map[string]bool{
	HealthyKey:   true,
	"none":       true,
	"normal":     true,
	"no_disease": true,
}

// Normalize maps whatever the provider returned into an AnalysisResult.
// It never fails: missing or garbage fields fall back to unknown/healthy/0.
func Normalize(p ProviderPayload) AnalysisResult {
	root := unwrap(map[string]any(p))
	disease, diseaseLabel := diseaseNode(root)

	var res AnalysisResult

	// species: top level string or object, then the copy inside the disease object
	var speciesConf float64
	var speciesConfOK bool
	for _, k := range speciesKeys {
		switch v := root[k].(type) {
		case string:
			res.Species = v
		case map[string]any:
			res.Species = firstString(v, labelKeys...)
			speciesConf, speciesConfOK = firstNumber(v, confKeys...)
		}
		if strings.TrimSpace(res.Species) != "" {
			break
		}
	}
	if strings.TrimSpace(res.Species) == "" && disease != nil {
		res.Species = firstString(disease, speciesKeys...)
	}
	if c, ok := firstNumber(root, speciesConfKeys...); ok {
		speciesConf, speciesConfOK = c, true
	}
	if !speciesConfOK && disease != nil {
		speciesConf, _ = firstNumber(disease, speciesConfKeys...)
	}
	res.Species = truncate(normalizeLabel(res.Species), MaxSpeciesLen)
	if res.Species == "" {
		res.Species = UnknownSpecies
	}
	res.SpeciesConfidence = Clamp(speciesConf)

	// disease label + confidence; confidence may be nested or a top level sibling
	if diseaseLabel == "" {
		diseaseLabel = firstString(root, diseaseTopKeys...)
	}
	var diseaseConf float64
	var diseaseConfOK bool
	if disease != nil {
		diseaseConf, diseaseConfOK = firstNumber(disease, nestedDiseaseConfKeys...)
	}
	if !diseaseConfOK {
		diseaseConf, _ = firstNumber(root, diseaseConfKeys...)
	}
	res.DiseaseKey = strings.TrimRight(truncate(NormalizeKey(diseaseLabel), MaxDiseaseKeyLen), "_")
	if res.DiseaseKey == "" || healthyLabels[res.DiseaseKey] {
		res.DiseaseKey = HealthyKey
	}
	res.DiseaseConfidence = Clamp(diseaseConf)

	res.Symptoms = mergeSymptoms(root["symptoms"], nodeValue(disease, "symptoms"))
	return res
}

// Clamp forces a confidence into [0,1]; NaN and infinities become 0.
func Clamp(c float64) float64 {
	switch {
	case math.IsNaN(c), math.IsInf(c, 0):
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// unwrap descends through envelope objects until species/disease fields show up.
func unwrap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	for depth := 0; depth < 3; depth++ {
		if hasAny(m, speciesKeys...) || hasAny(m, diseaseObjKeys...) || hasAny(m, diseaseTopKeys...) {
			return m
		}
		next := firstMap(m, wrapperKeys...)
		if next == nil {
			return m
		}
		m = next
	}
	return m
}

// diseaseNode returns the disease sub-object (if any) and its label.
func diseaseNode(root map[string]any) (map[string]any, string) {
	for _, k := range diseaseObjKeys {
		switch v := root[k].(type) {
		case map[string]any:
			return v, firstString(v, diseaseNameKeys...)
		case string:
			if strings.TrimSpace(v) != "" {
				return nil, v
			}
		}
	}
	return nil, ""
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeKey trims, lower-cases and joins words with underscores.
// Whitespace, hyphen and underscore runs all count as one separator.
func NormalizeKey(raw string) string {
	words := strings.FieldsFunc(normalizeLabel(raw), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
	return strings.Join(words, "_")
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.TrimSpace(s[:n])
}

func hasAny(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return true
		}
	}
	return false
}

func firstMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}

func nodeValue(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

// toFloat accepts JSON numbers and numeric strings ("0.72", "72%").
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		s := strings.TrimSpace(n)
		pct := strings.HasSuffix(s, "%")
		s = strings.TrimSuffix(s, "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		if pct {
			f /= 100
		}
		return finite(f)
	default:
		return 0, false
	}
}

// NaN and infinities count as "not found" so the next key is tried.
func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// mergeSymptoms joins symptom lists from several places, first occurrence wins.
func mergeSymptoms(sources ...any) []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, s)
	}
	for _, src := range sources {
		switch v := src.(type) {
		case []any:
			for _, it := range v {
				if s, ok := it.(string); ok {
					add(s)
				}
			}
		case []string:
			for _, s := range v {
				add(s)
			}
		case string:
			for _, s := range strings.Split(v, ",") {
				add(s)
			}
		}
	}
	return out
}
