package analysis

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func decode(t *testing.T, raw string) ProviderPayload {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var p ProviderPayload
	if err := dec.Decode(&p); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return p
}

func TestClamp(t *testing.T) {
	t.Parallel()

	cases := map[float64]float64{
		-0.5:            0,
		0:               0,
		0.42:            0.42,
		1:               1,
		1.7:             1,
		math.Inf(1):     0,
		math.Inf(-1):    0,
		math.NaN():      0,
		math.MaxFloat64: 1,
	}
	for in, want := range cases {
		if got := Clamp(in); got != want {
			t.Fatalf("Clamp(%v): want %v, got %v", in, want, got)
		}
	}
	for i := -20; i <= 20; i++ {
		got := Clamp(float64(i) / 7)
		if got < 0 || got > 1 {
			t.Fatalf("Clamp out of range: %v", got)
		}
	}
}

func TestNormalizeEmpty(t *testing.T) {
	t.Parallel()

	for _, p := range []ProviderPayload{nil, {}, decode(t, `{"unexpected":{"deep":[1,2,3]}}`)} {
		got := Normalize(p)
		if got.Species != UnknownSpecies || got.DiseaseKey != HealthyKey {
			t.Fatalf("unexpected labels: %+v", got)
		}
		if got.SpeciesConfidence != 0 || got.DiseaseConfidence != 0 {
			t.Fatalf("unexpected confidences: %+v", got)
		}
	}
}

func TestNormalizeShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want AnalysisResult
	}{
		{
			name: "current nested shape",
			raw:  `{"species":"Cat","speciesConfidence":0.9,"skinDisease":{"disease":" Ringworm ","confidence":0.72}}`,
			want: AnalysisResult{Species: "cat", SpeciesConfidence: 0.9, DiseaseKey: "ringworm", DiseaseConfidence: 0.72},
		},
		{
			name: "snake case",
			raw:  `{"species":"dog","species_confidence":"0.8","skin_disease":{"label":"Scabies","score":0.61}}`,
			want: AnalysisResult{Species: "dog", SpeciesConfidence: 0.8, DiseaseKey: "scabies", DiseaseConfidence: 0.61},
		},
		{
			name: "species only inside disease object",
			raw:  `{"skinDisease":{"species":"DOG","speciesConfidence":0.5,"disease":"mange","confidence":0.3}}`,
			want: AnalysisResult{Species: "dog", SpeciesConfidence: 0.5, DiseaseKey: "mange", DiseaseConfidence: 0.3},
		},
		{
			name: "confidence as top level sibling",
			raw:  `{"species":"cat","disease":"flea allergy","diseaseConfidence":0.66}`,
			want: AnalysisResult{Species: "cat", DiseaseKey: "flea_allergy", DiseaseConfidence: 0.66},
		},
		{
			name: "species object",
			raw:  `{"species":{"label":"Rabbit","confidence":1.4},"disease":{"name":"none"}}`,
			want: AnalysisResult{Species: "rabbit", SpeciesConfidence: 1, DiseaseKey: HealthyKey},
		},
		{
			name: "wrapped in result envelope",
			raw:  `{"status":"ok","result":{"animal":"cat","animal_confidence":0.7,"diagnosis":"Dermatitis","confidence":"65%"}}`,
			want: AnalysisResult{Species: "cat", SpeciesConfidence: 0.7, DiseaseKey: "dermatitis", DiseaseConfidence: 0.65},
		},
		{
			name: "garbage confidences",
			raw:  `{"species":"cat","speciesConfidence":"NaN","skinDisease":{"disease":"ringworm","confidence":"very high"}}`,
			want: AnalysisResult{Species: "cat", DiseaseKey: "ringworm"},
		},
		{
			name: "negative and null",
			raw:  `{"species":null,"speciesConfidence":-3,"skinDisease":null,"diseaseConfidence":null}`,
			want: AnalysisResult{Species: UnknownSpecies, DiseaseKey: HealthyKey},
		},
		{
			name: "blank disease label",
			raw:  `{"species":"cat","skinDisease":{"disease":"   ","confidence":0.9}}`,
			want: AnalysisResult{Species: "cat", DiseaseKey: HealthyKey, DiseaseConfidence: 0.9},
		},
		{
			name: "hyphenated no disease",
			raw:  `{"species":"dog","disease":"no-disease","confidence":0.9}`,
			want: AnalysisResult{Species: "dog", DiseaseKey: HealthyKey, DiseaseConfidence: 0.9},
		},
		{
			name: "spaced no disease",
			raw:  `{"species":"dog","disease":"No  Disease","confidence":0.9}`,
			want: AnalysisResult{Species: "dog", DiseaseKey: HealthyKey, DiseaseConfidence: 0.9},
		},
		{
			name: "non finite nested score falls back to sibling",
			raw:  `{"skinDisease":{"disease":"Scabies","score":"NaN"},"diseaseConfidence":0.8}`,
			want: AnalysisResult{Species: UnknownSpecies, DiseaseKey: "scabies", DiseaseConfidence: 0.8},
		},
		{
			name: "infinite string confidence",
			raw:  `{"species":"cat","speciesConfidence":"Infinity","disease":"mange","confidence":"-Inf"}`,
			want: AnalysisResult{Species: "cat", DiseaseKey: "mange"},
		},
		{
			name: "wrong types ignored",
			raw:  `{"species":42,"skinDisease":[1,2],"speciesConfidence":true}`,
			want: AnalysisResult{Species: UnknownSpecies, DiseaseKey: HealthyKey},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(decode(t, tc.raw))
			got.Symptoms = nil
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("want %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestNormalizeSymptomsMerged(t *testing.T) {
	t.Parallel()

	p := decode(t, `{
		"species":"dog",
		"symptoms":["Itching","hair loss"],
		"skinDisease":{"disease":"scabies","confidence":0.8,"symptoms":["itching","Crusts"]}
	}`)
	got := Normalize(p).Symptoms
	want := []string{"Itching", "hair loss", "Crusts"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestNormalizeFloat64Payload(t *testing.T) {
	t.Parallel()

	// payload built without UseNumber
	p := ProviderPayload{"species": "cat", "speciesConfidence": 0.25, "skinDisease": map[string]any{"disease": "ringworm", "confidence": 0.75}}
	got := Normalize(p)
	if got.SpeciesConfidence != 0.25 || got.DiseaseConfidence != 0.75 || got.Healthy() {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestNormalizeCapsLabels(t *testing.T) {
	t.Parallel()

	species := "domestic shorthair cat, adult, tabby, indoor, neutered"
	disease := strings.Repeat("chronic-allergic ", 12) + "dermatitis"
	got := Normalize(ProviderPayload{"species": species, "disease": disease, "confidence": 0.7})

	if len(got.Species) > MaxSpeciesLen || !strings.HasPrefix(species, got.Species) {
		t.Fatalf("species not cut to column width: %q", got.Species)
	}
	if len(got.DiseaseKey) > MaxDiseaseKeyLen || !strings.HasPrefix(got.DiseaseKey, "chronic_allergic_chronic") {
		t.Fatalf("disease key not cut to column width: %q", got.DiseaseKey)
	}
	if strings.HasSuffix(got.DiseaseKey, "_") {
		t.Fatalf("dangling separator in %q", got.DiseaseKey)
	}

	// multi-byte runes are never split
	got = Normalize(ProviderPayload{"species": strings.Repeat("é", 40)})
	if !utf8.ValidString(got.Species) || len(got.Species) > MaxSpeciesLen {
		t.Fatalf("species cut mid-rune: %q", got.Species)
	}
}
