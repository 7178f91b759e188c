// Package knowledge holds the static disease catalogue used to enrich
// analysis results. A Base is built once at startup and never mutated.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Definition describes one disease.
type Definition struct {
	Key         string   `json:"key" yaml:"-"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Contagious  bool     `json:"is_contagious" yaml:"contagious"`
	Urgent      bool     `json:"is_urgent" yaml:"urgent"`
	Actions     []string `json:"recommended_actions" yaml:"actions"`
}

type file struct {
	Diseases map[string]Definition `yaml:"diseases"`
	Aliases  map[string]string     `yaml:"aliases"`
}

// Base is a read-only disease dictionary with alias resolution.
type Base struct {
	defs    map[string]Definition
	aliases map[string]string
}

// New builds a Base. Keys and aliases are normalized; every alias must
// point at an existing definition.
func New(defs []Definition, aliases map[string]string) (*Base, error) {
	b := &Base{
		defs:    make(map[string]Definition, len(defs)),
		aliases: make(map[string]string, len(aliases)),
	}
	for _, d := range defs {
		key := NormalizeKey(d.Key)
		if key == "" {
			return nil, fmt.Errorf("knowledge: definition with empty key (title %q)", d.Title)
		}
		if _, dup := b.defs[key]; dup {
			return nil, fmt.Errorf("knowledge: duplicate key %q", key)
		}
		d.Key = key
		d.Actions = append([]string(nil), d.Actions...)
		b.defs[key] = d
	}
	for alias, target := range aliases {
		a, t := NormalizeKey(alias), NormalizeKey(target)
		if _, ok := b.defs[t]; !ok {
			return nil, fmt.Errorf("knowledge: alias %q points to unknown key %q", alias, target)
		}
		b.aliases[a] = t
	}
	return b, nil
}

// Parse reads the YAML catalogue format (see defaults.yaml).
func Parse(data []byte) (*Base, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("knowledge: parse: %w", err)
	}
	defs := make([]Definition, 0, len(f.Diseases))
	for k, d := range f.Diseases {
		d.Key = k
		defs = append(defs, d)
	}
	return New(defs, f.Aliases)
}

// Load reads a catalogue file; an empty path gives the built-in catalogue.
func Load(path string) (*Base, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the embedded catalogue.
func Default() (*Base, error) {
	return Parse(defaultsYAML)
}

// Lookup resolves a raw provider label. Unknown keys return nil, which
// callers treat as "no enrichment".
func (b *Base) Lookup(raw string) *Definition {
	if b == nil {
		return nil
	}
	key := NormalizeKey(raw)
	if canonical, ok := b.aliases[key]; ok {
		key = canonical
	}
	d, ok := b.defs[key]
	if !ok {
		return nil
	}
	d.Actions = append([]string(nil), d.Actions...)
	return &d
}

// Keys lists canonical keys, sorted.
func (b *Base) Keys() []string {
	out := make([]string, 0, len(b.defs))
	for k := range b.defs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NormalizeKey is the catalogue key rule, shared with the result normalizer.
func NormalizeKey(raw string) string { return analysis.NormalizeKey(raw) }
