// Package curated loads the engine's embedded curated datasets: the
// gene→pathway map, fallback drug targets, contraindication records,
// rare-disease keywords and the autocomplete suggestion list. The data
// ships inside the binary; malformed data is a startup error.
package curated

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/drug-repurposing-engine/internal/domain"
)

//go:embed data/*.yaml
var dataFS embed.FS

// ContraindicationRule describes one contraindication record. A drug
// matches by name substring, mechanism keyword, or drug-class keyword.
type ContraindicationRule struct {
	Classes    []string `yaml:"classes"`
	Names      []string `yaml:"names"`
	Mechanisms []string `yaml:"mechanisms"`
	Reason     string   `yaml:"reason"`
	Severity   string   `yaml:"severity"`
}

// DiseaseContraindications groups the rules for one disease keyword.
type DiseaseContraindications struct {
	Keyword string                 `yaml:"keyword"`
	Rules   []ContraindicationRule `yaml:"rules"`
}

type pathwayFile struct {
	Default string              `yaml:"default"`
	Genes   map[string][]string `yaml:"genes"`
}

type drugTargetFile struct {
	Drugs map[string][]string `yaml:"drugs"`
}

type contraindicationFile struct {
	Diseases []DiseaseContraindications `yaml:"diseases"`
}

type rareKeywordFile struct {
	Keywords []string `yaml:"keywords"`
}

type suggestionFile struct {
	Diseases []string `yaml:"diseases"`
}

// Library is the read-only view over all curated datasets.
type Library struct {
	defaultPathway    string
	genePathways      map[string][]string
	fallbackTargets   map[string][]string
	fallbackNames     []string // sorted keys of fallbackTargets, for ordered substring scans
	contraindications []DiseaseContraindications
	rareKeywords      []string
	suggestions       []string
}

// Load parses every embedded dataset. It is called once at startup.
func Load() (*Library, error) {
	lib := &Library{}

	var pf pathwayFile
	if err := parse("data/pathways.yaml", &pf); err != nil {
		return nil, err
	}
	if pf.Default == "" {
		return nil, fmt.Errorf("pathways.yaml: default pathway is required")
	}
	lib.defaultPathway = pf.Default
	lib.genePathways = pf.Genes

	var df drugTargetFile
	if err := parse("data/drug_targets.yaml", &df); err != nil {
		return nil, err
	}
	lib.fallbackTargets = df.Drugs
	for name := range lib.fallbackTargets {
		lib.fallbackNames = append(lib.fallbackNames, name)
	}
	sort.Strings(lib.fallbackNames)

	var cf contraindicationFile
	if err := parse("data/contraindications.yaml", &cf); err != nil {
		return nil, err
	}
	for _, d := range cf.Diseases {
		for _, r := range d.Rules {
			switch domain.Severity(r.Severity) {
			case domain.SeverityAbsolute, domain.SeverityRelative:
			default:
				return nil, fmt.Errorf("contraindications.yaml: keyword %q has invalid severity %q", d.Keyword, r.Severity)
			}
			if r.Reason == "" {
				return nil, fmt.Errorf("contraindications.yaml: keyword %q has a rule without a reason", d.Keyword)
			}
		}
	}
	lib.contraindications = cf.Diseases

	var rf rareKeywordFile
	if err := parse("data/rare_keywords.yaml", &rf); err != nil {
		return nil, err
	}
	lib.rareKeywords = rf.Keywords

	var sf suggestionFile
	if err := parse("data/suggestions.yaml", &sf); err != nil {
		return nil, err
	}
	lib.suggestions = sf.Diseases

	return lib, nil
}

func parse(name string, out interface{}) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read embedded %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// PathwaysFor returns the sorted union of pathways for the given genes.
// Genes with no curated pathways contribute nothing; an empty union
// falls back to the default pathway so callers always get at least one.
func (l *Library) PathwaysFor(genes []string) []string {
	set := make(map[string]struct{})
	for _, g := range genes {
		for _, p := range l.genePathways[strings.ToUpper(g)] {
			set[p] = struct{}{}
		}
	}
	if len(set) == 0 {
		return []string{l.defaultPathway}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// GenePathways returns the sorted union of curated pathways for the
// given genes, without the default-pathway fallback. Used on the drug
// side of overlap computation, where an unmapped target must contribute
// nothing rather than the catch-all pathway.
func (l *Library) GenePathways(genes []string) []string {
	set := make(map[string]struct{})
	for _, g := range genes {
		for _, p := range l.genePathways[strings.ToUpper(g)] {
			set[p] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// FallbackTargets returns curated gene targets for a drug whose upstream
// interaction records are empty. Matching is substring in either
// direction, as brand/salt variants embed the curated name.
func (l *Library) FallbackTargets(drugName string) []string {
	upper := strings.ToUpper(strings.TrimSpace(drugName))
	if upper == "" {
		return nil
	}
	if targets, ok := l.fallbackTargets[upper]; ok {
		return append([]string(nil), targets...)
	}
	for _, name := range l.fallbackNames {
		if strings.Contains(upper, name) || strings.Contains(name, upper) {
			return append([]string(nil), l.fallbackTargets[name]...)
		}
	}
	return nil
}

// Contraindications returns all contraindication records in file order.
func (l *Library) Contraindications() []DiseaseContraindications {
	return l.contraindications
}

// IsRare reports whether the disease name or description carries a
// rare-disease keyword.
func (l *Library) IsRare(name, description string) bool {
	n := strings.ToLower(name)
	d := strings.ToLower(description)
	for _, kw := range l.rareKeywords {
		if strings.Contains(n, kw) || strings.Contains(d, kw) {
			return true
		}
	}
	return false
}

// Suggest returns up to limit suggestion names containing the query
// (case-insensitive). With no matches it returns the leading entries so
// the autocomplete box is never empty.
func (l *Library) Suggest(query string, limit int) []string {
	if limit <= 0 || limit > len(l.suggestions) {
		limit = len(l.suggestions)
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var matched []string
	if q != "" {
		for _, s := range l.suggestions {
			if strings.Contains(strings.ToLower(s), q) {
				matched = append(matched, s)
			}
		}
	}
	if len(matched) == 0 {
		matched = append([]string(nil), l.suggestions...)
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}
