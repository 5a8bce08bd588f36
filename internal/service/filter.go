package service

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/curated"
	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/pkg/medname"
)

// ContraindicationFilter partitions candidate stubs into survivors and
// removed drugs using the curated contraindication records. It runs on
// the full unfiltered set, before score truncation, so removed drugs
// never occupy a result slot and the filtered count is independent of
// max_results. Relative contraindications are advisory but still
// removed from the ranked list.
type ContraindicationFilter struct {
	logger  *logrus.Logger
	library *curated.Library
}

// NewContraindicationFilter builds a filter over the curated records.
func NewContraindicationFilter(library *curated.Library, logger *logrus.Logger) *ContraindicationFilter {
	return &ContraindicationFilter{logger: logger, library: library}
}

// Apply partitions stubs. Survivors keep their input order; removed
// drugs are sorted severity first (absolute before relative), then by
// name. The two sets are disjoint by construction.
func (f *ContraindicationFilter) Apply(disease *domain.Disease, stubs []CandidateStub) ([]CandidateStub, []domain.FilteredDrug) {
	diseaseName := medname.Normalize(disease.Name)

	var rules []curated.ContraindicationRule
	for _, group := range f.library.Contraindications() {
		if strings.Contains(diseaseName, group.Keyword) {
			rules = append(rules, group.Rules...)
		}
	}
	if len(rules) == 0 {
		return stubs, nil
	}

	survivors := make([]CandidateStub, 0, len(stubs))
	var removed []domain.FilteredDrug
	for _, stub := range stubs {
		if hit, ok := matchRule(stub.Record, rules); ok {
			removed = append(removed, hit)
			continue
		}
		survivors = append(survivors, stub)
	}

	sort.SliceStable(removed, func(i, j int) bool {
		if removed[i].Severity != removed[j].Severity {
			return removed[i].Severity == domain.SeverityAbsolute
		}
		return removed[i].DrugName < removed[j].DrugName
	})

	if len(removed) > 0 {
		f.logger.WithFields(logrus.Fields{
			"disease":  disease.Name,
			"filtered": len(removed),
		}).Info("Contraindicated drugs removed")
	}

	return survivors, removed
}

// matchRule checks a drug against the rules in file order. Within a
// rule the drug name list is checked first, then mechanism keywords,
// then drug-class keywords (against indication and mechanism text); the
// first match wins.
func matchRule(rec domain.DrugRecord, rules []curated.ContraindicationRule) (domain.FilteredDrug, bool) {
	drugName := medname.NormalizeDrug(rec.Name)
	mechanism := strings.ToLower(rec.Mechanism)
	indication := strings.ToLower(rec.Indication)

	for _, rule := range rules {
		basis := domain.MatchBasis("")

		for _, name := range rule.Names {
			if strings.Contains(drugName, strings.ToLower(name)) {
				basis = domain.MatchedOnName
				break
			}
		}
		if basis == "" {
			for _, kw := range rule.Mechanisms {
				if kw != "" && strings.Contains(mechanism, strings.ToLower(kw)) {
					basis = domain.MatchedOnMechanism
					break
				}
			}
		}
		if basis == "" {
			for _, class := range rule.Classes {
				kw := strings.ToLower(class)
				if kw == "" {
					continue
				}
				if strings.Contains(indication, kw) || strings.Contains(mechanism, kw) {
					basis = domain.MatchedOnClass
					break
				}
			}
		}

		if basis != "" {
			return domain.FilteredDrug{
				DrugName:  rec.Name,
				Severity:  domain.Severity(rule.Severity),
				Reason:    rule.Reason,
				MatchedOn: basis,
			}, true
		}
	}
	return domain.FilteredDrug{}, false
}
