package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/curated"
	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/pkg/external"
	"github.com/drug-repurposing-engine/pkg/medname"
)

const (
	// Adverse-event volumes at or above this count as an elevated safety
	// signal even without a boxed warning.
	highReportThreshold = 100000

	maxSummaryArticles  = 5
	maxSummaryReactions = 3
)

// ValidatorGateway is the slice of the evidence client the validator uses.
type ValidatorGateway interface {
	GatherValidationEvidence(ctx context.Context, drug, disease string, genes []string) (*external.EvidenceBundle, error)
}

// ClinicalValidator aggregates trial, literature, safety and mechanism
// evidence for one (drug, disease) pair into a risk level and
// recommendation. The four lookups fail independently; a failed lookup
// omits its block. Risk defaults conservatively to MEDIUM when evidence
// is thin.
type ClinicalValidator struct {
	logger   *logrus.Logger
	gateway  ValidatorGateway
	resolver *DiseaseResolver // optional; enriches mechanism analysis with disease genes
	library  *curated.Library
}

// NewClinicalValidator builds a validator. The resolver may be nil, in
// which case mechanism analysis runs without disease gene context.
func NewClinicalValidator(gateway ValidatorGateway, resolver *DiseaseResolver, library *curated.Library, logger *logrus.Logger) *ClinicalValidator {
	return &ClinicalValidator{
		logger:   logger,
		gateway:  gateway,
		resolver: resolver,
		library:  library,
	}
}

// Validate runs one clinical validation. It fails only when the request
// is invalid or every evidence lookup failed.
func (v *ClinicalValidator) Validate(ctx context.Context, req domain.ValidationRequest) (*domain.ClinicalValidation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var genes []string
	if v.resolver != nil {
		if disease, err := v.resolver.Resolve(ctx, req.DiseaseName); err != nil {
			v.logger.WithError(err).WithField("disease", req.DiseaseName).
				Debug("Disease resolution unavailable for mechanism analysis")
		} else {
			genes = disease.Genes
		}
	}

	bundle, err := v.gateway.GatherValidationEvidence(ctx, req.DrugName, req.DiseaseName, genes)
	if err != nil {
		return nil, domain.NewValidationFailed(req.DrugName, req.DiseaseName).WithCause(err)
	}

	validation := &domain.ClinicalValidation{
		ClinicalTrials:     trialEvidence(bundle.Trials, req),
		LiteratureEvidence: literatureEvidence(bundle.Literature, req),
		SafetySignals:      safetyEvidence(bundle.Safety),
		MechanismAnalysis:  v.mechanismEvidence(bundle.Interactions, genes, req),
	}
	validation.RiskLevel = riskLevel(validation)
	validation.Recommendation = recommendation(validation.RiskLevel, req)
	validation.EvidenceSummary = evidenceSummary(validation)

	v.logger.WithFields(logrus.Fields{
		"drug":    req.DrugName,
		"disease": req.DiseaseName,
		"risk":    validation.RiskLevel,
		"blocks":  validation.EvidenceBlockCount(),
	}).Info("Clinical validation complete")

	return validation, nil
}

func trialEvidence(stats *external.TrialStats, req domain.ValidationRequest) *domain.TrialEvidence {
	if stats == nil {
		return nil
	}
	return &domain.TrialEvidence{
		TotalStudies: stats.TotalStudies,
		Recruiting:   stats.Recruiting,
		LatePhase:    stats.LatePhase,
		Summary: fmt.Sprintf("%d registered studies of %s in %s; %d recruiting, %d in phase 3 or later",
			stats.TotalStudies, req.DrugName, req.DiseaseName, stats.Recruiting, stats.LatePhase),
	}
}

func literatureEvidence(lit *external.LiteratureResult, req domain.ValidationRequest) *domain.LiteratureEvidence {
	if lit == nil {
		return nil
	}
	articles := make([]domain.ArticleRef, 0, len(lit.Articles))
	for i, a := range lit.Articles {
		if i >= maxSummaryArticles {
			break
		}
		articles = append(articles, domain.ArticleRef{PMID: a.PMID, Title: a.Title, Year: a.Year})
	}
	return &domain.LiteratureEvidence{
		ArticleCount: lit.TotalCount,
		Articles:     articles,
		Summary: fmt.Sprintf("%d publications link %s to %s",
			lit.TotalCount, req.DrugName, req.DiseaseName),
	}
}

func safetyEvidence(profile *external.SafetyProfile) *domain.SafetyEvidence {
	if profile == nil {
		return nil
	}
	ev := &domain.SafetyEvidence{
		ReportCount:  profile.ReportCount,
		BoxedWarning: profile.BoxedWarning,
	}
	for i, r := range profile.TopReactions {
		if i >= maxSummaryReactions {
			break
		}
		ev.TopReactions = append(ev.TopReactions, r.Term)
	}

	switch {
	case ev.ReportCount == 0:
		ev.Summary = "No adverse event reports on record"
	case len(ev.TopReactions) > 0:
		ev.Summary = fmt.Sprintf("%d adverse event reports; most frequent: %s",
			ev.ReportCount, strings.Join(ev.TopReactions, ", "))
	default:
		ev.Summary = fmt.Sprintf("%d adverse event reports", ev.ReportCount)
	}
	if ev.BoxedWarning {
		ev.Summary += "; labeling carries a boxed warning"
	}
	return ev
}

// mechanismEvidence derives plausibility from target overlap between
// the drug's interaction records and the disease's genes, backfilled
// from curated targets. With no overlap but disease-related mechanism
// or indication text the pairing is uncertain rather than weak; with
// nothing to go on the block is omitted.
func (v *ClinicalValidator) mechanismEvidence(interactions []external.GeneInteraction, genes []string, req domain.ValidationRequest) *domain.MechanismEvidence {
	drugKey := medname.NormalizeDrug(req.DrugName)

	sharedSet := make(map[string]struct{})
	for _, it := range interactions {
		if medname.NormalizeDrug(it.DrugName) == drugKey {
			sharedSet[it.Gene] = struct{}{}
		}
	}
	if len(sharedSet) == 0 && len(genes) > 0 {
		diseaseGenes := make(map[string]struct{}, len(genes))
		for _, g := range genes {
			diseaseGenes[g] = struct{}{}
		}
		for _, g := range v.library.FallbackTargets(req.DrugName) {
			if _, ok := diseaseGenes[g]; ok {
				sharedSet[g] = struct{}{}
			}
		}
	}

	if len(sharedSet) > 0 {
		shared := make([]string, 0, len(sharedSet))
		for g := range sharedSet {
			shared = append(shared, g)
		}
		sort.Strings(shared)
		return &domain.MechanismEvidence{
			Plausibility:  domain.MechanismSupportive,
			SharedTargets: shared,
			Summary: fmt.Sprintf("%s directly targets %d disease-associated gene(s): %s",
				req.DrugName, len(shared), strings.Join(shared, ", ")),
		}
	}

	if mentionsDisease(req) {
		return &domain.MechanismEvidence{
			Plausibility: domain.MechanismUncertain,
			Summary:      "Mechanism is plausibly related to the disease, but no direct target overlap was found",
		}
	}
	return nil
}

// mentionsDisease reports whether the drug's mechanism or indication
// text references the disease by name.
func mentionsDisease(req domain.ValidationRequest) bool {
	text := strings.ToLower(req.Mechanism + " " + req.Indication)
	for _, token := range medname.Tokens(req.DiseaseName) {
		if len(token) >= 4 && strings.Contains(text, token) {
			return true
		}
	}
	return false
}

// riskLevel applies the stated grading policy: MEDIUM by default; HIGH
// on an elevated safety signal; LOW only with active or late-phase
// trials and a safety profile that shows no elevated signal.
func riskLevel(v *domain.ClinicalValidation) domain.RiskLevel {
	safety := v.SafetySignals
	elevated := safety != nil && (safety.BoxedWarning || safety.ReportCount >= highReportThreshold)
	if elevated {
		return domain.RiskHigh
	}

	trials := v.ClinicalTrials
	if trials != nil && (trials.Recruiting > 0 || trials.LatePhase > 0) && safety != nil {
		return domain.RiskLow
	}
	return domain.RiskMedium
}

func recommendation(risk domain.RiskLevel, req domain.ValidationRequest) string {
	switch risk {
	case domain.RiskLow:
		return fmt.Sprintf("Clinical evidence supports further investigation of %s for %s under medical guidance.",
			req.DrugName, req.DiseaseName)
	case domain.RiskHigh:
		return fmt.Sprintf("Significant safety concerns identified for %s; repurposing for %s is not advised without specialist review.",
			req.DrugName, req.DiseaseName)
	default:
		return fmt.Sprintf("Moderate support for %s in %s; additional clinical evidence is needed before repurposing.",
			req.DrugName, req.DiseaseName)
	}
}

// evidenceSummary emits one line per present block in fixed order so
// repeated validations render identically.
func evidenceSummary(v *domain.ClinicalValidation) []string {
	var lines []string
	if v.ClinicalTrials != nil {
		lines = append(lines, v.ClinicalTrials.Summary)
	}
	if v.LiteratureEvidence != nil {
		lines = append(lines, v.LiteratureEvidence.Summary)
	}
	if v.SafetySignals != nil {
		lines = append(lines, v.SafetySignals.Summary)
	}
	if v.MechanismAnalysis != nil {
		lines = append(lines, v.MechanismAnalysis.Summary)
	}
	if len(lines) == 0 {
		lines = append(lines, "Insufficient evidence available; defaulting to a conservative risk assessment")
	}
	return lines
}
