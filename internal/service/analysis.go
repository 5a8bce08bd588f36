package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/explain"
	"github.com/drug-repurposing-engine/internal/history"
	"github.com/drug-repurposing-engine/pkg/external"
)

// ProgressEvent is one pipeline stage update pushed to subscribers
// while an analysis or validation runs.
type ProgressEvent struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	Disease string    `json:"disease,omitempty"`
	Count   int       `json:"count,omitempty"`
	Done    bool      `json:"done,omitempty"`
	At      time.Time `json:"at"`
}

// Progress stages, in pipeline order.
const (
	StageResolving  = "resolving"
	StageGenerating = "generating"
	StageFiltering  = "filtering"
	StageScoring    = "scoring"
	StageExplaining = "explaining"
	StageComplete   = "complete"
	StageFailed     = "failed"
	StageValidating = "validating"
	StageValidated  = "validated"
)

// ProgressNotifier receives pipeline stage events. Implementations must
// be safe for concurrent use and must not block.
type ProgressNotifier interface {
	Publish(event ProgressEvent)
}

// AnalysisOutcome is the assembled result of one scoring run, with the
// normalized request echoed back and the pipeline duration attached.
type AnalysisOutcome struct {
	domain.AnalysisResult

	Request        domain.AnalysisRequest `json:"request"`
	ProcessingTime time.Duration          `json:"processing_time"`
}

// AnalysisDeps wires the pipeline components into the orchestrator.
// History and Notifier are optional.
type AnalysisDeps struct {
	Resolver  *DiseaseResolver
	Generator *CandidateGenerator
	Filter    *ContraindicationFilter
	Scorer    *Scorer
	Validator *ClinicalValidator
	Explainer explain.Provider
	History   history.Store
	Notifier  ProgressNotifier
}

// AnalysisService orchestrates one scoring request end to end:
// resolve, generate, filter contraindications, score and rank, explain,
// assemble. Contraindication filtering runs before truncation so a
// removed drug never occupies a result slot.
type AnalysisService struct {
	logger *logrus.Logger
	deps   AnalysisDeps
}

// NewAnalysisService builds the orchestrator.
func NewAnalysisService(deps AnalysisDeps, logger *logrus.Logger) *AnalysisService {
	return &AnalysisService{logger: logger, deps: deps}
}

// Analyze runs the scoring pipeline for one disease. Zero candidates
// above min_score is a valid, successful outcome; the error cases are
// invalid input, an unresolvable disease, no candidate overlapping the
// disease at all, and every evidence source failing at once.
func (s *AnalysisService) Analyze(ctx context.Context, req domain.AnalysisRequest) (outcome *AnalysisOutcome, retErr error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.Normalized()

	s.logger.WithFields(logrus.Fields{
		"disease_name": req.DiseaseName,
		"min_score":    req.MinScore,
		"max_results":  req.MaxResults,
	}).Info("Starting analysis")

	defer func() {
		s.recordAnalysis(ctx, req, outcome, retErr, time.Since(startTime))
		if retErr != nil {
			s.notify(ProgressEvent{Stage: StageFailed, Message: retErr.Error(), Disease: req.DiseaseName, Done: true})
		}
	}()

	// Step 1: Resolve the disease name to genes and pathways.
	s.notify(ProgressEvent{Stage: StageResolving, Message: "Resolving disease", Disease: req.DiseaseName})
	disease, err := s.deps.Resolver.Resolve(ctx, req.DiseaseName)
	if err != nil {
		return nil, err
	}

	// Step 2: Enumerate candidate drugs sharing genes or pathways.
	s.notify(ProgressEvent{Stage: StageGenerating, Message: "Generating candidates", Disease: disease.Name})
	stubs, degraded, err := s.deps.Generator.Generate(ctx, disease)
	if err != nil {
		return nil, err
	}
	if len(stubs) == 0 {
		if len(degraded) >= 2 {
			return nil, domain.NewUpstreamUnavailable(degraded...)
		}
		return nil, domain.NewNoCandidates(req.MinScore)
	}

	// Step 3: Remove contraindicated drugs. This runs on the full set,
	// before truncation, so filtered_count is independent of max_results.
	s.notify(ProgressEvent{Stage: StageFiltering, Message: "Filtering contraindicated drugs", Disease: disease.Name, Count: len(stubs)})
	survivors, filtered := s.deps.Filter.Apply(disease, stubs)

	// Step 4: Score, apply the threshold, rank, truncate.
	s.notify(ProgressEvent{Stage: StageScoring, Message: "Scoring candidates", Disease: disease.Name, Count: len(survivors)})
	candidates := s.deps.Scorer.Rank(disease, survivors, req.MinScore, req.MaxResults)

	// Step 5: Attach explanations.
	s.notify(ProgressEvent{Stage: StageExplaining, Message: "Building explanations", Disease: disease.Name, Count: len(candidates)})
	s.explainAll(ctx, disease, candidates)

	outcome = &AnalysisOutcome{
		AnalysisResult: domain.AnalysisResult{
			Disease:       disease,
			Candidates:    candidates,
			FilteredDrugs: filtered,
			Degraded:      degraded,
		},
		Request:        req,
		ProcessingTime: time.Since(startTime),
	}

	s.notify(ProgressEvent{Stage: StageComplete, Message: "Analysis complete", Disease: disease.Name, Count: len(candidates), Done: true})
	s.logger.WithFields(logrus.Fields{
		"disease":    disease.Name,
		"candidates": len(candidates),
		"filtered":   len(filtered),
		"degraded":   degraded,
		"duration":   outcome.ProcessingTime,
	}).Info("Analysis complete")

	return outcome, nil
}

// ValidateCandidate runs one clinical validation. Failures are terminal
// for the request and surfaced verbatim; other candidates and analyses
// are unaffected.
func (s *AnalysisService) ValidateCandidate(ctx context.Context, req domain.ValidationRequest) (*domain.ClinicalValidation, error) {
	startTime := time.Now()
	s.notify(ProgressEvent{Stage: StageValidating, Message: "Validating " + req.DrugName, Disease: req.DiseaseName})

	validation, err := s.deps.Validator.Validate(ctx, req)

	s.recordValidation(ctx, req, validation, err, time.Since(startTime))
	if err != nil {
		s.notify(ProgressEvent{Stage: StageFailed, Message: err.Error(), Disease: req.DiseaseName, Done: true})
		return nil, err
	}

	s.notify(ProgressEvent{Stage: StageValidated, Message: "Validation complete for " + req.DrugName, Disease: req.DiseaseName, Done: true})
	return validation, nil
}

// SearchDiseases serves the autocomplete endpoint.
func (s *AnalysisService) SearchDiseases(ctx context.Context, query string, limit int) ([]external.DiseaseHit, error) {
	return s.deps.Resolver.Search(ctx, query, limit)
}

func (s *AnalysisService) explainAll(ctx context.Context, disease *domain.Disease, candidates []domain.Candidate) {
	for i := range candidates {
		text, err := s.deps.Explainer.Explain(ctx, explain.Request{
			DrugName:       candidates[i].DrugName,
			DiseaseName:    disease.Name,
			Mechanism:      candidates[i].Mechanism,
			Confidence:     candidates[i].Confidence,
			SharedGenes:    candidates[i].SharedGenes,
			SharedPathways: candidates[i].SharedPathways,
		})
		if err != nil {
			s.logger.WithError(err).WithField("drug", candidates[i].DrugName).Warn("Explanation generation failed")
			continue
		}
		candidates[i].Explanation = text
	}
}

func (s *AnalysisService) notify(event ProgressEvent) {
	if s.deps.Notifier == nil {
		return
	}
	event.At = time.Now().UTC()
	s.deps.Notifier.Publish(event)
}

// recordAnalysis appends the run to the history store. Best-effort: a
// storage failure is logged and swallowed.
func (s *AnalysisService) recordAnalysis(ctx context.Context, req domain.AnalysisRequest, outcome *AnalysisOutcome, runErr error, elapsed time.Duration) {
	if s.deps.History == nil {
		return
	}

	rec := &history.AnalysisRecord{
		DiseaseQuery: req.DiseaseName,
		MinScore:     req.MinScore,
		MaxResults:   req.MaxResults,
		Outcome:      history.OutcomeCompleted,
		DurationMS:   elapsed.Milliseconds(),
	}
	if runErr != nil {
		rec.Outcome = history.OutcomeFailed
	}
	if outcome != nil {
		rec.DiseaseName = outcome.Disease.Name
		rec.DiseaseID = outcome.Disease.ID
		rec.CandidateCount = len(outcome.Candidates)
		rec.FilteredCount = len(outcome.FilteredDrugs)
		rec.Degraded = strings.Join(outcome.Degraded, ",")
		if len(outcome.Candidates) > 0 {
			rec.TopDrug = outcome.Candidates[0].DrugName
			rec.TopScore = outcome.Candidates[0].CompositeScore
		}
	}

	if err := s.deps.History.SaveAnalysis(ctx, rec); err != nil {
		s.logger.WithError(err).Warn("Failed to record analysis history")
	}
}

func (s *AnalysisService) recordValidation(ctx context.Context, req domain.ValidationRequest, validation *domain.ClinicalValidation, runErr error, elapsed time.Duration) {
	if s.deps.History == nil {
		return
	}

	rec := &history.ValidationRecord{
		DrugName:    req.DrugName,
		DiseaseName: req.DiseaseName,
		Outcome:     history.OutcomeCompleted,
		DurationMS:  elapsed.Milliseconds(),
	}
	if runErr != nil {
		rec.Outcome = history.OutcomeFailed
	}
	if validation != nil {
		rec.RiskLevel = string(validation.RiskLevel)
		rec.EvidenceBlocks = validation.EvidenceBlockCount()
	}

	if err := s.deps.History.SaveValidation(ctx, rec); err != nil {
		s.logger.WithError(err).Warn("Failed to record validation history")
	}
}
