package service

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/curated"
	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/pkg/external"
	"github.com/drug-repurposing-engine/pkg/medname"
)

const defaultCorpusSize = 500

// GeneratorGateway is the slice of the evidence client the generator uses.
type GeneratorGateway interface {
	DrugCorpus(ctx context.Context, limit int) ([]external.DrugEntry, error)
	GeneInteractions(ctx context.Context, genes []string) ([]external.GeneInteraction, error)
}

// CandidateStub pairs a merged corpus record with the disease genes and
// pathways it touches. Stubs flow through the contraindication filter
// and the scorer.
type CandidateStub struct {
	Record         domain.DrugRecord
	SharedGenes    []string
	SharedPathways []string
}

// CandidateGenerator enumerates approved drugs that share at least one
// gene or pathway with a disease. Records from different sources are
// merged by normalized drug name; output order is by display name so
// results are deterministic regardless of fetch completion order.
type CandidateGenerator struct {
	logger     *logrus.Logger
	gateway    GeneratorGateway
	library    *curated.Library
	corpusSize int
}

// NewCandidateGenerator builds a generator over the given gateway.
func NewCandidateGenerator(gateway GeneratorGateway, library *curated.Library, corpusSize int, logger *logrus.Logger) *CandidateGenerator {
	if corpusSize <= 0 {
		corpusSize = defaultCorpusSize
	}
	return &CandidateGenerator{
		logger:     logger,
		gateway:    gateway,
		library:    library,
		corpusSize: corpusSize,
	}
}

// Generate returns candidate stubs for the disease plus the names of
// sources that contributed nothing. A drug with zero shared genes and
// zero shared pathways is never emitted. Source failures degrade the
// candidate set rather than failing generation; the orchestrator decides
// whether an empty degraded result is an error.
func (g *CandidateGenerator) Generate(ctx context.Context, disease *domain.Disease) ([]CandidateStub, []string, error) {
	var (
		wg           sync.WaitGroup
		interactions []external.GeneInteraction
		corpus       []external.DrugEntry
		interactErr  error
		corpusErr    error
	)

	// The two lookups are read-only and independent; issue them
	// concurrently. Determinism comes from the sorted merge below.
	wg.Add(2)
	go func() {
		defer wg.Done()
		interactions, interactErr = g.gateway.GeneInteractions(ctx, disease.Genes)
	}()
	go func() {
		defer wg.Done()
		corpus, corpusErr = g.gateway.DrugCorpus(ctx, g.corpusSize)
	}()
	wg.Wait()

	var degraded []string
	if interactErr != nil {
		g.logger.WithError(interactErr).Warn("Gene interaction lookup failed, relying on corpus and curated targets")
		degraded = append(degraded, "DGIdb")
	}
	if corpusErr != nil {
		g.logger.WithError(corpusErr).Warn("Drug corpus lookup failed, relying on interaction records")
		degraded = append(degraded, "ChEMBL")
	}

	merged := g.merge(interactions, corpus)
	stubs := g.annotate(disease, merged)

	g.logger.WithFields(logrus.Fields{
		"disease":      disease.Name,
		"interactions": len(interactions),
		"corpus":       len(corpus),
		"candidates":   len(stubs),
	}).Info("Candidate generation complete")

	return stubs, degraded, nil
}

// merge folds interaction rows and corpus entries into one record per
// normalized drug name, unioning targets and recording contributing
// sources.
func (g *CandidateGenerator) merge(interactions []external.GeneInteraction, corpus []external.DrugEntry) map[string]*domain.DrugRecord {
	records := make(map[string]*domain.DrugRecord)
	targets := make(map[string]map[string]struct{})
	sources := make(map[string]map[string]struct{})

	add := func(name string) (string, *domain.DrugRecord) {
		key := medname.NormalizeDrug(name)
		rec, ok := records[key]
		if !ok {
			rec = &domain.DrugRecord{Name: medname.DisplayDrug(name)}
			records[key] = rec
			targets[key] = make(map[string]struct{})
			sources[key] = make(map[string]struct{})
		}
		return key, rec
	}

	for _, it := range interactions {
		if it.DrugName == "" || !it.Approved {
			continue
		}
		key, _ := add(it.DrugName)
		targets[key][it.Gene] = struct{}{}
		sources[key]["DGIdb"] = struct{}{}
	}

	for _, entry := range corpus {
		if entry.Name == "" {
			continue
		}
		key, rec := add(entry.Name)
		if rec.Indication == "" {
			rec.Indication = entry.Indication
		}
		if rec.Mechanism == "" {
			rec.Mechanism = entry.Mechanism
		}
		sources[key]["ChEMBL"] = struct{}{}
	}

	// Curated targets backfill drugs whose interaction records are
	// missing or empty upstream.
	for key, rec := range records {
		if len(targets[key]) == 0 {
			for _, gene := range g.library.FallbackTargets(rec.Name) {
				targets[key][gene] = struct{}{}
			}
			if len(targets[key]) > 0 {
				sources[key]["curated"] = struct{}{}
			}
		}
		rec.Targets = sortedKeys(targets[key])
		rec.Sources = sortedKeys(sources[key])
	}

	return records
}

// annotate intersects each record with the disease's genes and pathways
// and drops records touching neither. Output is sorted by display name.
func (g *CandidateGenerator) annotate(disease *domain.Disease, records map[string]*domain.DrugRecord) []CandidateStub {
	diseaseGenes := make(map[string]struct{}, len(disease.Genes))
	for _, gene := range disease.Genes {
		diseaseGenes[gene] = struct{}{}
	}
	diseasePathways := make(map[string]struct{}, len(disease.Pathways))
	for _, p := range disease.Pathways {
		diseasePathways[p] = struct{}{}
	}

	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var stubs []CandidateStub
	for _, key := range keys {
		rec := records[key]

		var sharedGenes []string
		for _, gene := range rec.Targets {
			if _, ok := diseaseGenes[gene]; ok {
				sharedGenes = append(sharedGenes, gene)
			}
		}

		var sharedPathways []string
		for _, p := range g.library.GenePathways(rec.Targets) {
			if _, ok := diseasePathways[p]; ok {
				sharedPathways = append(sharedPathways, p)
			}
		}

		if len(sharedGenes) == 0 && len(sharedPathways) == 0 {
			continue
		}
		stubs = append(stubs, CandidateStub{
			Record:         *rec,
			SharedGenes:    sharedGenes,
			SharedPathways: sharedPathways,
		})
	}

	sort.Slice(stubs, func(i, j int) bool { return stubs[i].Record.Name < stubs[j].Record.Name })
	return stubs
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
