// Package explain builds the per-candidate explanation text shown in
// analysis results. The default provider is a deterministic template so
// repeated identical requests produce byte-identical responses; an
// LLM-backed provider can be enabled by configuration and falls back to
// the template on any failure.
package explain

import (
	"context"

	"github.com/drug-repurposing-engine/internal/domain"
)

// Request carries the scored-candidate facts an explanation is built from.
type Request struct {
	DrugName       string
	DiseaseName    string
	Mechanism      string
	Confidence     domain.Confidence
	SharedGenes    []string
	SharedPathways []string
}

// Provider generates one explanation per candidate.
type Provider interface {
	// Name identifies the provider in logs and health output.
	Name() string

	// IsAvailable reports whether the provider is configured and reachable.
	IsAvailable(ctx context.Context) bool

	// Explain returns the explanation text for one candidate.
	Explain(ctx context.Context, req Request) (string, error)
}
