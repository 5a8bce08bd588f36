package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/drug-repurposing-engine/internal/domain"
)

// At most this many gene or pathway names are spelled out before the
// explanation switches to a count.
const maxListedItems = 4

// HeuristicProvider builds explanations from a fixed template. It is
// always available and fully deterministic.
type HeuristicProvider struct{}

// NewHeuristicProvider returns the template-based explanation provider.
func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{}
}

// Name identifies the provider.
func (p *HeuristicProvider) Name() string { return "heuristic" }

// IsAvailable always reports true; the template needs no external service.
func (p *HeuristicProvider) IsAvailable(context.Context) bool { return true }

// Explain renders the candidate facts into the confidence-prefixed
// template the UI has always displayed.
func (p *HeuristicProvider) Explain(_ context.Context, req Request) (string, error) {
	var clauses []string

	if n := len(req.SharedGenes); n > 0 {
		clauses = append(clauses, fmt.Sprintf("targets %d disease-associated gene%s (%s)",
			n, plural(n), listNames(req.SharedGenes)))
	}
	if n := len(req.SharedPathways); n > 0 {
		clauses = append(clauses, fmt.Sprintf("acts on %d shared pathway%s (%s)",
			n, plural(n), listNames(req.SharedPathways)))
	}
	if len(clauses) == 0 {
		clauses = append(clauses, "limited overlap with known disease biology")
	}
	if req.Mechanism != "" {
		clauses = append(clauses, fmt.Sprintf("known mechanism: %s", req.Mechanism))
	}

	return prefixFor(req.Confidence) + " " + strings.Join(clauses, "; "), nil
}

// prefixFor returns the confidence-graded opening phrase. These exact
// strings are rendered verbatim by the UI.
func prefixFor(c domain.Confidence) string {
	switch c {
	case domain.ConfidenceHigh:
		return "Strong evidence suggests:"
	case domain.ConfidenceMedium:
		return "Moderate evidence indicates:"
	default:
		return "Preliminary analysis suggests:"
	}
}

func listNames(names []string) string {
	if len(names) <= maxListedItems {
		return strings.Join(names, ", ")
	}
	rest := len(names) - maxListedItems
	return fmt.Sprintf("%s, and %d more", strings.Join(names[:maxListedItems], ", "), rest)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
