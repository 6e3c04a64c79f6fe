package usecase

import (
	"context"
	"sort"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
)

// ChecklistEngine maps the detected document types of a batch to the
// best-matching filing process and computes which required documents are
// absent. Matching required labels against detected types is semantic, so
// near-synonymous classifications are not flagged missing.
type ChecklistEngine struct {
	mapping        domain.ChecklistMapping
	embedder       ports.Embedder
	matchThreshold float64

	// processNames is sorted once so scoring order, and therefore
	// tie-breaking, is deterministic.
	processNames []string
}

func NewChecklistEngine(mapping domain.ChecklistMapping, embedder ports.Embedder, matchThreshold float64) *ChecklistEngine {
	if matchThreshold <= 0 || matchThreshold > 1 {
		matchThreshold = 0.75
	}
	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	sort.Strings(names)
	return &ChecklistEngine{
		mapping:        mapping,
		embedder:       embedder,
		matchThreshold: matchThreshold,
		processNames:   names,
	}
}

// InferProcess scores every known process by how many of its required
// labels appear verbatim among the detected types. The highest score wins;
// ties prefer the process with the fewest required documents, since a
// minimal checklist fully covered is stronger evidence than a superset
// partially covered. An empty detected set still yields the smallest
// checklist with everything missing.
func (e *ChecklistEngine) InferProcess(ctx context.Context, detected []string) domain.ProcessInference {
	detectedSet := make(map[string]struct{}, len(detected))
	for _, d := range detected {
		detectedSet[d] = struct{}{}
	}

	best := ""
	bestScore := -1
	for _, name := range e.processNames {
		score := 0
		for _, required := range e.mapping[name] {
			if _, ok := detectedSet[required]; ok {
				score++
			}
		}
		switch {
		case score > bestScore:
			best, bestScore = name, score
		case score == bestScore && best != "" && len(e.mapping[name]) < len(e.mapping[best]):
			best = name
		}
	}

	required := e.mapping[best]
	uploaded := append([]string(nil), detected...)
	if uploaded == nil {
		uploaded = []string{}
	}

	return domain.ProcessInference{
		Process:  best,
		Required: append([]string(nil), required...),
		Uploaded: uploaded,
		Missing:  e.missingDocuments(ctx, required, detected, detectedSet),
	}
}

// missingDocuments marks a required label missing only if no detected type
// matches it exactly or clears the semantic-similarity threshold. If the
// embedder is unavailable the comparison degrades to the exact match
// already performed; a flaky embedder must not fail the batch.
func (e *ChecklistEngine) missingDocuments(
	ctx context.Context,
	required, detected []string,
	detectedSet map[string]struct{},
) []string {
	missing := []string{}

	unresolved := make([]string, 0, len(required))
	for _, label := range required {
		if _, ok := detectedSet[label]; !ok {
			unresolved = append(unresolved, label)
		}
	}
	if len(unresolved) == 0 {
		return missing
	}
	if len(detected) == 0 {
		return append(missing, unresolved...)
	}

	requiredVecs, err := e.embedder.Embed(ctx, unresolved)
	if err != nil || len(requiredVecs) != len(unresolved) {
		return append(missing, unresolved...)
	}
	detectedVecs, err := e.embedder.Embed(ctx, detected)
	if err != nil || len(detectedVecs) != len(detected) {
		return append(missing, unresolved...)
	}

	for i, label := range unresolved {
		matched := false
		for j := range detectedVecs {
			if cosineSimilarity(requiredVecs[i], detectedVecs[j]) >= e.matchThreshold {
				matched = true
				break
			}
		}
		if !matched {
			missing = append(missing, label)
		}
	}
	return missing
}
