package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kirillkom/corporate-agent/internal/core/ports"
)

// minTargetRunes guards against locating trivially short targets; anything
// shorter carries too little signal to embed.
const minTargetRunes = 5

// SemanticLocator finds the paragraph most semantically similar to a target
// phrase. Issue descriptions reference sections by loose natural language,
// so nearest-neighbor matching is the only robust way to re-anchor them.
type SemanticLocator struct {
	embedder      ports.Embedder
	minSimilarity float64
}

func NewSemanticLocator(embedder ports.Embedder, minSimilarity float64) *SemanticLocator {
	if minSimilarity <= 0 || minSimilarity > 1 {
		minSimilarity = 0.4
	}
	return &SemanticLocator{
		embedder:      embedder,
		minSimilarity: minSimilarity,
	}
}

// Locate returns the index of the paragraph closest to target, or ok=false
// when no paragraph clears the acceptance threshold. A low best score means
// no paragraph is actually about the target; a false placement is worse
// than no placement. Ties resolve to the first occurrence.
func (l *SemanticLocator) Locate(ctx context.Context, paragraphs []string, target string) (int, bool, error) {
	target = strings.TrimSpace(target)
	if len([]rune(target)) < minTargetRunes {
		return 0, false, nil
	}

	indices := make([]int, 0, len(paragraphs))
	texts := make([]string, 0, len(paragraphs))
	for i, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		indices = append(indices, i)
		texts = append(texts, p)
	}
	if len(texts) == 0 {
		return 0, false, nil
	}

	targetVec, err := l.embedder.EmbedQuery(ctx, target)
	if err != nil {
		return 0, false, fmt.Errorf("embed locate target: %w", err)
	}
	paraVecs, err := l.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, false, fmt.Errorf("embed paragraphs: %w", err)
	}
	if len(paraVecs) != len(texts) {
		return 0, false, fmt.Errorf("paragraph vectors mismatch: %d/%d", len(paraVecs), len(texts))
	}

	bestIdx := -1
	bestScore := math.Inf(-1)
	for i, vec := range paraVecs {
		score := cosineSimilarity(targetVec, vec)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < l.minSimilarity {
		return 0, false, nil
	}
	return indices[bestIdx], true, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
