package predict

import "github.com/tokensage/tokensage/internal/domain"

// ─── Similarity Weights ─────────────────────────────────────────────────────
// Five structural factors, weights summing to 1.0. Node shape dominates;
// tier is a weak signal.

const (
	weightNodeCount    = 0.30
	weightAINodeCount  = 0.20
	weightModelOverlap = 0.20
	weightTierMatch    = 0.10
	weightFeatureFlags = 0.20
)

// Similarity scores how alike two engines are, in [0,1]. Each factor is a
// closeness ratio against the larger of the two counts, so the function is
// symmetric in practice (asserted by test, not promised by the API).
func Similarity(a, b domain.Characteristics) float64 {
	score := 0.0
	totalWeight := 0.0

	// Node-count closeness
	score += closeness(a.Complexity.NodeCount, b.Complexity.NodeCount) * weightNodeCount
	totalWeight += weightNodeCount

	// AI-node-count closeness
	score += closeness(a.Complexity.AINodeCount, b.Complexity.AINodeCount) * weightAINodeCount
	totalWeight += weightAINodeCount

	// Model overlap
	score += modelOverlap(a.Models, b.Models) * weightModelOverlap
	totalWeight += weightModelOverlap

	// Tier match: same tier is a full score, different tiers half
	tierScore := 0.5
	if a.Tier == b.Tier {
		tierScore = 1.0
	}
	score += tierScore * weightTierMatch
	totalWeight += weightTierMatch

	// Feature-flag agreement: fraction of the three booleans that match
	agree := 0
	if a.Complexity.HasConditionals == b.Complexity.HasConditionals {
		agree++
	}
	if a.Complexity.HasLoops == b.Complexity.HasLoops {
		agree++
	}
	if a.Complexity.HasDataProcessing == b.Complexity.HasDataProcessing {
		agree++
	}
	score += float64(agree) / 3.0 * weightFeatureFlags
	totalWeight += weightFeatureFlags

	// Weights sum to 1.0 today, but dividing by the accumulated weight
	// keeps the score normalized if a factor is ever added or removed.
	return score / totalWeight
}

// closeness maps two counts to [0,1]: identical counts score 1, counts an
// order of magnitude apart approach 0. The denominator is guarded so two
// zero counts score 1 rather than dividing by zero.
func closeness(a, b int) float64 {
	maxCount := a
	if b > maxCount {
		maxCount = b
	}
	if maxCount < 1 {
		maxCount = 1
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	c := 1.0 - float64(diff)/float64(maxCount)
	if c < 0 {
		return 0
	}
	return c
}

// modelOverlap is |a ∩ b| / max(|a|, |b|, 1).
func modelOverlap(a, b []string) float64 {
	set := make(map[string]struct{}, len(a))
	for _, m := range a {
		set[m] = struct{}{}
	}
	shared := 0
	for _, m := range b {
		if _, ok := set[m]; ok {
			shared++
		}
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen < 1 {
		maxLen = 1
	}
	return float64(shared) / float64(maxLen)
}
