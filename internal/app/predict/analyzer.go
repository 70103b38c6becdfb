// Package predict implements token-usage prediction for engines.
// Two-tier strategy: direct historical aggregation when the engine has
// enough execution records, similarity-weighted estimation across the
// fleet otherwise. Every failure path degrades to a fixed fallback
// estimate — a poor number is more useful to billing/UI than an error.
package predict

import (
	"sort"

	"github.com/tokensage/tokensage/internal/domain"
)

// Analyze derives the structural feature vector of an engine. It is a
// pure, total function: missing fields default (empty collections, zero
// counts, medium content length, pro tier) and the input is never
// mutated. Calling it twice on the same definition yields identical
// output — Models is sorted to keep the result canonical.
func Analyze(engine *domain.Engine) domain.Characteristics {
	counts := make(map[domain.NodeType]int, len(engine.Nodes))
	modelSet := make(map[string]struct{})

	aiNodes := 0
	hasConditionals := false
	hasLoops := false
	hasDataProcessing := false

	for _, n := range engine.Nodes {
		counts[n.Type]++

		if n.Data.Model != "" {
			modelSet[n.Data.Model] = struct{}{}
		}
		if n.Type.IsAI() {
			aiNodes++
		}
		if n.Type.IsConditional() {
			hasConditionals = true
		}
		if n.Type.IsLoop() {
			hasLoops = true
		}
		if n.Type.IsDataProcessing() {
			hasDataProcessing = true
		}
	}

	models := make([]string, 0, len(modelSet))
	for m := range modelSet {
		models = append(models, m)
	}
	sort.Strings(models)

	return domain.Characteristics{
		NodeTypeCounts: counts,
		Models:         models,
		Complexity: domain.Complexity{
			NodeCount:         len(engine.Nodes),
			EdgeCount:         len(engine.Edges),
			AINodeCount:       aiNodes,
			ModelCount:        len(models),
			HasConditionals:   hasConditionals,
			HasLoops:          hasLoops,
			HasDataProcessing: hasDataProcessing,
			ContentLength:     engine.EffectiveContentLength(),
		},
		Tier: engine.EffectiveTier(),
	}
}
