package predict

import (
	"context"
	"math"
	"sort"

	"github.com/tokensage/tokensage/internal/domain"
	"github.com/tokensage/tokensage/internal/infra/metrics"
)

const (
	// directSampleLimit caps how many recent executions feed the direct
	// aggregate.
	directSampleLimit = 100

	// similarityFloor drops weak matches; anything below contributes
	// more noise than signal.
	similarityFloor = 0.3

	// maxSimilarEngines caps how many matches a similarity prediction
	// carries.
	maxSimilarEngines = 10
)

// historyAccessor reads aggregated token usage through the narrow
// ExecutionReader contract. Read errors are reported through diag and
// returned to the orchestrator, which degrades to the next strategy —
// they never reach the caller.
type historyAccessor struct {
	reader domain.ExecutionReader
	diag   func(op string, err error)
}

// directTokenData aggregates the engine's own recent executions. Returns
// (nil, nil) when no qualifying records exist.
func (h *historyAccessor) directTokenData(ctx context.Context, engineID string) (*domain.TokenAggregate, error) {
	samples, err := h.reader.RecentTokenCounts(ctx, engineID, directSampleLimit)
	if err != nil {
		h.diag("direct_token_data", err)
		metrics.DatastoreReadFailures.WithLabelValues("direct").Inc()
		return nil, err
	}
	if len(samples) == 0 {
		return nil, nil
	}

	total := 0
	minTokens := samples[0].TokensUsed
	maxTokens := samples[0].TokensUsed
	lastUpdated := samples[0].CreatedAt
	for _, s := range samples {
		total += s.TokensUsed
		if s.TokensUsed < minTokens {
			minTokens = s.TokensUsed
		}
		if s.TokensUsed > maxTokens {
			maxTokens = s.TokensUsed
		}
		if s.CreatedAt.After(lastUpdated) {
			lastUpdated = s.CreatedAt
		}
	}

	return &domain.TokenAggregate{
		AverageTokens: int(math.Round(float64(total) / float64(len(samples)))),
		MinTokens:     minTokens,
		MaxTokens:     maxTokens,
		SampleSize:    len(samples),
		LastUpdated:   lastUpdated,
	}, nil
}

// similarEngines scores every engine with usage history against the given
// characteristics and returns the strongest matches, best first. The
// candidate scan is a single joined query; scoring is local.
func (h *historyAccessor) similarEngines(ctx context.Context, chars domain.Characteristics, userID string) ([]domain.SimilarEngine, error) {
	candidates, err := h.reader.EnginesWithUsage(ctx, userID)
	if err != nil {
		h.diag("similar_engines", err)
		metrics.DatastoreReadFailures.WithLabelValues("similarity").Inc()
		return nil, err
	}

	matches := make([]domain.SimilarEngine, 0, len(candidates))
	for _, c := range candidates {
		candChars := Analyze(&c.Engine)
		score := Similarity(chars, candChars)
		if score < similarityFloor {
			continue
		}
		matches = append(matches, domain.SimilarEngine{
			EngineID:      c.Engine.ID,
			EngineName:    c.Engine.Name,
			Similarity:    score,
			AverageTokens: c.AverageTokens,
			NodeCount:     candChars.Complexity.NodeCount,
			SampleSize:    c.SampleSize,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > maxSimilarEngines {
		matches = matches[:maxSimilarEngines]
	}
	return matches, nil
}
