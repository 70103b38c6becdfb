package predict

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/tokensage/tokensage/internal/domain"
	"github.com/tokensage/tokensage/internal/infra/metrics"
)

// FallbackTokens is the fixed placeholder estimate used when no data is
// available or prediction faults. Callers see it paired with low
// confidence, which is the UI's signal that the number is not real.
const FallbackTokens = 1000

// Confidence thresholds on mean similarity. Boundaries are strict:
// exactly 0.8 is medium, exactly 0.6 is low.
const (
	highConfidenceThreshold   = 0.8
	mediumConfidenceThreshold = 0.6

	// highSimilarityFactor marks matches strong enough to call out in
	// the prediction's diagnostic factors.
	highSimilarityFactor = 0.7
)

// Options tune a prediction Service. The zero value gives production
// defaults.
type Options struct {
	// CacheTTL overrides DefaultCacheTTL.
	CacheTTL time.Duration

	// Clock is the cache's time source. Tests inject a fake to drive
	// TTL expiry.
	Clock func() time.Time

	// Diagnostics receives every swallowed datastore error and
	// prediction fault. Defaults to log.Printf. The predictor never
	// propagates these — see the package comment.
	Diagnostics func(op string, err error)
}

// Service is the prediction orchestrator. It owns the prediction cache;
// construct one per process and share it so ClearCache reaches all
// callers.
type Service struct {
	history *historyAccessor
	cache   *predictionCache
	diag    func(op string, err error)
}

// NewService creates a prediction service over the given execution
// history reader.
func NewService(reader domain.ExecutionReader, opts Options) *Service {
	diag := opts.Diagnostics
	if diag == nil {
		diag = func(op string, err error) {
			log.Printf("[predict] %s: %v", op, err)
		}
	}
	return &Service{
		history: &historyAccessor{reader: reader, diag: diag},
		cache:   newPredictionCache(opts.CacheTTL, opts.Clock),
		diag:    diag,
	}
}

// Predict estimates how many tokens one run of the engine will consume.
// It never fails: datastore errors and faults degrade to the fallback
// estimate. Results are cached per (engine, user) for the cache TTL; a
// fresh cache hit short-circuits without touching the datastore.
func (s *Service) Predict(ctx context.Context, engine *domain.Engine, userID string) domain.Prediction {
	if p, ok := s.cache.get(engine.ID, userID); ok {
		metrics.PredictionCacheHits.Inc()
		return p
	}
	metrics.PredictionCacheMisses.Inc()

	start := time.Now()
	p := s.compute(ctx, engine, userID)
	s.cache.put(engine.ID, userID, p)

	metrics.Predictions.WithLabelValues(string(p.Method), string(p.Confidence)).Inc()
	metrics.PredictionLatency.Observe(time.Since(start).Seconds())
	return p
}

// compute runs the two-tier strategy: direct history first, similarity
// otherwise. A panic anywhere inside resolves to the fallback prediction.
func (s *Service) compute(ctx context.Context, engine *domain.Engine, userID string) (p domain.Prediction) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("prediction fault: %v", r)
			s.diag("predict", err)
			p = domain.Prediction{
				Tokens:     FallbackTokens,
				Confidence: domain.ConfidenceLow,
				Method:     domain.MethodFallback,
				Error:      err.Error(),
			}
		}
	}()

	// Tier 1: the engine's own history. Direct data always wins, even
	// when similar engines exist. A read failure drops through to the
	// similarity tier.
	if agg, err := s.history.directTokenData(ctx, engine.ID); err == nil && agg != nil {
		return domain.Prediction{
			Tokens:      agg.AverageTokens,
			Confidence:  domain.ConfidenceHigh,
			Method:      domain.MethodHistorical,
			SampleSize:  agg.SampleSize,
			MinTokens:   agg.MinTokens,
			MaxTokens:   agg.MaxTokens,
			LastUpdated: agg.LastUpdated,
		}
	}

	// Tier 2: similarity-weighted estimate across the fleet. A read
	// failure here exhausts the data-backed strategies.
	chars := Analyze(engine)
	matches, err := s.history.similarEngines(ctx, chars, userID)
	if err != nil {
		return domain.Prediction{
			Tokens:     FallbackTokens,
			Confidence: domain.ConfidenceLow,
			Method:     domain.MethodFallback,
			Error:      err.Error(),
		}
	}
	if len(matches) == 0 {
		return domain.Prediction{
			Tokens:          FallbackTokens,
			Confidence:      domain.ConfidenceLow,
			Method:          domain.MethodSimilarity,
			SimilarEngines:  []domain.SimilarEngine{},
			SimilarityScore: 0,
			Factors:         []string{"no_similar_engines"},
		}
	}

	tokens, meanSimilarity := weightedEstimate(matches)
	return domain.Prediction{
		Tokens:          tokens,
		Confidence:      confidenceFor(meanSimilarity),
		Method:          domain.MethodSimilarity,
		SimilarEngines:  matches,
		SimilarityScore: meanSimilarity,
		Factors:         similarityFactors(matches),
	}
}

// weightedEstimate averages the matches' token counts weighted by their
// similarity scores, and returns the mean similarity alongside.
func weightedEstimate(matches []domain.SimilarEngine) (tokens int, meanSimilarity float64) {
	weightedTokens := 0.0
	totalWeight := 0.0
	totalSimilarity := 0.0
	for _, m := range matches {
		weightedTokens += m.Similarity * float64(m.AverageTokens)
		totalWeight += m.Similarity
		totalSimilarity += m.Similarity
	}
	return int(math.Round(weightedTokens / totalWeight)), totalSimilarity / float64(len(matches))
}

// confidenceFor maps mean similarity to a confidence label. Boundaries
// are strict: exactly 0.8 is medium, exactly 0.6 is low.
func confidenceFor(meanSimilarity float64) domain.Confidence {
	switch {
	case meanSimilarity > highConfidenceThreshold:
		return domain.ConfidenceHigh
	case meanSimilarity > mediumConfidenceThreshold:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// similarityFactors emits one diagnostic tag per strong match, in match
// order.
func similarityFactors(matches []domain.SimilarEngine) []string {
	var factors []string
	for _, m := range matches {
		if m.Similarity > highSimilarityFactor {
			factors = append(factors, fmt.Sprintf("high_similarity_%d_nodes", m.NodeCount))
		}
	}
	return factors
}

// UserStats aggregates the user's own execution history. Same fail-soft
// contract as Predict: a read failure yields zero-valued stats, not an
// error.
func (s *Service) UserStats(ctx context.Context, userID string) domain.UserTokenStats {
	stats, err := s.history.reader.UserExecutionStats(ctx, userID)
	if err != nil {
		s.diag("user_stats", err)
		metrics.DatastoreReadFailures.WithLabelValues("user_stats").Inc()
		return domain.UserTokenStats{}
	}
	return stats
}

// ClearCache empties the prediction cache unconditionally.
func (s *Service) ClearCache() {
	s.cache.clear()
}

// CachedPredictions returns the number of cache entries, stale included.
func (s *Service) CachedPredictions() int {
	return s.cache.size()
}
