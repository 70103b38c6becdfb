package predict

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tokensage/tokensage/internal/domain"
)

// fakeReader is an in-memory ExecutionReader. Per-method errors and call
// counts let tests drive and observe the orchestrator's fallback ladder.
type fakeReader struct {
	samples map[string][]domain.ExecutionSample
	usages  []domain.EngineUsage
	stats   domain.UserTokenStats

	directErr error
	usageErr  error
	statsErr  error
	panicOn   string

	directCalls int
	usageCalls  int
	statsCalls  int
}

func (f *fakeReader) RecentTokenCounts(ctx context.Context, engineID string, limit int) ([]domain.ExecutionSample, error) {
	f.directCalls++
	if f.panicOn == "direct" {
		panic("reader blew up")
	}
	if f.directErr != nil {
		return nil, f.directErr
	}
	s := f.samples[engineID]
	if len(s) > limit {
		s = s[:limit]
	}
	return s, nil
}

func (f *fakeReader) EnginesWithUsage(ctx context.Context, userID string) ([]domain.EngineUsage, error) {
	f.usageCalls++
	if f.usageErr != nil {
		return nil, f.usageErr
	}
	return f.usages, nil
}

func (f *fakeReader) UserExecutionStats(ctx context.Context, userID string) (domain.UserTokenStats, error) {
	f.statsCalls++
	if f.statsErr != nil {
		return domain.UserTokenStats{}, f.statsErr
	}
	return f.stats, nil
}

func newTestService(reader *fakeReader, clock *fakeClock) *Service {
	return NewService(reader, Options{
		Clock:       clock.Now,
		Diagnostics: func(op string, err error) {}, // quiet in tests
	})
}

func predictEngine() *domain.Engine {
	return &domain.Engine{
		ID:   "e1",
		Name: "Article Generator",
		Nodes: []domain.Node{
			{ID: "n1", Type: domain.NodeAICall, Data: domain.NodeData{Model: "gpt-4"}},
			{ID: "n2", Type: domain.NodeInput},
		},
		Edges: []domain.Edge{{Source: "n2", Target: "n1"}},
		Tier:  domain.TierPro,
	}
}

// ─── Historical Path ────────────────────────────────────────────────────────

func TestPredict_Historical(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reader := &fakeReader{
		samples: map[string][]domain.ExecutionSample{
			"e1": {
				{TokensUsed: 1200, CreatedAt: now},
				{TokensUsed: 800, CreatedAt: now.Add(-time.Hour)},
				{TokensUsed: 1001, CreatedAt: now.Add(-2 * time.Hour)},
			},
		},
	}
	svc := newTestService(reader, newFakeClock())

	p := svc.Predict(context.Background(), predictEngine(), "")

	if p.Method != domain.MethodHistorical {
		t.Fatalf("Method = %q, want historical", p.Method)
	}
	if p.Confidence != domain.ConfidenceHigh {
		t.Errorf("Confidence = %q, want high", p.Confidence)
	}
	if p.Tokens != 1000 { // round(3001/3)
		t.Errorf("Tokens = %d, want 1000", p.Tokens)
	}
	if p.SampleSize != 3 || p.MinTokens != 800 || p.MaxTokens != 1200 {
		t.Errorf("aggregate fields = %d/%d/%d, want 3/800/1200", p.SampleSize, p.MinTokens, p.MaxTokens)
	}
	if !p.LastUpdated.Equal(now) {
		t.Errorf("LastUpdated = %v, want %v", p.LastUpdated, now)
	}
}

func TestPredict_HistoricalPrecedence(t *testing.T) {
	// Direct data and similar engines both exist: historical must win.
	reader := &fakeReader{
		samples: map[string][]domain.ExecutionSample{
			"e1": {{TokensUsed: 500, CreatedAt: time.Now()}},
		},
		usages: []domain.EngineUsage{
			{Engine: *predictEngine(), AverageTokens: 9999, SampleSize: 50},
		},
	}
	svc := newTestService(reader, newFakeClock())

	p := svc.Predict(context.Background(), predictEngine(), "")

	if p.Method != domain.MethodHistorical {
		t.Errorf("Method = %q, want historical", p.Method)
	}
	if reader.usageCalls != 0 {
		t.Errorf("similarity path queried %d times, want 0", reader.usageCalls)
	}
}

// ─── Similarity Path ────────────────────────────────────────────────────────

func TestPredict_SimilarityScenario(t *testing.T) {
	// e1 has no history; e2 is a near-identical engine with usage.
	// e2 differs by one node, one flag, and tier, scoring just under 0.8.
	e2 := domain.Engine{
		ID:   "e2",
		Name: "Article Generator v2",
		Nodes: []domain.Node{
			{ID: "m1", Type: domain.NodeInput},
			{ID: "m2", Type: domain.NodeAICall, Data: domain.NodeData{Model: "gpt-4"}},
			{ID: "m3", Type: domain.NodeLoop},
		},
		Tier: domain.TierFree,
	}
	reader := &fakeReader{
		usages: []domain.EngineUsage{
			{Engine: e2, AverageTokens: 3000, SampleSize: 12},
		},
	}
	svc := newTestService(reader, newFakeClock())

	p := svc.Predict(context.Background(), predictEngine(), "user-7")

	if p.Method != domain.MethodSimilarity {
		t.Fatalf("Method = %q, want similarity", p.Method)
	}
	if p.Tokens != 3000 {
		t.Errorf("Tokens = %d, want 3000 (single-match weighted average)", p.Tokens)
	}
	if p.Confidence != domain.ConfidenceMedium {
		t.Errorf("Confidence = %q, want medium (mean similarity %v)", p.Confidence, p.SimilarityScore)
	}
	if len(p.SimilarEngines) != 1 || p.SimilarEngines[0].EngineID != "e2" {
		t.Fatalf("SimilarEngines = %+v, want single e2 match", p.SimilarEngines)
	}
	if len(p.Factors) != 1 || p.Factors[0] != "high_similarity_3_nodes" {
		t.Errorf("Factors = %v, want [high_similarity_3_nodes]", p.Factors)
	}
}

func TestPredict_NoSimilarEngines(t *testing.T) {
	reader := &fakeReader{} // no history anywhere
	svc := newTestService(reader, newFakeClock())

	p := svc.Predict(context.Background(), predictEngine(), "")

	if p.Method != domain.MethodSimilarity {
		t.Errorf("Method = %q, want similarity", p.Method)
	}
	if p.Tokens != FallbackTokens {
		t.Errorf("Tokens = %d, want %d", p.Tokens, FallbackTokens)
	}
	if p.Confidence != domain.ConfidenceLow {
		t.Errorf("Confidence = %q, want low", p.Confidence)
	}
	if p.SimilarEngines == nil || len(p.SimilarEngines) != 0 {
		t.Errorf("SimilarEngines = %v, want empty non-nil", p.SimilarEngines)
	}
	if len(p.Factors) != 1 || p.Factors[0] != "no_similar_engines" {
		t.Errorf("Factors = %v, want [no_similar_engines]", p.Factors)
	}
}

func TestPredict_WeakMatchesFiltered(t *testing.T) {
	// A candidate sharing nothing with e1 scores below the 0.3 floor and
	// must not contribute.
	unrelated := domain.Engine{
		ID:   "e9",
		Name: "Giant Batch Pipeline",
		Tier: domain.TierEnterprise,
	}
	for i := 0; i < 40; i++ {
		unrelated.Nodes = append(unrelated.Nodes,
			domain.Node{Type: domain.NodeLoop},
			domain.Node{Type: domain.NodeConditional},
			domain.Node{Type: domain.NodeDataTransform},
		)
	}
	reader := &fakeReader{
		usages: []domain.EngineUsage{
			{Engine: unrelated, AverageTokens: 50000, SampleSize: 3},
		},
	}
	svc := newTestService(reader, newFakeClock())

	p := svc.Predict(context.Background(), predictEngine(), "")

	if len(p.SimilarEngines) != 0 {
		t.Errorf("SimilarEngines = %+v, want none (below floor)", p.SimilarEngines)
	}
	if p.Tokens != FallbackTokens {
		t.Errorf("Tokens = %d, want fallback %d", p.Tokens, FallbackTokens)
	}
}

// ─── Fallback Path ──────────────────────────────────────────────────────────

func TestPredict_FallbackWhenBothReadsFail(t *testing.T) {
	reader := &fakeReader{
		directErr: errors.New("datastore unavailable"),
		usageErr:  errors.New("datastore unavailable"),
	}
	svc := newTestService(reader, newFakeClock())

	p := svc.Predict(context.Background(), predictEngine(), "")

	if p.Method != domain.MethodFallback {
		t.Fatalf("Method = %q, want fallback", p.Method)
	}
	if p.Tokens != FallbackTokens {
		t.Errorf("Tokens = %d, want %d", p.Tokens, FallbackTokens)
	}
	if p.Confidence != domain.ConfidenceLow {
		t.Errorf("Confidence = %q, want low", p.Confidence)
	}
	if p.Error == "" {
		t.Error("Error should carry the diagnostic message")
	}
}

func TestPredict_DirectErrorDegradesToSimilarity(t *testing.T) {
	e2 := *predictEngine()
	e2.ID = "e2"
	reader := &fakeReader{
		directErr: errors.New("timeout"),
		usages: []domain.EngineUsage{
			{Engine: e2, AverageTokens: 2000, SampleSize: 5},
		},
	}
	svc := newTestService(reader, newFakeClock())

	p := svc.Predict(context.Background(), predictEngine(), "")

	if p.Method != domain.MethodSimilarity {
		t.Errorf("Method = %q, want similarity (degrade past direct error)", p.Method)
	}
	if p.Tokens != 2000 {
		t.Errorf("Tokens = %d, want 2000", p.Tokens)
	}
}

func TestPredict_RecoversFromPanic(t *testing.T) {
	reader := &fakeReader{panicOn: "direct"}
	svc := newTestService(reader, newFakeClock())

	p := svc.Predict(context.Background(), predictEngine(), "")

	if p.Method != domain.MethodFallback {
		t.Fatalf("Method = %q, want fallback", p.Method)
	}
	if !strings.Contains(p.Error, "reader blew up") {
		t.Errorf("Error = %q, want the panic message", p.Error)
	}
}

// ─── Cache Behavior ─────────────────────────────────────────────────────────

func TestPredict_CacheShortCircuits(t *testing.T) {
	clock := newFakeClock()
	reader := &fakeReader{
		samples: map[string][]domain.ExecutionSample{
			"e1": {{TokensUsed: 1500, CreatedAt: clock.Now()}},
		},
	}
	svc := newTestService(reader, clock)
	engine := predictEngine()

	first := svc.Predict(context.Background(), engine, "u1")
	clock.Advance(4 * time.Minute)
	second := svc.Predict(context.Background(), engine, "u1")

	if reader.directCalls != 1 {
		t.Errorf("datastore reads = %d, want 1 (second call served from cache)", reader.directCalls)
	}
	if first.Tokens != second.Tokens || first.Method != second.Method {
		t.Errorf("cached prediction differs: %+v vs %+v", first, second)
	}
}

func TestPredict_CacheExpiryTriggersReread(t *testing.T) {
	clock := newFakeClock()
	reader := &fakeReader{
		samples: map[string][]domain.ExecutionSample{
			"e1": {{TokensUsed: 1500, CreatedAt: clock.Now()}},
		},
	}
	svc := newTestService(reader, clock)
	engine := predictEngine()

	svc.Predict(context.Background(), engine, "u1")
	clock.Advance(5*time.Minute + time.Second)
	svc.Predict(context.Background(), engine, "u1")

	if reader.directCalls != 2 {
		t.Errorf("datastore reads = %d, want 2 (TTL elapsed)", reader.directCalls)
	}
}

func TestService_ClearCache(t *testing.T) {
	clock := newFakeClock()
	reader := &fakeReader{
		samples: map[string][]domain.ExecutionSample{
			"e1": {{TokensUsed: 1500, CreatedAt: clock.Now()}},
		},
	}
	svc := newTestService(reader, clock)
	engine := predictEngine()

	svc.Predict(context.Background(), engine, "")
	if svc.CachedPredictions() != 1 {
		t.Fatalf("CachedPredictions = %d, want 1", svc.CachedPredictions())
	}

	svc.ClearCache()
	if svc.CachedPredictions() != 0 {
		t.Errorf("CachedPredictions after clear = %d, want 0", svc.CachedPredictions())
	}

	svc.Predict(context.Background(), engine, "")
	if reader.directCalls != 2 {
		t.Errorf("datastore reads = %d, want 2 after cache clear", reader.directCalls)
	}
}

// ─── Weighted Average & Confidence ──────────────────────────────────────────

func TestWeightedEstimate(t *testing.T) {
	matches := []domain.SimilarEngine{
		{Similarity: 0.9, AverageTokens: 2000},
		{Similarity: 0.6, AverageTokens: 1000},
		{Similarity: 0.3, AverageTokens: 500},
	}

	tokens, mean := weightedEstimate(matches)

	// round((0.9*2000 + 0.6*1000 + 0.3*500) / 1.8) = round(2550/1.8)
	if tokens != 1417 {
		t.Errorf("tokens = %d, want 1417", tokens)
	}
	if math.Abs(mean-0.6) > 1e-9 {
		t.Errorf("mean similarity = %v, want 0.6", mean)
	}
}

func TestConfidenceFor_Thresholds(t *testing.T) {
	tests := []struct {
		mean float64
		want domain.Confidence
	}{
		{0.81, domain.ConfidenceHigh},
		{0.8, domain.ConfidenceMedium}, // boundary is strict
		{0.61, domain.ConfidenceMedium},
		{0.6, domain.ConfidenceLow}, // boundary is strict
		{0.3, domain.ConfidenceLow},
	}

	for _, tt := range tests {
		if got := confidenceFor(tt.mean); got != tt.want {
			t.Errorf("confidenceFor(%v) = %q, want %q", tt.mean, got, tt.want)
		}
	}
}

func TestSimilarityFactors(t *testing.T) {
	matches := []domain.SimilarEngine{
		{Similarity: 0.9, NodeCount: 4},
		{Similarity: 0.7, NodeCount: 8}, // exactly 0.7 is not "high"
		{Similarity: 0.75, NodeCount: 6},
	}

	got := similarityFactors(matches)
	want := []string{"high_similarity_4_nodes", "high_similarity_6_nodes"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("factors = %v, want %v", got, want)
	}
}

// ─── User Stats ─────────────────────────────────────────────────────────────

func TestUserStats(t *testing.T) {
	reader := &fakeReader{
		stats: domain.UserTokenStats{
			TotalTokens:         45000,
			AveragePerExecution: 1500,
			ExecutionCount:      30,
			LastExecution:       time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC),
		},
	}
	svc := newTestService(reader, newFakeClock())

	stats := svc.UserStats(context.Background(), "u1")
	if stats.TotalTokens != 45000 || stats.ExecutionCount != 30 {
		t.Errorf("stats = %+v, unexpected", stats)
	}
}

func TestUserStats_FailSoft(t *testing.T) {
	reader := &fakeReader{statsErr: errors.New("datastore unavailable")}
	svc := newTestService(reader, newFakeClock())

	stats := svc.UserStats(context.Background(), "u1")
	if stats != (domain.UserTokenStats{}) {
		t.Errorf("stats = %+v, want zero value on read failure", stats)
	}
}
