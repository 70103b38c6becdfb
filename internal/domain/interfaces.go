package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// ExecutionReader is the narrow read contract the predictor depends on.
// It is deliberately small so tests can supply an in-memory fake instead
// of a real datastore.
type ExecutionReader interface {
	// RecentTokenCounts returns up to limit executions for the engine,
	// newest first, restricted to rows with a positive token count.
	RecentTokenCounts(ctx context.Context, engineID string, limit int) ([]ExecutionSample, error)

	// EnginesWithUsage returns every engine that has at least one
	// positive-token execution, each with its own usage aggregate.
	// A single joined query — no per-engine round trips. userID may be
	// empty to scan the whole fleet.
	EnginesWithUsage(ctx context.Context, userID string) ([]EngineUsage, error)

	// UserExecutionStats aggregates token usage across a user's
	// executions.
	UserExecutionStats(ctx context.Context, userID string) (UserTokenStats, error)
}

// EngineStore abstracts persistent engine and execution storage.
type EngineStore interface {
	UpsertEngine(ctx context.Context, e Engine) error
	GetEngine(ctx context.Context, id string) (*Engine, error)
	ListEngines(ctx context.Context, userID string) ([]Engine, error)
	DeleteEngine(ctx context.Context, id string) error

	// InsertExecution records a completed engine run and its token usage.
	InsertExecution(ctx context.Context, rec ExecutionRecord) error
}
