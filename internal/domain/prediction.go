package domain

import "time"

// ─── Engine Characteristics ─────────────────────────────────────────────────

// Complexity summarizes the structural shape of an engine.
type Complexity struct {
	NodeCount         int           `json:"node_count"`
	EdgeCount         int           `json:"edge_count"`
	AINodeCount       int           `json:"ai_node_count"`
	ModelCount        int           `json:"model_count"`
	HasConditionals   bool          `json:"has_conditionals"`
	HasLoops          bool          `json:"has_loops"`
	HasDataProcessing bool          `json:"has_data_processing"`
	ContentLength     ContentLength `json:"content_length"`
}

// Characteristics is the feature vector derived from an engine definition.
// It is ephemeral: recomputed per prediction, never persisted. Models is
// kept sorted so equal engines yield byte-identical characteristics.
type Characteristics struct {
	NodeTypeCounts map[NodeType]int `json:"node_type_counts"`
	Models         []string         `json:"models"`
	Complexity     Complexity       `json:"complexity"`
	Tier           Tier             `json:"tier"`
}

// ─── Historical Data ────────────────────────────────────────────────────────

// ExecutionSample is one historical execution's token count, as read from
// the executions table. TokensUsed is always positive — zero/null rows are
// filtered at the store.
type ExecutionSample struct {
	TokensUsed int       `json:"tokens_used"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExecutionRecord is a full execution row, written when an engine run
// completes.
type ExecutionRecord struct {
	ID         string    `json:"id"`
	EngineID   string    `json:"engine_id"`
	UserID     string    `json:"user_id,omitempty"`
	TokensUsed int       `json:"tokens_used"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// TokenAggregate is the direct historical summary for a single engine.
type TokenAggregate struct {
	AverageTokens int       `json:"average_tokens"`
	MinTokens     int       `json:"min_tokens"`
	MaxTokens     int       `json:"max_tokens"`
	SampleSize    int       `json:"sample_size"`
	LastUpdated   time.Time `json:"last_updated"`
}

// EngineUsage pairs an engine definition with its aggregated token usage.
// Produced by a single joined query — one row per engine that has at least
// one positive-token execution.
type EngineUsage struct {
	Engine        Engine `json:"engine"`
	AverageTokens int    `json:"average_tokens"`
	SampleSize    int    `json:"sample_size"`
}

// SimilarEngine is a scored match against another engine's history.
type SimilarEngine struct {
	EngineID      string  `json:"engine_id"`
	EngineName    string  `json:"engine_name"`
	Similarity    float64 `json:"similarity"`
	AverageTokens int     `json:"average_tokens"`
	NodeCount     int     `json:"node_count"`
	SampleSize    int     `json:"sample_size"`
}

// ─── Prediction ─────────────────────────────────────────────────────────────

// Confidence labels estimate quality for the caller's UI.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Method records which strategy produced a prediction.
type Method string

const (
	// MethodHistorical: enough direct execution records existed.
	MethodHistorical Method = "historical"
	// MethodSimilarity: estimated from structurally similar engines.
	MethodSimilarity Method = "similarity"
	// MethodFallback: everything failed; the estimate is a placeholder.
	MethodFallback Method = "fallback"
)

// Prediction is the token-consumption estimate returned to callers.
// Method-specific fields are zero-valued when not applicable.
type Prediction struct {
	Tokens     int        `json:"tokens"`
	Confidence Confidence `json:"confidence"`
	Method     Method     `json:"method"`

	// Historical method
	SampleSize  int       `json:"sample_size,omitempty"`
	MinTokens   int       `json:"min_tokens,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	LastUpdated time.Time `json:"last_updated,omitzero"`

	// Similarity method
	SimilarEngines  []SimilarEngine `json:"similar_engines,omitempty"`
	SimilarityScore float64         `json:"similarity_score,omitempty"`
	Factors         []string        `json:"factors,omitempty"`

	// Fallback method
	Error string `json:"error,omitempty"`
}

// UserTokenStats aggregates a user's own execution history.
type UserTokenStats struct {
	TotalTokens         int       `json:"total_tokens"`
	AveragePerExecution int       `json:"average_per_execution"`
	ExecutionCount      int       `json:"execution_count"`
	LastExecution       time.Time `json:"last_execution,omitzero"`
}
