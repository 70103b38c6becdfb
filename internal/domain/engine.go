// Package domain defines the core types for tokensage: engines (directed
// graphs of AI processing nodes), their execution history, and token-usage
// predictions. Domain types are pure — no infrastructure dependency.
package domain

import (
	"strings"
	"time"
)

// NodeType is the string tag classifying an engine node. The set is open:
// callers may supply tags beyond the named constants, which is why the
// classifier methods below match by convention rather than enumeration.
type NodeType string

const (
	NodeInput         NodeType = "input"
	NodeOutput        NodeType = "output"
	NodeConditional   NodeType = "conditional"
	NodeLoop          NodeType = "loop"
	NodeAICall        NodeType = "ai_call"
	NodeLLMChain      NodeType = "llm_chain"
	NodeDataTransform NodeType = "data_transform"
	NodeProcessText   NodeType = "process_text"
)

// IsAI reports whether the node invokes an AI model. Matches "ai" or "llm"
// anywhere in the tag — the convention used by engine authors (e.g.
// "ai_call", "llm_chain", "ai_image"). Substring matching is intentional:
// the tag set is open.
func (t NodeType) IsAI() bool {
	s := string(t)
	return strings.Contains(s, "ai") || strings.Contains(s, "llm")
}

// IsConditional reports whether the node is a branch point.
func (t NodeType) IsConditional() bool { return t == NodeConditional }

// IsLoop reports whether the node is a loop construct.
func (t NodeType) IsLoop() bool { return t == NodeLoop }

// IsDataProcessing reports whether the node transforms data between AI
// calls. Matches "data" or "process" anywhere in the tag.
func (t NodeType) IsDataProcessing() bool {
	s := string(t)
	return strings.Contains(s, "data") || strings.Contains(s, "process")
}

// Tier is the plan tier an engine belongs to.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierBusiness   Tier = "business"
	TierEnterprise Tier = "enterprise"
)

// DefaultTier is assumed when an engine carries no tier.
const DefaultTier = TierPro

// ContentLength is the coarse expected output size of an engine.
type ContentLength string

const (
	ContentShort  ContentLength = "short"
	ContentMedium ContentLength = "medium"
	ContentLong   ContentLength = "long"
)

// NodeData is the per-node payload. Model is the AI model identifier for
// AI nodes; it is empty for structural nodes.
type NodeData struct {
	Model  string            `json:"model,omitempty"`
	Prompt string            `json:"prompt,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

// Node is a single step in an engine graph.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	Data NodeData `json:"data"`
}

// Edge connects two nodes. The predictor only counts edges; it does not
// interpret the graph structurally.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Metadata carries free-form engine annotations. ContentLength may be
// empty; consumers default it to medium.
type Metadata struct {
	ContentLength ContentLength     `json:"content_length,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"`
}

// Engine is a configurable pipeline of AI calls — the unit of prediction.
type Engine struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	Metadata  Metadata  `json:"metadata"`
	Tier      Tier      `json:"tier"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// EffectiveTier returns the engine's tier, defaulting to pro.
func (e *Engine) EffectiveTier() Tier {
	if e.Tier == "" {
		return DefaultTier
	}
	return e.Tier
}

// EffectiveContentLength returns the expected content length, defaulting
// to medium.
func (e *Engine) EffectiveContentLength() ContentLength {
	if e.Metadata.ContentLength == "" {
		return ContentMedium
	}
	return e.Metadata.ContentLength
}
