package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Engine errors
	ErrEngineNotFound = errors.New("engine not found")
	ErrEngineInvalid  = errors.New("engine definition is invalid")

	// Execution errors
	ErrExecutionInvalid = errors.New("execution record is invalid")
)
