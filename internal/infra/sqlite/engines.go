package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tokensage/tokensage/internal/domain"
)

// ─── Engine Repository ──────────────────────────────────────────────────────

// UpsertEngine inserts or updates an engine definition.
func (d *DB) UpsertEngine(ctx context.Context, e domain.Engine) error {
	if e.ID == "" || e.Name == "" {
		return domain.ErrEngineInvalid
	}

	nodes, err := json.Marshal(e.Nodes)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	edges, err := json.Marshal(e.Edges)
	if err != nil {
		return fmt.Errorf("marshal edges: %w", err)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO ai_engines (id, user_id, name, nodes, edges, metadata, tier, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			user_id=excluded.user_id,
			name=excluded.name,
			nodes=excluded.nodes,
			edges=excluded.edges,
			metadata=excluded.metadata,
			tier=excluded.tier,
			updated_at=excluded.updated_at`,
		e.ID, e.UserID, e.Name, string(nodes), string(edges), string(metadata),
		string(e.EffectiveTier()), createdAt.Unix(), time.Now().Unix(),
	)
	return err
}

// GetEngine retrieves a single engine by ID. Returns (nil, nil) when the
// engine does not exist.
func (d *DB) GetEngine(ctx context.Context, id string) (*domain.Engine, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, nodes, edges, metadata, tier, created_at, updated_at
		 FROM ai_engines WHERE id = ?`, id,
	)
	return scanEngine(row)
}

// ListEngines returns engines ordered newest-first. An empty userID lists
// the whole fleet.
func (d *DB) ListEngines(ctx context.Context, userID string) ([]domain.Engine, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, name, nodes, edges, metadata, tier, created_at, updated_at
		 FROM ai_engines
		 WHERE (? = '' OR user_id = ?)
		 ORDER BY created_at DESC`, userID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var engines []domain.Engine
	for rows.Next() {
		e, err := scanEngine(rows)
		if err != nil {
			return nil, err
		}
		engines = append(engines, *e)
	}
	return engines, rows.Err()
}

// DeleteEngine removes an engine and its execution history.
func (d *DB) DeleteEngine(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM ai_engines WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrEngineNotFound
	}
	_, err = d.db.ExecContext(ctx, `DELETE FROM engine_executions WHERE engine_id = ?`, id)
	return err
}

// ─── Execution Recording ────────────────────────────────────────────────────

// InsertExecution records a completed engine run. A missing ID is filled
// with a fresh UUID; a missing timestamp with now.
func (d *DB) InsertExecution(ctx context.Context, rec domain.ExecutionRecord) error {
	if rec.EngineID == "" {
		return domain.ErrExecutionInvalid
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = "completed"
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	// NULL rather than 0 when the meter reported nothing
	tokens := sql.NullInt64{}
	if rec.TokensUsed > 0 {
		tokens = sql.NullInt64{Int64: int64(rec.TokensUsed), Valid: true}
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO engine_executions (id, engine_id, user_id, tokens_used, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EngineID, rec.UserID, tokens, rec.Status, createdAt.Unix(),
	)
	return err
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func scanEngine(s scanner) (*domain.Engine, error) {
	var e domain.Engine
	var nodes, edges, metadata, tier string
	var createdAt int64
	var updatedAt sql.NullInt64

	err := s.Scan(&e.ID, &e.UserID, &e.Name, &nodes, &edges, &metadata, &tier, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(nodes), &e.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal([]byte(edges), &e.Edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	e.Tier = domain.Tier(tier)
	e.CreatedAt = time.Unix(createdAt, 0)
	if updatedAt.Valid {
		e.UpdatedAt = time.Unix(updatedAt.Int64, 0)
	}
	return &e, nil
}
