package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/tokensage/tokensage/internal/domain"
)

// ─── Execution History (domain.ExecutionReader) ─────────────────────────────
// Every aggregate here excludes NULL and non-positive token counts: a run
// that never reported usage carries no signal.

// RecentTokenCounts returns up to limit positive-token executions for the
// engine, newest first.
func (d *DB) RecentTokenCounts(ctx context.Context, engineID string, limit int) ([]domain.ExecutionSample, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT tokens_used, created_at
		 FROM engine_executions
		 WHERE engine_id = ? AND tokens_used > 0
		 ORDER BY created_at DESC
		 LIMIT ?`, engineID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.ExecutionSample
	for rows.Next() {
		var tokens int64
		var createdAt int64
		if err := rows.Scan(&tokens, &createdAt); err != nil {
			return nil, err
		}
		samples = append(samples, domain.ExecutionSample{
			TokensUsed: int(tokens),
			CreatedAt:  time.Unix(createdAt, 0),
		})
	}
	return samples, rows.Err()
}

// usageSampleLimit caps how many recent executions feed each candidate's
// average, matching the direct-lookup window.
const usageSampleLimit = 100

// EnginesWithUsage returns every engine holding at least one positive-token
// execution, each with its usage aggregate. One joined query — rows arrive
// grouped per engine, newest execution first, and are folded in a single
// pass with the per-engine sample cap applied here.
func (d *DB) EnginesWithUsage(ctx context.Context, userID string) ([]domain.EngineUsage, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT e.id, e.user_id, e.name, e.nodes, e.edges, e.metadata, e.tier,
		        e.created_at, e.updated_at, x.tokens_used
		 FROM ai_engines e
		 JOIN engine_executions x ON x.engine_id = e.id
		 WHERE x.tokens_used > 0 AND (? = '' OR e.user_id = ?)
		 ORDER BY e.id, x.created_at DESC`, userID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usages []domain.EngineUsage
	var current *engineAccum
	for rows.Next() {
		var e domain.Engine
		var nodes, edges, metadata, tier string
		var createdAt int64
		var updatedAt sql.NullInt64
		var tokens int64

		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &nodes, &edges, &metadata, &tier,
			&createdAt, &updatedAt, &tokens); err != nil {
			return nil, err
		}

		if current == nil || current.engine.ID != e.ID {
			if current != nil {
				usages = append(usages, current.finish())
			}
			eng, err := decodeEngine(e, nodes, edges, metadata, tier, createdAt, updatedAt)
			if err != nil {
				return nil, err
			}
			current = &engineAccum{engine: eng}
		}
		current.add(int(tokens))
	}
	if current != nil {
		usages = append(usages, current.finish())
	}
	return usages, rows.Err()
}

// UserExecutionStats aggregates a user's positive-token executions.
func (d *DB) UserExecutionStats(ctx context.Context, userID string) (domain.UserTokenStats, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(tokens_used), 0), COUNT(*), COALESCE(MAX(created_at), 0)
		 FROM engine_executions
		 WHERE user_id = ? AND tokens_used > 0`, userID,
	)

	var total, count, last int64
	if err := row.Scan(&total, &count, &last); err != nil {
		return domain.UserTokenStats{}, err
	}

	stats := domain.UserTokenStats{
		TotalTokens:    int(total),
		ExecutionCount: int(count),
	}
	if count > 0 {
		stats.AveragePerExecution = int(math.Round(float64(total) / float64(count)))
		stats.LastExecution = time.Unix(last, 0)
	}
	return stats, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// engineAccum folds an engine's execution rows into a usage aggregate.
type engineAccum struct {
	engine domain.Engine
	total  int
	count  int
}

func (a *engineAccum) add(tokens int) {
	if a.count >= usageSampleLimit {
		return
	}
	a.total += tokens
	a.count++
}

func (a *engineAccum) finish() domain.EngineUsage {
	avg := 0
	if a.count > 0 {
		avg = int(math.Round(float64(a.total) / float64(a.count)))
	}
	return domain.EngineUsage{
		Engine:        a.engine,
		AverageTokens: avg,
		SampleSize:    a.count,
	}
}

// decodeEngine rebuilds a domain.Engine from its scanned columns.
func decodeEngine(e domain.Engine, nodes, edges, metadata, tier string, createdAt int64, updatedAt sql.NullInt64) (domain.Engine, error) {
	var out domain.Engine
	out.ID, out.UserID, out.Name = e.ID, e.UserID, e.Name
	if err := unmarshalJSON(nodes, &out.Nodes); err != nil {
		return out, err
	}
	if err := unmarshalJSON(edges, &out.Edges); err != nil {
		return out, err
	}
	if err := unmarshalJSON(metadata, &out.Metadata); err != nil {
		return out, err
	}
	out.Tier = domain.Tier(tier)
	out.CreatedAt = time.Unix(createdAt, 0)
	if updatedAt.Valid {
		out.UpdatedAt = time.Unix(updatedAt.Int64, 0)
	}
	return out, nil
}

func unmarshalJSON(s string, v any) error {
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode engine json: %w", err)
	}
	return nil
}
