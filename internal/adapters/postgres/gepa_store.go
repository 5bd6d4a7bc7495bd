package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/longregen/gepa/internal/gepa"
)

// gepaStateSchemaVersion tags the state blob so a future incompatible
// layout change can be detected on load instead of decoded into garbage.
// Kept in lockstep with gepa.EncodeState/DecodeState's own schema guard.
const gepaStateSchemaVersion = 2

// RunSummary is a single row of ListRuns output: enough to render a table
// without decoding the full state blob.
type RunSummary struct {
	ID         string
	Iteration  int
	TotalEvals int
	BestScore  float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GEPAStore is a Postgres-backed alternative to the file-based run_dir:
// SaveState/LoadState snapshot the whole State, upserted by run ID, the
// same pattern prompt_optimization_runs uses for CreateRun/UpdateRun. It
// additionally keeps a per-candidate history table that can be queried
// without decoding the snapshot blob.
type GEPAStore struct {
	BaseRepository
	tx *TransactionManager
}

// NewGEPAStore creates a new GEPA Postgres store.
func NewGEPAStore(pool *pgxpool.Pool) *GEPAStore {
	return &GEPAStore{BaseRepository: NewBaseRepository(pool), tx: NewTransactionManager(pool)}
}

// SaveState upserts the full State snapshot for runID, then replaces the
// per-candidate history rows to match, inside one transaction so a crash
// between the two writes can never leave gepa_candidates out of sync with
// the snapshot it was derived from.
func (s *GEPAStore) SaveState(ctx context.Context, runID string, state *gepa.State) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	blob, err := gepa.EncodeState(state)
	if err != nil {
		return err
	}

	best := state.BestProgram()
	bestScore := state.AggregateScore(best)

	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := s.conn(ctx).Exec(ctx, `
			INSERT INTO gepa_runs (id, schema_version, state, iteration, total_evals, best_score, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (id) DO UPDATE SET
				schema_version = EXCLUDED.schema_version,
				state = EXCLUDED.state,
				iteration = EXCLUDED.iteration,
				total_evals = EXCLUDED.total_evals,
				best_score = EXCLUDED.best_score,
				updated_at = now()`,
			runID, gepaStateSchemaVersion, blob, state.I, state.TotalEvals, bestScore)
		if err != nil {
			return err
		}

		if _, err := s.conn(ctx).Exec(ctx, `DELETE FROM gepa_candidates WHERE run_id = $1`, runID); err != nil {
			return err
		}
		for idx, candidate := range state.Programs {
			score := state.AggregateScore(idx)
			parents := state.Parents[idx]
			candidateJSON, err := marshalJSONField(&candidate)
			if err != nil {
				return err
			}
			parentJSON, err := marshalJSONField(&parents)
			if err != nil {
				return err
			}
			_, err = s.conn(ctx).Exec(ctx, `
				INSERT INTO gepa_candidates (run_id, idx, candidate, parent_ids, score, created_at)
				VALUES ($1, $2, $3, $4, $5, now())`,
				runID, idx, candidateJSON, parentJSON, score)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// LoadState retrieves the most recently saved snapshot for runID. Returns
// an error satisfying IsNotFound when no run has been saved under that ID.
func (s *GEPAStore) LoadState(ctx context.Context, runID string) (*gepa.State, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var blob []byte
	err := s.conn(ctx).QueryRow(ctx, `SELECT state FROM gepa_runs WHERE id = $1`, runID).Scan(&blob)
	if err != nil {
		return nil, err
	}
	return gepa.DecodeState(blob)
}

// ListRuns returns run summaries ordered by most recently updated first.
func (s *GEPAStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.conn(ctx).Query(ctx, `
		SELECT id, iteration, total_evals, best_score, created_at, updated_at
		FROM gepa_runs ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Iteration, &r.TotalEvals, &r.BestScore, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run's snapshot and candidate history.
func (s *GEPAStore) DeleteRun(ctx context.Context, runID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.conn(ctx).Exec(ctx, `DELETE FROM gepa_runs WHERE id = $1`, runID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	_, err = s.conn(ctx).Exec(ctx, `DELETE FROM gepa_candidates WHERE run_id = $1`, runID)
	return err
}

// IsNotFound reports whether err is the "no such run" sentinel LoadState
// and DeleteRun return.
func IsNotFound(err error) bool {
	return checkNoRows(err)
}
