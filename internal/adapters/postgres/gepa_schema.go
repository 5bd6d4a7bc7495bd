package postgres

import "context"

// gepaSchema creates the tables GEPAStore needs. The repo carries no
// separate migration tool, so callers that pick --store=postgres run this
// once at startup; it's idempotent and safe to call on every boot.
const gepaSchema = `
CREATE TABLE IF NOT EXISTS gepa_runs (
	id             TEXT PRIMARY KEY,
	schema_version INTEGER NOT NULL,
	state          BYTEA NOT NULL,
	iteration      INTEGER NOT NULL,
	total_evals    INTEGER NOT NULL,
	best_score     DOUBLE PRECISION NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS gepa_candidates (
	run_id     TEXT NOT NULL REFERENCES gepa_runs(id) ON DELETE CASCADE,
	idx        INTEGER NOT NULL,
	candidate  JSONB NOT NULL,
	parent_ids JSONB NOT NULL,
	score      DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS gepa_candidates_run_id_score_idx
	ON gepa_candidates (run_id, score DESC);

CREATE TABLE IF NOT EXISTS gepa_deployments (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL REFERENCES gepa_runs(id) ON DELETE CASCADE,
	candidate_idx  INTEGER NOT NULL,
	candidate      JSONB NOT NULL,
	version_number INTEGER NOT NULL,
	active         BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL,
	activated_at   TIMESTAMPTZ,
	deactivated_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS gepa_deployments_run_id_active_idx
	ON gepa_deployments (run_id, active);
`

// EnsureSchema creates GEPAStore's tables if they don't already exist.
func (s *GEPAStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	_, err := s.Pool().Exec(ctx, gepaSchema)
	return err
}
