package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/longregen/gepa/internal/gepa"
)

// CandidateDeployment is a versioned record of a GEPA candidate promoted
// out of a run as the one currently in use. At most one deployment per run
// is active; promoting a new version deactivates the previous one, the
// same activate-on-promotion/deactivate-on-supersede pattern a versioned
// "current" record uses elsewhere in this package's domain.
type CandidateDeployment struct {
	ID            string
	RunID         string
	CandidateIdx  int
	Candidate     gepa.Candidate
	VersionNumber int
	Active        bool
	CreatedAt     time.Time
	ActivatedAt   *time.Time
	DeactivatedAt *time.Time
}

// Promote deactivates runID's current deployment, if any, and activates a
// new versioned deployment wrapping the candidate at programIdx. The
// deactivate-then-insert pair runs in one transaction, so a crash between
// them can never leave a run with zero or two active deployments.
func (s *GEPAStore) Promote(ctx context.Context, deploymentID, runID string, programIdx int) (*CandidateDeployment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var blob []byte
	err := s.conn(ctx).QueryRow(ctx, `SELECT state FROM gepa_runs WHERE id = $1`, runID).Scan(&blob)
	if err != nil {
		return nil, err
	}
	state, err := gepa.DecodeState(blob)
	if err != nil {
		return nil, err
	}
	if programIdx < 0 || programIdx >= len(state.Programs) {
		return nil, NewGEPAStoreError("candidate index out of range")
	}
	candidate := state.Programs[programIdx]

	candidateJSON, err := marshalJSONField(&candidate)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var nextVersion int
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.conn(ctx).QueryRow(ctx, `
			SELECT COALESCE(MAX(version_number), 0) + 1 FROM gepa_deployments WHERE run_id = $1`, runID).
			Scan(&nextVersion); err != nil {
			return err
		}

		if _, err := s.conn(ctx).Exec(ctx, `
			UPDATE gepa_deployments SET active = false, deactivated_at = now()
			WHERE run_id = $1 AND active = true`, runID); err != nil {
			return err
		}

		_, err := s.conn(ctx).Exec(ctx, `
			INSERT INTO gepa_deployments (id, run_id, candidate_idx, candidate, version_number, active, created_at, activated_at)
			VALUES ($1, $2, $3, $4, $5, true, $6, $6)`,
			deploymentID, runID, programIdx, candidateJSON, nextVersion, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &CandidateDeployment{
		ID: deploymentID, RunID: runID, CandidateIdx: programIdx, Candidate: candidate,
		VersionNumber: nextVersion, Active: true, CreatedAt: now, ActivatedAt: &now,
	}, nil
}

// ActiveDeployment returns runID's currently active deployment, if any.
func (s *GEPAStore) ActiveDeployment(ctx context.Context, runID string) (*CandidateDeployment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.conn(ctx).QueryRow(ctx, `
		SELECT id, run_id, candidate_idx, candidate, version_number, active, created_at, activated_at, deactivated_at
		FROM gepa_deployments WHERE run_id = $1 AND active = true`, runID)
	return scanDeployment(row)
}

func scanDeployment(row pgx.Row) (*CandidateDeployment, error) {
	var d CandidateDeployment
	var candidateJSON []byte
	if err := row.Scan(&d.ID, &d.RunID, &d.CandidateIdx, &candidateJSON, &d.VersionNumber,
		&d.Active, &d.CreatedAt, &d.ActivatedAt, &d.DeactivatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalJSONField(candidateJSON, &d.Candidate); err != nil {
		return nil, err
	}
	return &d, nil
}

// gepaStoreError is a sentinel error type for store-level validation
// failures that aren't a pgx error (e.g. an out-of-range candidate index).
type gepaStoreError struct{ msg string }

func (e *gepaStoreError) Error() string { return e.msg }

// NewGEPAStoreError builds a gepaStoreError.
func NewGEPAStoreError(msg string) error { return &gepaStoreError{msg: msg} }
