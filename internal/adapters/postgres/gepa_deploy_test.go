package postgres

import (
	"testing"
	"time"

	"github.com/longregen/gepa/internal/gepa"
	"github.com/pashagolub/pgxmock/v4"
)

func TestGEPAStore_Promote(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := &GEPAStore{BaseRepository: BaseRepository{pool: nil}}
	state := testState()
	blob, err := gepa.EncodeState(state)
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery("SELECT state FROM gepa_runs").
		WithArgs("run_1").
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(blob))
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("run_1").
		WillReturnRows(pgxmock.NewRows([]string{"next"}).AddRow(1))
	mock.ExpectExec("UPDATE gepa_deployments").
		WithArgs("run_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("INSERT INTO gepa_deployments").
		WithArgs("dep_1", "run_1", 1, pgxmock.AnyArg(), 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	dep, err := store.Promote(ctx, "dep_1", "run_1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dep.Active || dep.VersionNumber != 1 || dep.CandidateIdx != 1 {
		t.Errorf("unexpected deployment: %+v", dep)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGEPAStore_Promote_OutOfRange(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := &GEPAStore{BaseRepository: BaseRepository{pool: nil}}
	state := testState()
	blob, err := gepa.EncodeState(state)
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery("SELECT state FROM gepa_runs").
		WithArgs("run_1").
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(blob))

	ctx := setupMockContext(mock)
	_, err = store.Promote(ctx, "dep_1", "run_1", 99)
	if err == nil {
		t.Fatal("expected an out-of-range error")
	}
}

func TestGEPAStore_ActiveDeployment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := &GEPAStore{BaseRepository: BaseRepository{pool: nil}}
	now := time.Now()
	candidateJSON := []byte(`{"instruction":"better"}`)
	rows := pgxmock.NewRows([]string{
		"id", "run_id", "candidate_idx", "candidate", "version_number",
		"active", "created_at", "activated_at", "deactivated_at",
	}).AddRow("dep_1", "run_1", 1, candidateJSON, 1, true, now, &now, nil)

	mock.ExpectQuery("SELECT (.+) FROM gepa_deployments").
		WithArgs("run_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	dep, err := store.ActiveDeployment(ctx, "run_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dep.Candidate["instruction"] != "better" {
		t.Errorf("unexpected candidate: %+v", dep.Candidate)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
