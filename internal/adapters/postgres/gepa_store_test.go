package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/longregen/gepa/internal/gepa"
	"github.com/pashagolub/pgxmock/v4"
)

func testState() *gepa.State {
	s := gepa.NewState(gepa.Candidate{"instruction": "seed"}, map[string]float64{"a": 0.5}, []string{"a"})
	s.AddProgram(gepa.Candidate{"instruction": "better"}, []int{0}, map[string]float64{"a": 0.8})
	return s
}

func TestGEPAStore_SaveState(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := &GEPAStore{BaseRepository: BaseRepository{pool: nil}}
	state := testState()

	mock.ExpectExec("INSERT INTO gepa_runs").
		WithArgs("run_1", gepaStateSchemaVersion, pgxmock.AnyArg(), state.I, state.TotalEvals, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM gepa_candidates").
		WithArgs("run_1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	for idx := range state.Programs {
		mock.ExpectExec("INSERT INTO gepa_candidates").
			WithArgs("run_1", idx, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	ctx := setupMockContext(mock)
	if err := store.SaveState(ctx, "run_1", state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGEPAStore_LoadState(t *testing.T) {
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

	rows := pgxmock.NewRows([]string{"state"}).AddRow(blob)
	mock.ExpectQuery("SELECT state FROM gepa_runs").
		WithArgs("run_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	loaded, err := store.LoadState(ctx, "run_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.I != state.I {
		t.Errorf("expected I %d, got %d", state.I, loaded.I)
	}
	if len(loaded.Programs) != len(state.Programs) {
		t.Errorf("expected %d programs, got %d", len(state.Programs), len(loaded.Programs))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGEPAStore_LoadState_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := &GEPAStore{BaseRepository: BaseRepository{pool: nil}}

	mock.ExpectQuery("SELECT state FROM gepa_runs").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	ctx := setupMockContext(mock)
	_, err = store.LoadState(ctx, "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected IsNotFound error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGEPAStore_ListRuns(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := &GEPAStore{BaseRepository: BaseRepository{pool: nil}}

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "iteration", "total_evals", "best_score", "created_at", "updated_at"}).
		AddRow("run_1", 3, 30, 0.9, now, now).
		AddRow("run_2", 1, 10, 0.5, now, now)

	mock.ExpectQuery("SELECT (.+) FROM gepa_runs").
		WithArgs(50).
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	summaries, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].ID != "run_1" || summaries[0].BestScore != 0.9 {
		t.Errorf("unexpected first summary: %+v", summaries[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGEPAStore_DeleteRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := &GEPAStore{BaseRepository: BaseRepository{pool: nil}}

	mock.ExpectExec("DELETE FROM gepa_runs").
		WithArgs("run_1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM gepa_candidates").
		WithArgs("run_1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	ctx := setupMockContext(mock)
	if err := store.DeleteRun(ctx, "run_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGEPAStore_DeleteRun_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := &GEPAStore{BaseRepository: BaseRepository{pool: nil}}

	mock.ExpectExec("DELETE FROM gepa_runs").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ctx := setupMockContext(mock)
	err = store.DeleteRun(ctx, "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected IsNotFound error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
