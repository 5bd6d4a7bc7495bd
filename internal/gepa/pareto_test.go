package gepa

import "testing"

func TestIsDominated_SelfNeverDominated(t *testing.T) {
	ps := ParetoSet{"c1": {0}}
	if isDominated(0, map[int]bool{0: true}, ps) {
		t.Fatal("a program must never dominate itself")
	}
}

func TestIsDominated_TiesPreserveNonDomination(t *testing.T) {
	ps := ParetoSet{"c1": {0, 1}}
	out := removeDominated(ps, map[int]float64{0: 0.5, 1: 0.5})
	if !containsInt(out["c1"], 0) || !containsInt(out["c1"], 1) {
		t.Fatal("sharing a front with an equally scored program must not count as dominated")
	}
}

func TestRemoveDominated_AloneOnFrontNeverRemoved(t *testing.T) {
	ps := ParetoSet{
		"c1": {0},
		"c2": {0, 1},
	}
	scores := map[int]float64{0: 0.9, 1: 0.5}
	out := removeDominated(ps, scores)
	if !containsInt(out["c1"], 0) {
		t.Fatal("program alone on a front must survive removeDominated")
	}
}

func TestRemoveDominated_EveryNonEmptyFrontStaysNonEmpty(t *testing.T) {
	ps := ParetoSet{
		"c1": {0, 1},
		"c2": {1},
	}
	scores := map[int]float64{0: 0.9, 1: 0.1}
	out := removeDominated(ps, scores)
	for v, front := range ps {
		if len(front) > 0 && len(out[v]) == 0 {
			t.Fatalf("front %s became empty after removeDominated", v)
		}
	}
}

func TestRemoveDominated_DominatedByStrictlyHigherScoreOnEveryFront(t *testing.T) {
	// program 1 appears only alongside program 0 on both fronts it occupies,
	// and 0 scores strictly higher everywhere -> 1 is dominated.
	ps := ParetoSet{
		"c1": {0, 1},
		"c2": {0, 1},
	}
	scores := map[int]float64{0: 0.9, 1: 0.5}
	out := removeDominated(ps, scores)
	if containsInt(out["c1"], 1) || containsInt(out["c2"], 1) {
		t.Fatal("program 1 should have been removed as dominated")
	}
	if !containsInt(out["c1"], 0) || !containsInt(out["c2"], 0) {
		t.Fatal("program 0 must survive")
	}
}

func TestSelectFromFront_ReturnsOccupant(t *testing.T) {
	ps := ParetoSet{"c1": {2}, "c2": {2, 3}}
	scores := map[int]float64{2: 0.8, 3: 0.2}
	rng := NewRNG(1)
	for i := 0; i < 20; i++ {
		idx, ok := selectFromFront(ps, scores, rng)
		if !ok {
			t.Fatal("expected a selection when fronts are non-empty")
		}
		if idx != 2 && idx != 3 {
			t.Fatalf("selected program %d does not occupy any front", idx)
		}
	}
}

func TestSelectFromFront_EmptyInput(t *testing.T) {
	_, ok := selectFromFront(ParetoSet{}, map[int]float64{}, NewRNG(1))
	if ok {
		t.Fatal("expected no selection from an empty pareto set")
	}
}

func TestFindDominators_ScenarioC(t *testing.T) {
	// Seed 0 scores (0.4, 0.9); child 1 scores (0.9, 0.4); child 2 scores
	// (0.7, 0.7). Program 2 occupies no front, so find_dominators excludes
	// it even though it is not literally "removed".
	ps := ParetoSet{
		"c1": {1}, // 1 is best on c1 (0.9 > 0.7 > 0.4)
		"c2": {0}, // 0 is best on c2 (0.9 > 0.7 > 0.4)
	}
	scores := map[int]float64{0: 0.65, 1: 0.65, 2: 0.7}
	got := findDominators(ps, scores)
	want := map[int]bool{0: true, 1: true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want programs %v", got, want)
	}
	for _, p := range got {
		if !want[p] {
			t.Fatalf("unexpected dominator %d", p)
		}
	}
	for p := range want {
		if !containsInt(got, p) {
			t.Fatalf("missing expected dominator %d", p)
		}
	}
}

func TestFindDominators_SortedDescendingByScore(t *testing.T) {
	ps := ParetoSet{"c1": {0}, "c2": {1}}
	scores := map[int]float64{0: 0.3, 1: 0.9}
	got := findDominators(ps, scores)
	if len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Fatalf("expected [1, 0], got %v", got)
	}
}
