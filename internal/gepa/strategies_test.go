package gepa

import "testing"

func TestCandidateSelector_CurrentBestTieBrokenByIndex(t *testing.T) {
	seed := Candidate{"inst": "x"}
	s := NewState(seed, map[string]float64{"c": 0.5}, []string{"c"})
	s.AddProgram(Candidate{"inst": "y"}, []int{0}, map[string]float64{"c": 0.5})

	sel := CandidateSelector{Kind: CandidateSelectorCurrentBest}
	if got := sel.Select(s, NewRNG(1)); got != 0 {
		t.Fatalf("expected tie broken toward lower index 0, got %d", got)
	}
}

func TestCandidateSelector_EpsilonGreedyAlwaysConsumesFirstDraw(t *testing.T) {
	seed := Candidate{"inst": "x"}
	s := NewState(seed, map[string]float64{"c": 0.5}, []string{"c"})

	sel := CandidateSelector{Kind: CandidateSelectorEpsilonGreedy, Epsilon: 0}
	rngA := NewRNG(42)
	rngB := NewRNG(42)
	gotA := sel.Select(s, rngA)
	gotB := sel.Select(s, rngB)
	if gotA != gotB {
		t.Fatalf("same seed must produce same selection: %d vs %d", gotA, gotB)
	}
}

func TestComponentSelector_RoundRobinUsesNextComponentFor(t *testing.T) {
	seed := Candidate{"a": "1", "b": "2"}
	s := NewState(seed, map[string]float64{"c": 0.5}, []string{"c"})
	s.NextComponentFor[0] = 1

	sel := ComponentSelector{Kind: ComponentSelectorRoundRobin}
	got := sel.Select(s, 0)
	if len(got) != 1 || got[0] != s.ComponentNames[1] {
		t.Fatalf("expected [%s], got %v", s.ComponentNames[1], got)
	}
}

func TestComponentSelector_All(t *testing.T) {
	seed := Candidate{"a": "1", "b": "2"}
	s := NewState(seed, map[string]float64{"c": 0.5}, []string{"c"})

	sel := ComponentSelector{Kind: ComponentSelectorAll}
	got := sel.Select(s, 0)
	if len(got) != 2 {
		t.Fatalf("expected all %d components, got %v", len(s.ComponentNames), got)
	}
}

func TestBatchSampler_SimpleIsDeterministicAndCircular(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	sampler := NewSimpleBatchSampler(2)

	got0 := sampler.Sample(0, ids)
	if len(got0) != 2 || got0[0] != "a" || got0[1] != "b" {
		t.Fatalf("expected [a b], got %v", got0)
	}

	// i=2 -> start = (2*2) mod 5 = 4 -> wraps around to [e, a]
	got2 := sampler.Sample(2, ids)
	if len(got2) != 2 || got2[0] != "e" || got2[1] != "a" {
		t.Fatalf("expected wraparound [e a], got %v", got2)
	}
}

func TestBatchSampler_EpochShuffledAlwaysReturnsMIDs(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	sampler := NewEpochShuffledBatchSampler(2, 7)

	for i := 0; i < 10; i++ {
		batch := sampler.Sample(i, ids)
		if len(batch) != 2 {
			t.Fatalf("iteration %d: expected batch of size 2, got %d", i, len(batch))
		}
	}
}

func TestBatchSampler_EpochShuffledDeterministic(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	s1 := NewEpochShuffledBatchSampler(2, 7)
	s2 := NewEpochShuffledBatchSampler(2, 7)

	for i := 0; i < 6; i++ {
		b1 := s1.Sample(i, ids)
		b2 := s2.Sample(i, ids)
		if len(b1) != len(b2) {
			t.Fatalf("iteration %d: length mismatch", i)
		}
		for j := range b1 {
			if b1[j] != b2[j] {
				t.Fatalf("iteration %d: same seed diverged: %v vs %v", i, b1, b2)
			}
		}
	}
}

func TestEvaluationPolicy_FullReturnsEntireValset(t *testing.T) {
	p := EvaluationPolicy{Kind: EvaluationPolicyFull}
	ids := []string{"a", "b", "c"}
	got := p.EvalBatch(0, ids, 0)
	if len(got) != 3 {
		t.Fatalf("expected all 3 valset ids, got %v", got)
	}
}

func TestEvaluationPolicy_IncrementalGrowsAndGraduates(t *testing.T) {
	p := NewIncrementalEvaluationPolicy(1, 1, 3, 0.9)
	ids := []string{"a", "b", "c"}

	first := p.EvalBatch(0, ids, 0.0)
	if len(first) != 1 {
		t.Fatalf("expected initial_n=1, got %v", first)
	}

	second := p.EvalBatch(0, ids, 0.5)
	if len(second) != 2 {
		t.Fatalf("expected growth by step=1 to 2, got %v", second)
	}

	third := p.EvalBatch(0, ids, 0.95)
	if len(third) != 3 {
		t.Fatalf("expected graduation to full valset once threshold exceeded, got %v", third)
	}
}
