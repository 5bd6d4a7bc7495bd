package gepa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scoringAdapter scores each instance by the fraction of a fixed target's
// characters that component text "a" matches position by position,
// deterministically and without
// any LLM call — enough to drive the reflective proposer's TextProposer
// extension point end to end.
type scoringAdapter struct {
	target string
}

func (s scoringAdapter) Evaluate(_ context.Context, batch []Instance, candidate Candidate, _ bool) (EvaluationBatch, error) {
	out := EvaluationBatch{Outputs: make([]any, len(batch)), Scores: make([]float64, len(batch)), Trajectories: make([]Trajectory, len(batch))}
	score := matchScore(candidate["a"], s.target)
	for i := range batch {
		out.Scores[i] = score
	}
	return out, nil
}

func (s scoringAdapter) MakeReflectiveDataset(_ context.Context, _ Candidate, _ EvaluationBatch, components []string) (map[string][]ReflectiveRecord, error) {
	out := make(map[string][]ReflectiveRecord, len(components))
	for _, c := range components {
		out[c] = []ReflectiveRecord{}
	}
	return out, nil
}

func (s scoringAdapter) ProposeNewTexts(_ context.Context, candidate Candidate, _ map[string][]ReflectiveRecord, components []string) (map[string]string, error) {
	out := make(map[string]string, len(components))
	for _, c := range components {
		if c == "a" {
			out[c] = s.target[:min(len(candidate[c])+2, len(s.target))]
		}
	}
	return out, nil
}

func matchScore(text, target string) float64 {
	n := min(len(text), len(target))
	matches := 0
	for i := 0; i < n; i++ {
		if text[i] == target[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(target))
}

func TestEngine_Run_ImprovesTowardPerfectScore(t *testing.T) {
	adapter := scoringAdapter{target: "abcdefghij"}
	loader := listLoader{ids: []string{"t1", "t2", "t3", "t4"}}

	cfg := RunConfig{
		SeedCandidate:           Candidate{"a": ""},
		Trainset:                loader,
		Valset:                  loader,
		Adapter:                 adapter,
		MaxMetricCalls:          500,
		ReflectionMinibatchSize: 2,
		PerfectScore:            1.0,
		SkipPerfectScore:        true,
		CandidateSelector:       CandidateSelector{Kind: CandidateSelectorPareto},
		ComponentSelector:       ComponentSelector{Kind: ComponentSelectorAll},
		BatchSampler:            NewSimpleBatchSampler(2),
		EvaluationPolicy:        EvaluationPolicy{Kind: EvaluationPolicyFull},
		StopConditions:          []StopCondition{MaxCalls{N: 400}},
		Seed:                    7,
	}

	state, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, state)

	best := state.BestProgram()
	assert.Greater(t, state.AggregateScore(best), 0.0, "expected the run to discover an improved candidate")
	assert.GreaterOrEqual(t, len(state.Programs), 1)
}

func TestEngine_Run_InvalidConfigRejected(t *testing.T) {
	_, err := Run(context.Background(), RunConfig{})
	assert.Error(t, err)
}

func TestEngine_Run_IncrementalPolicyGrowsBestProgramPastInitialBatch(t *testing.T) {
	adapter := scoringAdapter{target: "abcdefghij"}
	loader := listLoader{ids: []string{"t1", "t2", "t3", "t4", "t5", "t6"}}

	cfg := RunConfig{
		SeedCandidate:           Candidate{"a": ""},
		Trainset:                loader,
		Valset:                  loader,
		Adapter:                 adapter,
		MaxMetricCalls:          500,
		ReflectionMinibatchSize: 2,
		PerfectScore:            1.0,
		SkipPerfectScore:        true,
		CandidateSelector:       CandidateSelector{Kind: CandidateSelectorPareto},
		ComponentSelector:       ComponentSelector{Kind: ComponentSelectorAll},
		BatchSampler:            NewSimpleBatchSampler(2),
		EvaluationPolicy:        NewIncrementalEvaluationPolicy(1, 1, 6, 0.99),
		StopConditions:          []StopCondition{MaxCalls{N: 60}},
		Seed:                    3,
	}

	state, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	best := state.BestProgram()
	if len(state.ValSubscores[best]) <= 1 {
		t.Fatalf("expected the best program's evaluated set to grow past the initial_n=1 batch across iterations, stuck at %d", len(state.ValSubscores[best]))
	}
}

func TestEngine_Run_StopsAtMaxMetricCalls(t *testing.T) {
	adapter := scoringAdapter{target: "xyz"}
	loader := listLoader{ids: []string{"t1", "t2"}}

	cfg := RunConfig{
		SeedCandidate:           Candidate{"a": ""},
		Trainset:                loader,
		Valset:                  loader,
		Adapter:                 adapter,
		MaxMetricCalls:          10,
		ReflectionMinibatchSize: 1,
		CandidateSelector:       CandidateSelector{Kind: CandidateSelectorCurrentBest},
		ComponentSelector:       ComponentSelector{Kind: ComponentSelectorAll},
		BatchSampler:            NewSimpleBatchSampler(1),
		EvaluationPolicy:        EvaluationPolicy{Kind: EvaluationPolicyFull},
		StopConditions:          []StopCondition{MaxCalls{N: 10}},
		Seed:                    1,
	}

	state, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, state.TotalEvals, 10)
}
