package gepa

// EvaluationPolicyKind is a closed set of full-valset evaluation
// strategies.
type EvaluationPolicyKind int

const (
	EvaluationPolicyFull EvaluationPolicyKind = iota
	EvaluationPolicyIncremental
)

// EvaluationPolicy decides which validation IDs to evaluate a child
// candidate on, and how to pick the "best" program from State.
type EvaluationPolicy struct {
	Kind EvaluationPolicyKind

	// Incremental-only fields.
	InitialN  int
	Step      int
	MaxN      int
	Threshold float64

	// evaluated tracks, per program index, the set of validation IDs
	// evaluated so far under Incremental. Full ignores this.
	evaluated map[int]map[string]bool
}

// NewIncrementalEvaluationPolicy builds an Incremental policy with its
// per-candidate tracking state initialized.
func NewIncrementalEvaluationPolicy(initialN, step, maxN int, threshold float64) EvaluationPolicy {
	return EvaluationPolicy{
		Kind:      EvaluationPolicyIncremental,
		InitialN:  initialN,
		Step:      step,
		MaxN:      maxN,
		Threshold: threshold,
		evaluated: map[int]map[string]bool{},
	}
}

// EvalBatch returns the validation IDs to evaluate program k on, given the
// full ordered valset and k's current aggregate score (used by Incremental
// to decide whether to graduate to the full set).
func (p *EvaluationPolicy) EvalBatch(k int, valsetIDs []string, currentAggregate float64) []string {
	if p.Kind == EvaluationPolicyFull {
		return append([]string{}, valsetIDs...)
	}

	if p.evaluated == nil {
		p.evaluated = map[int]map[string]bool{}
	}
	done, ok := p.evaluated[k]
	if !ok {
		n := p.InitialN
		if n > len(valsetIDs) {
			n = len(valsetIDs)
		}
		done = boolSetFromSlice(valsetIDs[:n])
		p.evaluated[k] = done
		return valsetIDs[:n]
	}

	if currentAggregate > p.Threshold || len(done) >= p.MaxN || len(done) >= len(valsetIDs) {
		return append([]string{}, valsetIDs...)
	}

	grown := len(done) + p.Step
	if grown > len(valsetIDs) {
		grown = len(valsetIDs)
	}
	if grown > p.MaxN {
		grown = p.MaxN
	}
	batch := valsetIDs[:grown]
	p.evaluated[k] = boolSetFromSlice(batch)
	return batch
}

func boolSetFromSlice(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// BestProgram implements the Full policy's best-program rule: highest
// aggregate score, ties broken by a greater number of examples evaluated,
// then by lower index. It is identical to State.BestProgram and exposed
// here so callers can go through the policy uniformly.
func (p *EvaluationPolicy) BestProgram(s *State) int {
	return s.BestProgram()
}
