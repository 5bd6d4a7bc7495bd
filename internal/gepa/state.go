package gepa

import "sort"

// State is the evolutionary memory: every discovered program, its parents,
// sparse per-example validation scores, the per-example Pareto fronts, and
// the iteration/eval counters. State is owned exclusively by the Engine;
// no other component may mutate it. Value semantics are exposed via Clone
// for snapshotting (persistence, tests); the Engine itself mutates a single
// State in place, which is sufficient since the loop is strictly
// sequential (§5).
type State struct {
	Programs          []Candidate
	Parents           map[int][]int
	ValSubscores      map[int]map[string]float64
	ParetoScore       map[string]float64
	ParetoSet         ParetoSet
	ComponentNames    []string
	NextComponentFor  map[int]int
	I                 int
	TotalEvals        int
	FullValRuns       int
}

// NewState initializes State by recording the seed's full-valset
// evaluation as program 0.
func NewState(seed Candidate, seedScores map[string]float64, valsetIDs []string) *State {
	s := &State{
		Programs:         []Candidate{seed.Clone()},
		Parents:          map[int][]int{0: {}},
		ValSubscores:     map[int]map[string]float64{0: {}},
		ParetoScore:      map[string]float64{},
		ParetoSet:        ParetoSet{},
		ComponentNames:   seed.ComponentNames(),
		NextComponentFor: map[int]int{0: 0},
		I:                0,
		TotalEvals:       len(valsetIDs),
		FullValRuns:      1,
	}
	for _, v := range valsetIDs {
		score := seedScores[v]
		s.ValSubscores[0][v] = score
		s.ParetoScore[v] = score
		s.ParetoSet[v] = []int{0}
	}
	return s
}

// AddProgram appends candidate as a new program, updates the Pareto
// structures for every validation ID in valScores, and records lineage.
// Returns the new program's index.
func (s *State) AddProgram(candidate Candidate, parentIDs []int, valScores map[string]float64) int {
	k := len(s.Programs)
	s.Programs = append(s.Programs, candidate.Clone())
	s.Parents[k] = append([]int{}, parentIDs...)

	scores := make(map[string]float64, len(valScores))
	for v, sc := range valScores {
		scores[v] = sc
	}
	s.ValSubscores[k] = scores

	for v, sc := range valScores {
		s.updatePareto(v, k, sc)
	}

	// A reflective child has exactly one parent: the component that was
	// just mutated on that lineage advances round-robin by one step (§4.4).
	// A merge child has two: it inherits whichever parent is further
	// along, same as before — merging never itself mutates a component.
	if len(parentIDs) == 1 {
		numComponents := len(s.ComponentNames)
		if numComponents == 0 {
			s.NextComponentFor[k] = 0
		} else {
			s.NextComponentFor[k] = (s.NextComponentFor[parentIDs[0]] + 1) % numComponents
		}
	} else {
		next := 0
		for _, p := range parentIDs {
			if n := s.NextComponentFor[p]; n > next {
				next = n
			}
		}
		s.NextComponentFor[k] = next
	}

	return k
}

// updatePareto folds a single (validation ID, program, score) observation
// into the Pareto front for v.
func (s *State) updatePareto(v string, p int, sc float64) {
	best, ok := s.ParetoScore[v]
	switch {
	case !ok || sc > best:
		s.ParetoScore[v] = sc
		s.ParetoSet[v] = []int{p}
	case sc == best:
		s.ParetoSet[v] = append(s.ParetoSet[v], p)
	default:
		// sc < best: no change to the Pareto structures for v.
	}
}

// MergeScores folds newly evaluated validation subscores for an
// already-recorded program into its sparse ValSubscores entry and the
// Pareto structures, without disturbing IDs it was already scored on. This
// is how the Incremental evaluation policy grows a candidate's coverage
// across later iterations (§4.6), as opposed to AddProgram's one-time
// scoring of a brand new program.
func (s *State) MergeScores(p int, newScores map[string]float64) {
	existing := s.ValSubscores[p]
	for v, sc := range newScores {
		if _, ok := existing[v]; ok {
			continue
		}
		existing[v] = sc
		s.updatePareto(v, p, sc)
	}
}

// AggregateScore returns the mean of program p's validation subscores (0
// if it has none).
func (s *State) AggregateScore(p int) float64 {
	scores := s.ValSubscores[p]
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores))
}

// AggregateScores returns AggregateScore for every program, indexed by
// program ID — a convenience for the Pareto utilities, which take a flat
// map[int]float64 rather than calling back into State.
func (s *State) AggregateScores() map[int]float64 {
	out := make(map[int]float64, len(s.Programs))
	for p := range s.Programs {
		out[p] = s.AggregateScore(p)
	}
	return out
}

// Ancestors returns the transitive closure of p's parents (excluding p
// itself), computed by traversal over Parents. The genealogy graph is
// acyclic by construction (every parent index is strictly less than its
// child), so a simple worklist terminates.
func (s *State) Ancestors(p int) map[int]bool {
	seen := map[int]bool{}
	queue := append([]int{}, s.Parents[p]...)
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		if seen[a] {
			continue
		}
		seen[a] = true
		queue = append(queue, s.Parents[a]...)
	}
	return seen
}

// Clone returns a deep, independent copy of s.
func (s *State) Clone() *State {
	clone := &State{
		Parents:          make(map[int][]int, len(s.Parents)),
		ValSubscores:     make(map[int]map[string]float64, len(s.ValSubscores)),
		ParetoScore:      make(map[string]float64, len(s.ParetoScore)),
		ParetoSet:        s.ParetoSet.Clone(),
		ComponentNames:   append([]string{}, s.ComponentNames...),
		NextComponentFor: make(map[int]int, len(s.NextComponentFor)),
		I:                s.I,
		TotalEvals:       s.TotalEvals,
		FullValRuns:      s.FullValRuns,
	}
	for _, p := range s.Programs {
		clone.Programs = append(clone.Programs, p.Clone())
	}
	for k, v := range s.Parents {
		clone.Parents[k] = append([]int{}, v...)
	}
	for k, v := range s.ValSubscores {
		m := make(map[string]float64, len(v))
		for id, sc := range v {
			m[id] = sc
		}
		clone.ValSubscores[k] = m
	}
	for k, v := range s.ParetoScore {
		clone.ParetoScore[k] = v
	}
	for k, v := range s.NextComponentFor {
		clone.NextComponentFor[k] = v
	}
	return clone
}

// BestProgram returns the program index with the highest aggregate score,
// ties broken by a greater number of examples evaluated, then by lower
// index — the "Full" evaluation policy's best-program rule, also useful
// as a general-purpose accessor.
func (s *State) BestProgram() int {
	agg := s.AggregateScores()
	indices := make([]int, 0, len(s.Programs))
	for p := range s.Programs {
		indices = append(indices, p)
	}
	sort.Slice(indices, func(i, j int) bool {
		pi, pj := indices[i], indices[j]
		if agg[pi] != agg[pj] {
			return agg[pi] > agg[pj]
		}
		ei, ej := len(s.ValSubscores[pi]), len(s.ValSubscores[pj])
		if ei != ej {
			return ei > ej
		}
		return pi < pj
	})
	return indices[0]
}
