package gepa

import "sort"

// CandidateSelectorKind is a closed set of candidate-selection strategies.
// Selectors are modeled as a sum type (one struct, a kind tag) rather than
// an open interface hierarchy dispatched on runtime type, per the "no
// open-world extensibility needed here" design note.
type CandidateSelectorKind int

const (
	CandidateSelectorPareto CandidateSelectorKind = iota
	CandidateSelectorCurrentBest
	CandidateSelectorEpsilonGreedy
)

// CandidateSelector picks a parent program index each iteration.
type CandidateSelector struct {
	Kind    CandidateSelectorKind
	Epsilon float64 // only used when Kind == CandidateSelectorEpsilonGreedy
}

// Select returns a parent program index, consuming rng.
func (c CandidateSelector) Select(s *State, rng *RNG) int {
	switch c.Kind {
	case CandidateSelectorPareto:
		agg := s.AggregateScores()
		idx, ok := selectFromFront(s.ParetoSet, agg, rng)
		if !ok {
			return currentBest(s)
		}
		return idx
	case CandidateSelectorEpsilonGreedy:
		if rng.Float64() < c.Epsilon {
			return rng.IntN(len(s.Programs))
		}
		return currentBest(s)
	default: // CandidateSelectorCurrentBest
		return currentBest(s)
	}
}

// currentBest returns the argmax over aggregate_score, ties broken by
// lower index.
func currentBest(s *State) int {
	agg := s.AggregateScores()
	indices := make([]int, 0, len(s.Programs))
	for p := range s.Programs {
		indices = append(indices, p)
	}
	sort.Slice(indices, func(i, j int) bool {
		if agg[indices[i]] != agg[indices[j]] {
			return agg[indices[i]] > agg[indices[j]]
		}
		return indices[i] < indices[j]
	})
	return indices[0]
}
