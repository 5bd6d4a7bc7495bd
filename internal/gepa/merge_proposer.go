package gepa

import (
	"context"
	"sort"
)

// mergeTriple is a canonicalized (lower-index, higher-index, ancestor) key
// so that drawing id1/id2 in either order still dedupes against the same
// attempted triple.
type mergeTriple struct {
	Lo, Hi, Ancestor int
}

func newMergeTriple(id1, id2, ancestor int) mergeTriple {
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	return mergeTriple{Lo: id1, Hi: id2, Ancestor: ancestor}
}

// MergeProposer runs merge proposals: it finds two Pareto dominators with a
// useful common ancestor, recombines their diverging components, and
// evaluates the merged candidate on a stratified validation subsample.
type MergeProposer struct {
	Adapter Adapter
	Valset  DataLoader
	Logger  Logger
	RNG     *RNG

	Enabled             bool
	MaxMergeInvocations int
	ValOverlapFloor     int
	SubsampleSize       int

	mergesDue               int
	totalMergesTested       int
	lastIterFoundNewProgram bool
	attemptedPairs          map[mergeTriple]bool
}

// NotifyIterationResult records whether the most recent iteration (from
// any proposer) produced a newly accepted program, and schedules a merge
// attempt if the conditions hold. The engine calls this once per
// iteration, after applying the acceptance test.
func (m *MergeProposer) NotifyIterationResult(foundNewProgram bool) {
	m.lastIterFoundNewProgram = foundNewProgram
	if !foundNewProgram || !m.Enabled {
		return
	}
	if m.totalMergesTested >= m.MaxMergeInvocations {
		return
	}
	remaining := m.MaxMergeInvocations - m.totalMergesTested
	if m.mergesDue < remaining {
		m.mergesDue++
	}
}

// Propose attempts one merge proposal. Returns (nil, nil) whenever the
// preconditions aren't met or no legal triple survives filtering — never
// an error in that case, since finding nothing to merge isn't a failure.
func (m *MergeProposer) Propose(ctx context.Context, s *State) (*CandidateProposal, error) {
	if m.Logger == nil {
		m.Logger = NoOpLogger{}
	}
	if m.attemptedPairs == nil {
		m.attemptedPairs = map[mergeTriple]bool{}
	}

	if !m.Enabled || m.mergesDue <= 0 || !m.lastIterFoundNewProgram {
		return nil, nil
	}

	agg := s.AggregateScores()
	dominators := findDominators(s.ParetoSet, agg)
	if len(dominators) < 2 {
		m.mergesDue--
		return nil, nil
	}

	id1 := weightedPick(m.RNG, dominators, agg, nil)
	id2 := weightedPick(m.RNG, dominators, agg, map[int]bool{id1: true})
	if id2 == -1 {
		m.mergesDue--
		return nil, nil
	}

	common := intersectInt(s.Ancestors(id1), s.Ancestors(id2))
	survivors := m.filterLegalAncestors(s, id1, id2, common, agg)
	if len(survivors) == 0 {
		m.mergesDue--
		return nil, nil
	}
	sort.Ints(survivors)
	ancestor := survivors[m.RNG.IntN(len(survivors))]

	merged := buildMergedCandidate(s, id1, id2, ancestor, agg)
	if merged.Equal(s.Programs[id1]) || merged.Equal(s.Programs[id2]) {
		return nil, nil
	}

	subsampleIDs, ok := m.stratifiedSubsample(s, id1, id2)
	if !ok {
		return nil, nil
	}

	instances, err := m.Valset.Fetch(subsampleIDs)
	if err != nil {
		m.Logger.Warn("merge proposer: fetch subsample failed", "error", err)
		return nil, NewRunError(ErrAdapterFailure, err.Error())
	}

	evalMerged, err := m.Adapter.Evaluate(ctx, instances, merged, false)
	if err != nil {
		m.Logger.Warn("merge proposer: evaluate merged candidate failed", "error", err)
		return nil, NewRunError(ErrAdapterFailure, err.Error())
	}
	s.TotalEvals += len(instances)

	triple := newMergeTriple(id1, id2, ancestor)
	m.attemptedPairs[triple] = true
	m.mergesDue--
	m.totalMergesTested++

	scores1 := subsampleScores(s, id1, subsampleIDs)
	scores2 := subsampleScores(s, id2, subsampleIDs)
	before := scores1
	if sumScores(scores2) > sumScores(scores1) {
		before = scores2
	}

	return &CandidateProposal{
		Child:        merged,
		ParentIDs:    []int{id1, id2},
		SubsampleIDs: subsampleIDs,
		ScoresBefore: before,
		ScoresAfter:  evalMerged.ScoreByID(subsampleIDs),
		Tag:          TagMerge,
		Meta:         map[string]any{"ancestor": ancestor},
	}, nil
}

// filterLegalAncestors applies the triple-legality predicate: never
// reused, the ancestor must not strictly dominate both descendants, and at
// least one component must diverge on exactly one side from the ancestor.
func (m *MergeProposer) filterLegalAncestors(s *State, id1, id2 int, common map[int]bool, agg map[int]float64) []int {
	survivors := make([]int, 0, len(common))
	for ancestor := range common {
		if m.attemptedPairs[newMergeTriple(id1, id2, ancestor)] {
			continue
		}
		if agg[ancestor] > agg[id1] && agg[ancestor] > agg[id2] {
			continue
		}
		if hasDesirablePredictor(s, id1, id2, ancestor) {
			survivors = append(survivors, ancestor)
		}
	}
	return survivors
}

// hasDesirablePredictor reports whether some component has exactly one of
// id1/id2 diverging from ancestor's value while the other matches it.
func hasDesirablePredictor(s *State, id1, id2, ancestor int) bool {
	anc := s.Programs[ancestor]
	p1 := s.Programs[id1]
	p2 := s.Programs[id2]
	for _, c := range s.ComponentNames {
		d1 := p1[c] != anc[c]
		d2 := p2[c] != anc[c]
		if d1 != d2 {
			return true
		}
	}
	return false
}

// buildMergedCandidate recombines id1/id2's components component-by-
// component relative to ancestor, per the merge construction rule.
func buildMergedCandidate(s *State, id1, id2, ancestor int, agg map[int]float64) Candidate {
	anc := s.Programs[ancestor]
	p1 := s.Programs[id1]
	p2 := s.Programs[id2]
	merged := make(Candidate, len(s.ComponentNames))

	for _, c := range s.ComponentNames {
		d1 := p1[c] != anc[c]
		d2 := p2[c] != anc[c]
		switch {
		case d1 && !d2:
			merged[c] = p1[c]
		case d2 && !d1:
			merged[c] = p2[c]
		default:
			if agg[id1] > agg[id2] {
				merged[c] = p1[c]
			} else if agg[id2] > agg[id1] {
				merged[c] = p2[c]
			} else if id1 < id2 {
				merged[c] = p1[c]
			} else {
				merged[c] = p2[c]
			}
		}
	}
	return merged
}

// stratifiedSubsample picks up to SubsampleSize validation IDs where both
// id1 and id2 have scores, split evenly across the three strata (id1
// wins, id2 wins, tie), filling short strata from the others. Returns
// ok=false if fewer than ValOverlapFloor common IDs exist.
func (m *MergeProposer) stratifiedSubsample(s *State, id1, id2 int) ([]string, bool) {
	scores1 := s.ValSubscores[id1]
	scores2 := s.ValSubscores[id2]

	var common []string
	for v := range scores1 {
		if _, ok := scores2[v]; ok {
			common = append(common, v)
		}
	}
	sort.Strings(common)
	if len(common) < m.ValOverlapFloor {
		return nil, false
	}

	var id1Wins, id2Wins, ties []string
	for _, v := range common {
		switch {
		case scores1[v] > scores2[v]:
			id1Wins = append(id1Wins, v)
		case scores2[v] > scores1[v]:
			id2Wins = append(id2Wins, v)
		default:
			ties = append(ties, v)
		}
	}

	target := m.SubsampleSize
	if target <= 0 || target > len(common) {
		target = len(common)
	}
	perStratum := target / 3

	var selected []string
	strata := [][]string{id1Wins, id2Wins, ties}
	taken := make([]int, len(strata))
	for i, strat := range strata {
		n := perStratum
		if n > len(strat) {
			n = len(strat)
		}
		selected = append(selected, strat[:n]...)
		taken[i] = n
	}
	for i, strat := range strata {
		for taken[i] < len(strat) && len(selected) < target {
			selected = append(selected, strat[taken[i]])
			taken[i]++
		}
	}
	sort.Strings(selected)
	return selected, true
}

func subsampleScores(s *State, id int, ids []string) map[string]float64 {
	out := make(map[string]float64, len(ids))
	scores := s.ValSubscores[id]
	for _, v := range ids {
		out[v] = scores[v]
	}
	return out
}

func intersectInt(a, b map[int]bool) map[int]bool {
	out := map[int]bool{}
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

// weightedPick draws one candidate biased toward higher weight (here,
// aggregate score), excluding any index in exclude. Falls back to a
// uniform draw when all eligible weights are non-positive. Returns -1 if
// no eligible candidate remains.
func weightedPick(rng *RNG, candidates []int, weights map[int]float64, exclude map[int]bool) int {
	pool := make([]int, 0, len(candidates))
	total := 0.0
	for _, c := range candidates {
		if exclude[c] {
			continue
		}
		w := weights[c]
		if w < 0 {
			w = 0
		}
		total += w
		pool = append(pool, c)
	}
	if len(pool) == 0 {
		return -1
	}
	if total <= 0 {
		return pool[rng.IntN(len(pool))]
	}
	r := rng.Float64() * total
	cum := 0.0
	for _, c := range pool {
		w := weights[c]
		if w < 0 {
			w = 0
		}
		cum += w
		if r < cum {
			return c
		}
	}
	return pool[len(pool)-1]
}
