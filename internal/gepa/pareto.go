package gepa

import "sort"

// ParetoSet maps a validation ID to the set of program indices achieving
// the best observed score on that ID. Implemented as a slice per front so
// that multiplicity (a program occupying several fronts) is cheap to
// recover, per select_from_front's multiset requirement.
type ParetoSet map[string][]int

// Clone returns a deep copy of ps.
func (ps ParetoSet) Clone() ParetoSet {
	clone := make(ParetoSet, len(ps))
	for v, front := range ps {
		cp := make([]int, len(front))
		copy(cp, front)
		clone[v] = cp
	}
	return clone
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// isDominated reports whether y is dominated by others under pareto_set: y
// is dominated iff it appears on at least one front, and for every front it
// appears on, at least one member of others also appears on that front. A
// program that shares no front with a member of others is never dominated.
// Score ties are handled by removeDominated, which passes only strictly
// higher-scoring programs as others.
func isDominated(y int, others map[int]bool, ps ParetoSet) bool {
	appearedOnAny := false
	for _, front := range ps {
		if !containsInt(front, y) {
			continue
		}
		appearedOnAny = true
		covered := false
		for _, p := range front {
			if p != y && others[p] {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return appearedOnAny
}

// removeDominated computes the fixpoint elimination of dominated programs
// from every front of ps, returning a new ParetoSet. Programs are
// considered for removal weakest-score-first; a program is removed only if
// it is dominated by the set of programs not yet marked for removal with a
// strictly higher score. The safety invariant — no front that was
// non-empty becomes empty — holds because a program alone on a front can
// never satisfy isDominated (there is no "other" on that front to cover
// it).
func removeDominated(ps ParetoSet, scores map[int]float64) ParetoSet {
	present := map[int]bool{}
	for _, front := range ps {
		for _, p := range front {
			present[p] = true
		}
	}
	if len(present) == 0 {
		return ps.Clone()
	}

	ordered := make([]int, 0, len(present))
	for p := range present {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		si, sj := scores[ordered[i]], scores[ordered[j]]
		if si != sj {
			return si < sj
		}
		return ordered[i] < ordered[j]
	})

	removed := map[int]bool{}
	for {
		progress := false
		for _, p := range ordered {
			if removed[p] {
				continue
			}
			survivors := map[int]bool{}
			for other := range present {
				if other == p || removed[other] {
					continue
				}
				if scores[other] > scores[p] {
					survivors[other] = true
				}
			}
			if isDominated(p, survivors, ps) {
				removed[p] = true
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	out := make(ParetoSet, len(ps))
	for v, front := range ps {
		kept := make([]int, 0, len(front))
		for _, p := range front {
			if !removed[p] {
				kept = append(kept, p)
			}
		}
		out[v] = kept
	}
	return out
}

// selectFromFront runs removeDominated, builds a multiset in which each
// surviving program is weighted by the number of fronts it occupies, and
// draws one index uniformly from that multiset. Returns ok=false if the
// combined multiset is empty (all fronts in ps were empty to start with).
func selectFromFront(ps ParetoSet, scores map[int]float64, rng *RNG) (int, bool) {
	survivors := removeDominated(ps, scores)

	multiset := make([]int, 0)
	for _, front := range survivors {
		for _, p := range front {
			multiset = append(multiset, p)
		}
	}
	if len(multiset) == 0 {
		return 0, false
	}
	sort.Ints(multiset)
	idx := rng.IntN(len(multiset))
	return multiset[idx], true
}

// findDominators returns the distinct survivors of removeDominated, sorted
// by score descending (ties broken by lower index).
func findDominators(ps ParetoSet, scores map[int]float64) []int {
	survivors := removeDominated(ps, scores)

	seen := map[int]bool{}
	distinct := make([]int, 0)
	for _, front := range survivors {
		for _, p := range front {
			if !seen[p] {
				seen[p] = true
				distinct = append(distinct, p)
			}
		}
	}
	sort.Slice(distinct, func(i, j int) bool {
		si, sj := scores[distinct[i]], scores[distinct[j]]
		if si != sj {
			return si > sj
		}
		return distinct[i] < distinct[j]
	})
	return distinct
}
