package gepa

import "sort"

// BatchSamplerKind is a closed set of minibatch-sampling strategies.
type BatchSamplerKind int

const (
	BatchSamplerSimple BatchSamplerKind = iota
	BatchSamplerEpochShuffled
)

// BatchSampler yields a minibatch of training IDs per reflective
// iteration. EpochShuffled carries its own state (current epoch's shuffled
// order and cumulative pick counts) since padding decisions depend on
// history; Simple is stateless.
type BatchSampler struct {
	Kind BatchSamplerKind
	M    int
	Seed uint64

	rng         *RNG
	epochOrder  []string
	pickCounts  map[string]int
	lastN       int
	lastEpoch   int
	initialized bool
}

// NewSimpleBatchSampler builds a deterministic, stateless circular sampler.
func NewSimpleBatchSampler(m int) *BatchSampler {
	return &BatchSampler{Kind: BatchSamplerSimple, M: m}
}

// NewEpochShuffledBatchSampler builds a sampler that reshuffles the
// training ID order at each epoch boundary, seeded independently of the
// engine's master RNG so that epoch shuffles are reproducible given Seed
// alone.
func NewEpochShuffledBatchSampler(m int, seed uint64) *BatchSampler {
	return &BatchSampler{
		Kind:       BatchSamplerEpochShuffled,
		M:          m,
		Seed:       seed,
		rng:        NewRNG(seed),
		pickCounts: map[string]int{},
	}
}

// Sample returns the minibatch of training IDs for call count i (0-indexed,
// one per reflective-proposer invocation — not necessarily State.I, since
// merge proposals don't draw a batch).
func (b *BatchSampler) Sample(i int, trainIDs []string) []string {
	n := len(trainIDs)
	if n == 0 || b.M <= 0 {
		return nil
	}
	if b.Kind == BatchSamplerSimple {
		start := (i * b.M) % n
		return circularSlice(trainIDs, start, b.M)
	}
	return b.sampleEpochShuffled(i, trainIDs)
}

func circularSlice(ids []string, start, m int) []string {
	n := len(ids)
	out := make([]string, m)
	for j := 0; j < m; j++ {
		out[j] = ids[(start+j)%n]
	}
	return out
}

func (b *BatchSampler) sampleEpochShuffled(i int, trainIDs []string) []string {
	n := len(trainIDs)
	chunksPerEpoch := (n + b.M - 1) / b.M
	if chunksPerEpoch == 0 {
		chunksPerEpoch = 1
	}
	epoch := i / chunksPerEpoch
	if !b.initialized || epoch != b.lastEpoch || n != b.lastN {
		b.reshuffle(trainIDs)
		b.lastEpoch = epoch
		b.lastN = n
		b.initialized = true
	}

	chunkIdx := i % chunksPerEpoch
	start := chunkIdx * b.M
	end := start + b.M
	if end > len(b.epochOrder) {
		end = len(b.epochOrder)
	}
	chunk := append([]string{}, b.epochOrder[start:end]...)
	for _, id := range chunk {
		b.pickCounts[id]++
	}
	return chunk
}

// reshuffle draws a fresh permutation of trainIDs and pads it to a
// multiple of M with the lowest-cumulative-pick-count IDs (ties broken by
// ID order), so every chunk sliced from the result has exactly M IDs.
func (b *BatchSampler) reshuffle(trainIDs []string) {
	ids := append([]string{}, trainIDs...)
	b.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	target := ((len(ids) + b.M - 1) / b.M) * b.M
	padCount := target - len(ids)
	if padCount > 0 {
		candidates := append([]string{}, trainIDs...)
		sort.Slice(candidates, func(i, j int) bool {
			ci, cj := b.pickCounts[candidates[i]], b.pickCounts[candidates[j]]
			if ci != cj {
				return ci < cj
			}
			return candidates[i] < candidates[j]
		})
		for k := 0; k < padCount; k++ {
			ids = append(ids, candidates[k%len(candidates)])
		}
	}
	b.epochOrder = ids
}
