package gepa

import "context"

// ReflectiveProposer runs one reflective-mutation proposal per Propose
// call: select a parent, evaluate it with traces on a training minibatch,
// ask the adapter (or, by default, an LLM) for improved component texts,
// and evaluate the resulting child on the same minibatch.
type ReflectiveProposer struct {
	Adapter           Adapter
	Trainset          DataLoader
	LLM               LLM
	CandidateSelector CandidateSelector
	ComponentSelector ComponentSelector
	BatchSampler      *BatchSampler
	Logger            Logger

	PerfectScore     float64
	SkipPerfectScore bool

	callCount int
}

// Propose attempts one reflective proposal. (nil, nil) means no proposal
// was warranted (perfect-score skip, identical child); (nil, err) means an
// adapter or LLM failure occurred — already logged, never fatal. The
// engine still counts the attempt toward total_evals so budget-based stop
// conditions don't stall on repeated failures.
func (r *ReflectiveProposer) Propose(ctx context.Context, s *State, rng *RNG) (*CandidateProposal, error) {
	if r.Logger == nil {
		r.Logger = NoOpLogger{}
	}

	parentIdx := r.CandidateSelector.Select(s, rng)
	parent := s.Programs[parentIdx]

	trainIDs := r.Trainset.AllIDs()
	batchIDs := r.BatchSampler.Sample(r.callCount, trainIDs)
	r.callCount++

	batch, err := r.Trainset.Fetch(batchIDs)
	if err != nil {
		r.Logger.Warn("reflective proposer: fetch training batch failed", "error", err)
		return nil, NewRunError(ErrAdapterFailure, err.Error())
	}

	evalBefore, err := r.Adapter.Evaluate(ctx, batch, parent, true)
	if err != nil {
		r.Logger.Warn("reflective proposer: evaluate parent failed", "error", err)
		return nil, NewRunError(ErrAdapterFailure, err.Error())
	}
	s.TotalEvals += len(batch)

	if r.SkipPerfectScore && allEqual(evalBefore.Scores, r.PerfectScore) {
		return nil, nil
	}

	components := r.ComponentSelector.Select(s, parentIdx)

	reflective, err := r.Adapter.MakeReflectiveDataset(ctx, parent, evalBefore, components)
	if err != nil {
		r.Logger.Warn("reflective proposer: make reflective dataset failed", "error", err)
		return nil, NewRunError(ErrAdapterFailure, err.Error())
	}

	newTexts, err := r.proposeNewTexts(ctx, parent, reflective, components)
	if err != nil {
		r.Logger.Warn("reflective proposer: propose new texts failed", "error", err)
		return nil, NewRunError(ErrLLMFailure, err.Error())
	}

	child := parent.Clone()
	for name, text := range newTexts {
		child[name] = text
	}
	if child.Equal(parent) {
		return nil, nil
	}

	evalAfter, err := r.Adapter.Evaluate(ctx, batch, child, false)
	if err != nil {
		r.Logger.Warn("reflective proposer: evaluate child failed", "error", err)
		return nil, NewRunError(ErrAdapterFailure, err.Error())
	}
	s.TotalEvals += len(batch)

	return &CandidateProposal{
		Child:        child,
		ParentIDs:    []int{parentIdx},
		SubsampleIDs: batchIDs,
		ScoresBefore: evalBefore.ScoreByID(batchIDs),
		ScoresAfter:  evalAfter.ScoreByID(batchIDs),
		Tag:          TagReflective,
	}, nil
}

// proposeNewTexts prefers the adapter's own TextProposer when supplied,
// falling back to the default LLM-driven path otherwise.
func (r *ReflectiveProposer) proposeNewTexts(ctx context.Context, candidate Candidate, reflective map[string][]ReflectiveRecord, components []string) (map[string]string, error) {
	if tp, ok := r.Adapter.(TextProposer); ok {
		return tp.ProposeNewTexts(ctx, candidate, reflective, components)
	}

	out := make(map[string]string, len(components))
	for _, name := range components {
		prompt := renderInstructionPrompt(candidate[name], renderReflectiveDataset(reflective[name]))
		result, err := r.LLM.Complete(ctx, prompt, CompletionOptions{})
		if err != nil {
			return nil, err
		}
		if !result.Ok {
			return nil, NewRunError(ErrLLMFailure, result.Reason)
		}
		out[name] = extractFencedContent(result.Text)
	}
	return out, nil
}

func allEqual(scores []float64, target float64) bool {
	if len(scores) == 0 {
		return false
	}
	for _, s := range scores {
		if s != target {
			return false
		}
	}
	return true
}
