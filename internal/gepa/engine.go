package gepa

import (
	"context"
	"os"
	"path/filepath"

	"github.com/longregen/gepa/internal/gepa/progress"
)

// stopSentinelName is the file an operator drops into RunDir to request a
// cooperative stop at the next iteration boundary.
const stopSentinelName = "gepa.stop"

// Engine owns State for the duration of a run and drives the proposer
// loop. It is constructed fresh per run by Run; callers don't construct it
// directly.
type Engine struct {
	cfg RunConfig

	reflective *ReflectiveProposer
	merge      *MergeProposer
	rng        *RNG

	state *State
}

// Run executes a complete optimization run to one of its stop conditions,
// returning the final State. It loads prior state from RunDir if a
// persisted run exists there, otherwise it evaluates the seed candidate on
// the full valset to build a fresh State.
func Run(ctx context.Context, cfg RunConfig) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = NoOpLogger{}
	}

	e := &Engine{cfg: cfg, rng: NewRNG(cfg.Seed)}

	state, loaded, err := e.loadOrInit(ctx)
	if err != nil {
		return nil, err
	}
	e.state = state

	e.reflective = &ReflectiveProposer{
		Adapter:           cfg.Adapter,
		Trainset:          cfg.Trainset,
		LLM:               cfg.LLM,
		CandidateSelector: cfg.CandidateSelector,
		ComponentSelector: cfg.ComponentSelector,
		BatchSampler:      cfg.BatchSampler,
		Logger:            cfg.Logger,
		PerfectScore:      cfg.PerfectScore,
		SkipPerfectScore:  cfg.SkipPerfectScore,
	}
	e.merge = &MergeProposer{
		Adapter:             cfg.Adapter,
		Valset:              cfg.Valset,
		Logger:              cfg.Logger,
		RNG:                 NewRNG(cfg.Seed ^ 0xd1b54a32d192ed03),
		Enabled:             cfg.UseMerge,
		MaxMergeInvocations: cfg.MaxMergeInvocations,
		ValOverlapFloor:     cfg.MergeValOverlapFloor,
		SubsampleSize:       cfg.MergeSubsampleSize,
	}

	if loaded {
		cfg.Logger.Info("gepa: resumed run", "run_dir", cfg.RunDir, "programs", len(e.state.Programs))
	} else {
		cfg.Logger.Info("gepa: starting run", "run_dir", cfg.RunDir)
	}

	persistEveryN := defaultPersistEveryN(&cfg)
	stopCond := Composite{Conditions: cfg.StopConditions, Mode: CompositeAny}

	// Hard safety cap: independent of every configured stop condition, the
	// loop cannot outlive 100x the metric-call budget in iterations. A
	// misconfigured adapter that never advances total_evals must not spin
	// forever.
	safetyCap := cfg.MaxMetricCalls * 100
	if safetyCap <= 0 {
		safetyCap = 1_000_000
	}

	for iter := 0; iter < safetyCap; iter++ {
		if stopCond.ShouldStop(e.state) {
			cfg.Logger.Info("gepa: stop condition satisfied", "iteration", e.state.I)
			break
		}
		if e.cooperativeStopRequested() {
			cfg.Logger.Info("gepa: cooperative stop sentinel found", "iteration", e.state.I)
			break
		}
		select {
		case <-ctx.Done():
			cfg.Logger.Warn("gepa: context cancelled", "iteration", e.state.I)
			if err := e.persist(); err != nil {
				cfg.Logger.Error("gepa: persist on cancel failed", "error", err)
			}
			return e.state, ctx.Err()
		default:
		}

		accepted, tag, err := e.runIteration(ctx)
		if err != nil {
			cfg.Logger.Error("gepa: iteration failed", "iteration", e.state.I, "error", err)
		}
		if err := e.growIncrementalCandidate(ctx); err != nil {
			cfg.Logger.Error("gepa: incremental growth failed", "iteration", e.state.I, "error", err)
		}
		e.state.I++

		if e.cfg.UseMerge {
			e.merge.NotifyIterationResult(accepted)
		}

		if e.cfg.Progress != nil {
			e.publishProgress(accepted, tag)
		}

		if persistEveryN > 0 && e.state.I%persistEveryN == 0 {
			if err := e.persist(); err != nil {
				cfg.Logger.Error("gepa: periodic persist failed", "error", err)
			}
		}
	}

	if err := e.persist(); err != nil {
		cfg.Logger.Error("gepa: final persist failed", "error", err)
		return e.state, err
	}
	if e.cfg.Progress != nil {
		e.cfg.Progress.Close()
	}
	return e.state, nil
}

func (e *Engine) publishProgress(accepted bool, tag ProposalTag) {
	best := e.state.BestProgram()
	event := progress.Event{
		Iteration:   e.state.I,
		TotalEvals:  e.state.TotalEvals,
		BestScore:   e.state.AggregateScore(best),
		NumPrograms: len(e.state.Programs),
	}
	if accepted {
		event.AcceptedTag = string(tag)
	}
	e.cfg.Progress.Publish(event)
}

// runIteration runs exactly one proposer attempt: a merge attempt when one
// is due, otherwise a reflective attempt. It applies the acceptance test
// and, on acceptance, evaluates the child on the full valset (per the
// configured EvaluationPolicy) and records it in State. Returns whether a
// new program was accepted.
func (e *Engine) runIteration(ctx context.Context) (bool, ProposalTag, error) {
	var proposal *CandidateProposal
	var err error

	evalsBefore := e.state.TotalEvals
	if e.cfg.UseMerge && e.merge.mergesDue > 0 {
		proposal, err = e.merge.Propose(ctx, e.state)
	} else {
		proposal, err = e.reflective.Propose(ctx, e.state, e.rng)
	}
	if err != nil || proposal == nil {
		// An attempt that ended before any adapter evaluation still counts
		// as one, so budget-based stop conditions keep advancing.
		if e.state.TotalEvals == evalsBefore {
			e.state.TotalEvals++
		}
		return false, "", err
	}
	if !proposal.Accepted() {
		e.cfg.Logger.Debug("gepa: proposal rejected", "tag", proposal.Tag, "parents", proposal.ParentIDs)
		return false, "", nil
	}

	valsetIDs := e.cfg.Valset.AllIDs()
	policy := e.cfg.EvaluationPolicy
	// The child doesn't have a program index yet; use 0.0 as its current
	// aggregate so Incremental always starts at its initial batch.
	evalIDs := policy.EvalBatch(len(e.state.Programs), valsetIDs, 0.0)

	instances, err := e.cfg.Valset.Fetch(evalIDs)
	if err != nil {
		return false, "", NewRunError(ErrAdapterFailure, err.Error())
	}
	result, err := e.cfg.Adapter.Evaluate(ctx, instances, proposal.Child, false)
	if err != nil {
		return false, "", NewRunError(ErrAdapterFailure, err.Error())
	}
	e.state.TotalEvals += len(instances)
	if len(evalIDs) == len(valsetIDs) {
		e.state.FullValRuns++
	}

	idx := e.state.AddProgram(proposal.Child, proposal.ParentIDs, result.ScoreByID(evalIDs))
	e.cfg.Logger.Info("gepa: accepted new program", "index", idx, "tag", proposal.Tag, "parents", proposal.ParentIDs)
	return true, proposal.Tag, nil
}

// growIncrementalCandidate extends validation coverage for an
// already-recorded program under the Incremental evaluation policy (§4.6):
// it re-invokes EvalBatch on the current best program's own index — stable
// and reused across calls, unlike a freshly accepted child's index, which
// is never seen again — growing its evaluated set by Step each call until
// it crosses Threshold or reaches MaxN, at which point EvalBatch returns
// the full valset and the candidate graduates. A Full policy run has
// nothing to grow, since every program is already scored on the full
// valset at acceptance.
func (e *Engine) growIncrementalCandidate(ctx context.Context) error {
	if e.cfg.EvaluationPolicy.Kind != EvaluationPolicyIncremental {
		return nil
	}

	valsetIDs := e.cfg.Valset.AllIDs()
	idx := e.state.BestProgram()
	already := e.state.ValSubscores[idx]
	if len(already) >= len(valsetIDs) {
		return nil
	}

	policy := e.cfg.EvaluationPolicy
	batch := policy.EvalBatch(idx, valsetIDs, e.state.AggregateScore(idx))

	var fresh []string
	for _, id := range batch {
		if _, ok := already[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	instances, err := e.cfg.Valset.Fetch(fresh)
	if err != nil {
		return NewRunError(ErrAdapterFailure, err.Error())
	}
	result, err := e.cfg.Adapter.Evaluate(ctx, instances, e.state.Programs[idx], false)
	if err != nil {
		return NewRunError(ErrAdapterFailure, err.Error())
	}
	e.state.TotalEvals += len(instances)
	if len(batch) == len(valsetIDs) {
		e.state.FullValRuns++
	}
	e.state.MergeScores(idx, result.ScoreByID(fresh))
	return nil
}

func (e *Engine) cooperativeStopRequested() bool {
	if e.cfg.RunDir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(e.cfg.RunDir, stopSentinelName))
	return err == nil
}

func (e *Engine) loadOrInit(ctx context.Context) (*State, bool, error) {
	if e.cfg.RunDir != "" {
		if state, err := loadState(e.cfg.RunDir); err == nil {
			return state, true, nil
		} else if !os.IsNotExist(err) {
			e.cfg.Logger.Warn("gepa: failed to load persisted state, starting fresh", "error", err)
		}
	}

	valsetIDs := e.cfg.Valset.AllIDs()
	instances, err := e.cfg.Valset.Fetch(valsetIDs)
	if err != nil {
		return nil, false, NewRunError(ErrAdapterFailure, err.Error())
	}
	result, err := e.cfg.Adapter.Evaluate(ctx, instances, e.cfg.SeedCandidate, false)
	if err != nil {
		return nil, false, NewRunError(ErrAdapterFailure, err.Error())
	}
	state := NewState(e.cfg.SeedCandidate, result.ScoreByID(valsetIDs), valsetIDs)
	return state, false, nil
}

func (e *Engine) persist() error {
	if e.cfg.RunDir == "" {
		return nil
	}
	return saveState(e.cfg.RunDir, e.state)
}
