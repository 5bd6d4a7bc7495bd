package gepa

import "github.com/longregen/gepa/internal/gepa/progress"

// RunConfig is the complete set of inputs a run needs. Validate must be
// called (the engine calls it itself) before Run; an invalid config never
// starts a run.
type RunConfig struct {
	SeedCandidate Candidate
	Trainset      DataLoader
	Valset        DataLoader
	Adapter       Adapter
	LLM           LLM

	MaxMetricCalls         int
	ReflectionMinibatchSize int
	PerfectScore           float64
	SkipPerfectScore       bool

	CandidateSelector CandidateSelector
	ComponentSelector ComponentSelector
	BatchSampler      *BatchSampler
	EvaluationPolicy  EvaluationPolicy

	UseMerge              bool
	MaxMergeInvocations   int
	MergeValOverlapFloor  int
	MergeSubsampleSize    int

	StopConditions []StopCondition

	RunDir        string
	PersistEveryN int
	Seed          uint64

	Logger   Logger
	Progress *progress.Publisher
}

// Validate checks the invariants the engine relies on, returning
// ErrInvalidConfig wrapped with a specific reason on the first violation
// found.
func (c *RunConfig) Validate() error {
	if c.SeedCandidate == nil || len(c.SeedCandidate) == 0 {
		return NewRunError(ErrInvalidConfig, "seed candidate must have at least one component")
	}
	if c.Trainset == nil {
		return NewRunError(ErrInvalidConfig, "trainset is required")
	}
	if c.Valset == nil {
		return NewRunError(ErrInvalidConfig, "valset is required")
	}
	if c.Adapter == nil {
		return NewRunError(ErrInvalidConfig, "adapter is required")
	}
	if c.MaxMetricCalls <= 0 {
		return NewRunError(ErrInvalidConfig, "max_metric_calls must be positive")
	}
	if c.ReflectionMinibatchSize <= 0 {
		return NewRunError(ErrInvalidConfig, "reflection_minibatch_size must be positive")
	}
	if c.BatchSampler == nil {
		return NewRunError(ErrInvalidConfig, "batch_sampler is required")
	}
	if c.UseMerge && c.MaxMergeInvocations <= 0 {
		return NewRunError(ErrInvalidConfig, "max_merge_invocations must be positive when use_merge is enabled")
	}
	if c.PersistEveryN < 0 {
		return NewRunError(ErrInvalidConfig, "persist_every_n must not be negative")
	}
	return nil
}

func defaultPersistEveryN(c *RunConfig) int {
	if c.PersistEveryN > 0 {
		return c.PersistEveryN
	}
	return 5
}
