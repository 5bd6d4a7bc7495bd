package gepa

import "context"

// Adapter is the user-provided evaluation and reflective-feedback
// collaborator. It is the one required piece of domain knowledge the core
// does not have an opinion on.
type Adapter interface {
	// Evaluate scores candidate against batch. It never raises on a
	// per-item failure — a failed item gets a low score (the adapter's
	// choice, conventionally 0.0) rather than aborting the whole batch.
	// Trajectories are populated iff captureTraces is true. A returned
	// error indicates a systemic failure (transport dead, etc.), not a
	// per-item one.
	Evaluate(ctx context.Context, batch []Instance, candidate Candidate, captureTraces bool) (EvaluationBatch, error)

	// MakeReflectiveDataset builds, per component named in components, a
	// sequence of opaque-but-renderable feedback records from a prior
	// Evaluate call's trajectories.
	MakeReflectiveDataset(ctx context.Context, candidate Candidate, eval EvaluationBatch, components []string) (map[string][]ReflectiveRecord, error)
}

// TextProposer is the optional Adapter extension: when present, it is used
// instead of the default LLM-driven proposal path.
type TextProposer interface {
	ProposeNewTexts(ctx context.Context, candidate Candidate, reflective map[string][]ReflectiveRecord, components []string) (map[string]string, error)
}

// Instance is one opaque training/validation item with a stable ID.
type Instance struct {
	ID    string
	Value any
}

// ReflectiveRecord is one opaque feedback record. Render must produce a
// textual (Markdown-embeddable) form; the default proposer calls it while
// building the instruction-proposal prompt.
type ReflectiveRecord interface {
	Render() string
}

// DataLoader is an opaque ordered dataset with stable IDs.
type DataLoader interface {
	AllIDs() []string
	Fetch(ids []string) ([]Instance, error)
	Size() int
}

// CompletionOptions are recognized by LLM.Complete. Zero values mean
// "unset"; an implementation applies its own defaults.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	TopP        float64
	Model       string
	TimeoutMS   int
}

// CompletionResult is the tagged outcome of an LLM.Complete call: either Ok
// is true and Text holds the completion, or Ok is false and Reason
// explains the failure. The core reads back only Text.
type CompletionResult struct {
	Ok     bool
	Text   string
	Reason string
}

// LLM is the minimal text-completion interface the default reflective
// proposer drives. Adapters that supply their own TextProposer need not use
// it at all.
type LLM interface {
	Complete(ctx context.Context, prompt string, options CompletionOptions) (CompletionResult, error)
}
