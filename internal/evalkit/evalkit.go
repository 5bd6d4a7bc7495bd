// Package evalkit is a reference gepa.Adapter for single-turn
// text-completion tasks: a prompt goes in, a completion comes out, and the
// completion is scored against an expected field by exact or fuzzy match.
// It exists so a GEPA run can be exercised end to end without a
// task-specific adapter; real deployments are expected to implement their
// own gepa.Adapter when scoring needs more than string comparison.
package evalkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/longregen/gepa/internal/gepa"
)

// Case is one text-completion training/validation item: a prompt and the
// text its completion is scored against.
type Case struct {
	ID       string
	Prompt   string
	Expected string
}

// MatchMode selects how a completion is compared against Case.Expected.
type MatchMode int

const (
	// MatchExact requires the trimmed completion to equal the trimmed
	// Expected, ignoring case.
	MatchExact MatchMode = iota
	// MatchFuzzy scores by token-overlap similarity, tolerant of
	// paraphrase and formatting differences.
	MatchFuzzy
)

// Adapter is the reference LLMServiceAdapter-style wrapping: it holds an
// injected gepa.LLM port and a single candidate component name that
// supplies the instruction prepended to every case's prompt, the same
// shape an LLM-backed port gets wrapped behind a narrow interface
// elsewhere in this codebase.
type Adapter struct {
	llm             gepa.LLM
	instructionKey  string
	match           MatchMode
	completionOpts  gepa.CompletionOptions
}

// New builds an Adapter. instructionKey names the candidate component
// whose text is treated as the system instruction prefixed to every
// case's prompt; match selects the scoring mode.
func New(llm gepa.LLM, instructionKey string, match MatchMode, opts gepa.CompletionOptions) *Adapter {
	return &Adapter{llm: llm, instructionKey: instructionKey, match: match, completionOpts: opts}
}

// trace is the opaque per-item record captured when Evaluate runs with
// captureTraces set. MakeReflectiveDataset renders it into feedback text.
type trace struct {
	id         string
	instanceID string
	prompt     string
	completion string
	expected   string
	score      float64
	failure    string
}

// Evaluate runs candidate's instruction against every case in batch,
// scoring each completion against its expected text. A transport failure
// from the LLM is a systemic error and aborts the batch; an empty or
// clearly-wrong completion just scores low.
func (a *Adapter) Evaluate(ctx context.Context, batch []gepa.Instance, candidate gepa.Candidate, captureTraces bool) (gepa.EvaluationBatch, error) {
	out := gepa.EvaluationBatch{
		Outputs: make([]any, len(batch)),
		Scores:  make([]float64, len(batch)),
	}
	if captureTraces {
		out.Trajectories = make([]gepa.Trajectory, len(batch))
	}

	instruction := candidate[a.instructionKey]

	for i, inst := range batch {
		c, ok := inst.Value.(Case)
		if !ok {
			return gepa.EvaluationBatch{}, fmt.Errorf("evalkit: instance %s value is not evalkit.Case", inst.ID)
		}

		prompt := buildPrompt(instruction, c.Prompt)
		result, err := a.llm.Complete(ctx, prompt, a.completionOpts)
		if err != nil {
			return gepa.EvaluationBatch{}, fmt.Errorf("evalkit: llm completion failed for %s: %w", inst.ID, err)
		}

		completion := ""
		failure := ""
		if !result.Ok {
			failure = result.Reason
		} else {
			completion = strings.TrimSpace(result.Text)
		}

		score := a.score(completion, c.Expected)
		out.Outputs[i] = completion
		out.Scores[i] = score

		if captureTraces {
			out.Trajectories[i] = &trace{
				id:         "trace_" + uuid.New().String()[:8],
				instanceID: inst.ID,
				prompt:     prompt,
				completion: completion,
				expected:   c.Expected,
				score:      score,
				failure:    failure,
			}
		}
	}

	return out, nil
}

func buildPrompt(instruction, caseInput string) string {
	if instruction == "" {
		return caseInput
	}
	return instruction + "\n\n" + caseInput
}

func (a *Adapter) score(completion, expected string) float64 {
	if expected == "" {
		return 0
	}
	switch a.match {
	case MatchExact:
		if strings.EqualFold(strings.TrimSpace(completion), strings.TrimSpace(expected)) {
			return 1
		}
		return 0
	default:
		return tokenOverlap(completion, expected)
	}
}

// tokenOverlap scores by Jaccard similarity of lowercased word sets.
// Simple and dependency-free: the comparison is a generic string-set
// operation, not a domain concern any example repo's libraries cover.
func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,!?;:\"'()")] = true
	}
	delete(set, "")
	return set
}
