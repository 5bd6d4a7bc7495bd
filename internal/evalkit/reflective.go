package evalkit

import (
	"context"
	"fmt"

	"github.com/longregen/gepa/internal/gepa"
)

// record renders one case's outcome as textual, Markdown-embeddable
// feedback, the same trace-plus-feedback shape execution traces are
// rendered in elsewhere in this codebase: the prompt used, what came
// back, what was expected, and the score it earned.
type record struct {
	prompt     string
	completion string
	expected   string
	score      float64
	failure    string
}

func (r *record) Render() string {
	if r.failure != "" {
		return fmt.Sprintf("PROMPT:\n%s\n\nRESULT: the model returned no usable completion (%s).", r.prompt, r.failure)
	}
	verdict := "MISMATCH"
	if r.score >= 1 {
		verdict = "MATCH"
	}
	return fmt.Sprintf(
		"PROMPT:\n%s\n\nCOMPLETION:\n%s\n\nEXPECTED:\n%s\n\nSCORE: %.2f (%s)",
		r.prompt, r.completion, r.expected, r.score, verdict,
	)
}

var _ gepa.ReflectiveRecord = (*record)(nil)

// MakeReflectiveDataset builds one record per captured trace for every
// component named, since this adapter exposes a single instruction
// component and every trace is relevant feedback for it.
func (a *Adapter) MakeReflectiveDataset(ctx context.Context, candidate gepa.Candidate, eval gepa.EvaluationBatch, components []string) (map[string][]gepa.ReflectiveRecord, error) {
	records := make([]gepa.ReflectiveRecord, 0, len(eval.Trajectories))
	for _, traj := range eval.Trajectories {
		t, ok := traj.(*trace)
		if !ok {
			return nil, fmt.Errorf("evalkit: trajectory is not an evalkit trace")
		}
		records = append(records, &record{
			prompt:     t.prompt,
			completion: t.completion,
			expected:   t.expected,
			score:      t.score,
			failure:    t.failure,
		})
	}

	out := make(map[string][]gepa.ReflectiveRecord, len(components))
	for _, c := range components {
		out[c] = records
	}
	return out, nil
}
