package evalkit

import (
	"context"
	"testing"

	"github.com/longregen/gepa/internal/gepa"
)

type stubLLM struct {
	text string
	ok   bool
	err  error
}

func (s *stubLLM) Complete(ctx context.Context, prompt string, options gepa.CompletionOptions) (gepa.CompletionResult, error) {
	if s.err != nil {
		return gepa.CompletionResult{}, s.err
	}
	return gepa.CompletionResult{Ok: s.ok, Text: s.text}, nil
}

func TestAdapter_Evaluate_ExactMatch(t *testing.T) {
	llm := &stubLLM{ok: true, text: "Paris"}
	a := New(llm, "instruction", MatchExact, gepa.CompletionOptions{})

	batch := []gepa.Instance{{ID: "q1", Value: Case{ID: "q1", Prompt: "capital of France?", Expected: "Paris"}}}
	out, err := a.Evaluate(context.Background(), batch, gepa.Candidate{"instruction": "Answer concisely."}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Scores[0] != 1 {
		t.Errorf("expected score 1, got %v", out.Scores[0])
	}
}

func TestAdapter_Evaluate_ExactMismatch(t *testing.T) {
	llm := &stubLLM{ok: true, text: "Lyon"}
	a := New(llm, "instruction", MatchExact, gepa.CompletionOptions{})

	batch := []gepa.Instance{{ID: "q1", Value: Case{ID: "q1", Prompt: "capital of France?", Expected: "Paris"}}}
	out, err := a.Evaluate(context.Background(), batch, gepa.Candidate{"instruction": ""}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Scores[0] != 0 {
		t.Errorf("expected score 0, got %v", out.Scores[0])
	}
}

func TestAdapter_Evaluate_FuzzyPartialOverlap(t *testing.T) {
	llm := &stubLLM{ok: true, text: "The capital of France is Paris"}
	a := New(llm, "instruction", MatchFuzzy, gepa.CompletionOptions{})

	batch := []gepa.Instance{{ID: "q1", Value: Case{ID: "q1", Prompt: "capital of France?", Expected: "Paris is the capital of France"}}}
	out, err := a.Evaluate(context.Background(), batch, gepa.Candidate{"instruction": ""}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Scores[0] <= 0 || out.Scores[0] > 1 {
		t.Errorf("expected score in (0,1], got %v", out.Scores[0])
	}
}

func TestAdapter_Evaluate_EmptyCompletionScoresZero(t *testing.T) {
	llm := &stubLLM{ok: false}
	a := New(llm, "instruction", MatchFuzzy, gepa.CompletionOptions{})

	batch := []gepa.Instance{{ID: "q1", Value: Case{ID: "q1", Prompt: "x", Expected: "y"}}}
	out, err := a.Evaluate(context.Background(), batch, gepa.Candidate{"instruction": ""}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Scores[0] != 0 {
		t.Errorf("expected score 0, got %v", out.Scores[0])
	}
	if out.Trajectories[0] == nil {
		t.Fatal("expected a captured trajectory")
	}
}

func TestAdapter_MakeReflectiveDataset(t *testing.T) {
	llm := &stubLLM{ok: true, text: "Paris"}
	a := New(llm, "instruction", MatchExact, gepa.CompletionOptions{})

	batch := []gepa.Instance{{ID: "q1", Value: Case{ID: "q1", Prompt: "capital of France?", Expected: "Paris"}}}
	eval, err := a.Evaluate(context.Background(), batch, gepa.Candidate{"instruction": "Answer concisely."}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reflective, err := a.MakeReflectiveDataset(context.Background(), gepa.Candidate{"instruction": "Answer concisely."}, eval, []string{"instruction"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, ok := reflective["instruction"]
	if !ok || len(records) != 1 {
		t.Fatalf("expected 1 record for instruction, got %+v", reflective)
	}
	rendered := records[0].Render()
	if rendered == "" {
		t.Error("expected non-empty rendered feedback")
	}
}
