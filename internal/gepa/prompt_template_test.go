package gepa

import "testing"

func TestRenderInstructionPrompt_ContainsPlaceholderValues(t *testing.T) {
	got := renderInstructionPrompt("do the thing", "# Example 1\n\nfeedback here\n")
	if !containsAll(got, "do the thing", "feedback here") {
		t.Fatalf("rendered prompt missing substituted content: %s", got)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !contains(s, sub) {
			return false
		}
	}
	return true
}

func contains(s, sub string) bool {
	return len(sub) == 0 || (len(s) >= len(sub) && indexOf(s, sub) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestExtractFencedContent_SimpleFence(t *testing.T) {
	resp := "here is the new text:\n```\nimproved instructions\n```\nhope that helps"
	got := extractFencedContent(resp)
	if got != "improved instructions" {
		t.Fatalf("expected %q, got %q", "improved instructions", got)
	}
}

func TestExtractFencedContent_StripsLanguageTag(t *testing.T) {
	resp := "```text\nimproved instructions\n```"
	got := extractFencedContent(resp)
	if got != "improved instructions" {
		t.Fatalf("expected language tag stripped, got %q", got)
	}
}

func TestExtractFencedContent_MissingClosingFence(t *testing.T) {
	resp := "```\nimproved instructions continues to the end"
	got := extractFencedContent(resp)
	if got != "improved instructions continues to the end" {
		t.Fatalf("expected fallback to content after the single fence, got %q", got)
	}
}

func TestExtractFencedContent_NoFenceFallsBackToTrimmed(t *testing.T) {
	resp := "  just plain text, no fences  "
	got := extractFencedContent(resp)
	if got != "just plain text, no fences" {
		t.Fatalf("expected trimmed plain text, got %q", got)
	}
}

func TestExtractFencedContent_TakesLastPairWhenMultiple(t *testing.T) {
	resp := "first attempt:\n```\nold draft\n```\nsecond attempt:\n```\nfinal draft\n```"
	got := extractFencedContent(resp)
	if got != "final draft" {
		t.Fatalf("expected the last fenced block, got %q", got)
	}
}
