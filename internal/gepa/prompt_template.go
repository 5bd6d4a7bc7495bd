package gepa

import (
	"fmt"
	"strings"
)

// defaultInstructionPromptTemplate is the default instruction-proposal
// prompt. It must contain exactly the two placeholders below; the engine
// never alters their names.
const defaultInstructionPromptTemplate = `You are improving part of a larger system's prompt.

Below is the current text for a component, followed by examples of how it
was used and feedback on the results.

## Current component text
<curr_instructions>

## Examples, outputs, and feedback
<inputs_outputs_feedback>

Write an improved version of the component text. Respond with only the new
text, inside a single triple-backtick fenced block.`

// renderInstructionPrompt fills the default template's two placeholders.
// currInstructions is the component's current text; feedback is the
// reflective dataset for that component, already rendered as Markdown.
func renderInstructionPrompt(currInstructions, feedback string) string {
	prompt := strings.ReplaceAll(defaultInstructionPromptTemplate, "<curr_instructions>", currInstructions)
	prompt = strings.ReplaceAll(prompt, "<inputs_outputs_feedback>", feedback)
	return prompt
}

// renderReflectiveDataset renders a reflective dataset's records for one
// component as the Markdown hierarchy the template contract demands: one
// "# Example N" section per record, the record's own rendering nested
// beneath it.
func renderReflectiveDataset(records []ReflectiveRecord) string {
	var b strings.Builder
	for i, r := range records {
		fmt.Fprintf(&b, "# Example %d\n\n%s\n\n", i+1, r.Render())
	}
	return b.String()
}

// extractFencedContent implements the response-parsing rule: extract the
// content between the last pair of triple-backtick fences. Robust to a
// missing closing fence, a language tag right after the opening fence, and
// the no-fence case (falls back to the trimmed response).
func extractFencedContent(response string) string {
	const fence = "```"

	lastOpen := strings.LastIndex(response, fence)
	if lastOpen == -1 {
		return strings.TrimSpace(response)
	}

	// Find the fence immediately preceding lastOpen, if any, to treat
	// lastOpen/close as "the last pair". Search for a close fence after
	// lastOpen first; if found, lastOpen is actually the opening fence of
	// the final pair only when there's an earlier fence before it that
	// pairs as "open". We instead scan all fence positions and take the
	// final two.
	positions := fencePositions(response, fence)
	if len(positions) == 0 {
		return strings.TrimSpace(response)
	}
	if len(positions) == 1 {
		// Only an opening fence with no closing fence: take everything
		// after it.
		return stripLanguageTag(response[positions[0]+len(fence):])
	}

	open := positions[len(positions)-2]
	close := positions[len(positions)-1]
	content := response[open+len(fence) : close]
	return stripLanguageTag(content)
}

func fencePositions(s, fence string) []int {
	var positions []int
	start := 0
	for {
		idx := strings.Index(s[start:], fence)
		if idx == -1 {
			break
		}
		positions = append(positions, start+idx)
		start = start + idx + len(fence)
	}
	return positions
}

// stripLanguageTag removes a leading language tag line (e.g. "text\n")
// that may follow an opening fence, then trims surrounding whitespace.
func stripLanguageTag(content string) string {
	content = strings.TrimLeft(content, " \t")
	if nl := strings.IndexByte(content, '\n'); nl != -1 {
		firstLine := content[:nl]
		if firstLine == strings.TrimSpace(firstLine) && !strings.Contains(firstLine, " ") && len(firstLine) < 32 {
			content = content[nl+1:]
		}
	}
	return strings.TrimSpace(content)
}
