package ai

import (
	"context"
	"errors"
	"strings"
)

// Completer is the text-completion contract used by the interpreter.
// Classify returns a JSON intent payload; Extract returns JSON time components.
type Completer interface {
	Classify(ctx context.Context, prompt string) (string, error)
	Extract(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyCompletion is returned when the backend answered with no content
var ErrEmptyCompletion = errors.New("empty completion")

const (
	classifySystemPrompt = "You classify replies to meeting-scheduling emails. " +
		"Answer with a single JSON object and nothing else."
	extractSystemPrompt = "You extract date and time components from text. " +
		"Never compute timestamps. Answer with a single JSON object and nothing else."
)

// ExtractJSON strips markdown code fences some models wrap around JSON
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	// Check if wrapped in markdown code block
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}
